package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"chatsync/internal/middleware"
)

type Handler struct {
	service *Service
	log     *logrus.Logger
}

func NewHandler(s *Service, log *logrus.Logger) *Handler {
	return &Handler{service: s, log: log}
}

type CreateChatRequest struct {
	Name           string  `json:"name"`
	ParticipantIDs []int64 `json:"participant_ids"`
}

type SendMessageRequest struct {
	Body string `json:"body"`
}

// ListChats serves GET /api/chats: the recency-sorted summary list.
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summaries, err := h.service.Summaries(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

// CreateChat serves POST /api/chats. The creator is always a member.
func (h *Handler) CreateChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	members := append([]int64{userID}, req.ParticipantIDs...)
	c, err := h.service.Create(r.Context(), req.Name, dedupe(members))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// GetChat serves GET /api/chats/{chatID}: chat details plus participants.
func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	chatID, err := chatIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chat id")
		return
	}

	detail, err := h.service.Detail(r.Context(), chatID, userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// GetMessages serves GET /api/chats/{chatID}/messages?limit=30&before=<id>.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	chatID, err := chatIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chat id")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}
	var before int64
	if raw := r.URL.Query().Get("before"); raw != "" {
		before, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid cursor")
			return
		}
	}

	page, err := h.service.History(r.Context(), chatID, userID, before, limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if page.Messages == nil {
		page.Messages = []Message{}
	}
	writeJSON(w, http.StatusOK, page)
}

// SendMessage serves POST /api/chats/{chatID}/messages and returns the
// created message with its server-assigned id and timestamp.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	chatID, err := chatIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chat id")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.service.Send(r.Context(), chatID, userID, req.Body)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyBody), errors.Is(err, ErrNameRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotParticipant):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrChatNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.log.WithError(err).Error("chat request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func chatIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "chatID"), 10, 64)
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
