package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"chatsync/internal/middleware"
	"chatsync/internal/session"
)

type testServer struct {
	fixture  *fixture
	sessions *session.Manager
	router   *chi.Mux
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	f := newFixture(t)
	manager := session.NewManager("test-secret", session.NewMemoryStore(), time.Hour)
	handler := NewHandler(f.service, testLogger())
	auth := middleware.NewAuth(manager)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(auth.Handle)
		r.Get("/api/chats", handler.ListChats)
		r.Post("/api/chats", handler.CreateChat)
		r.Get("/api/chats/{chatID}", handler.GetChat)
		r.Get("/api/chats/{chatID}/messages", handler.GetMessages)
		r.Post("/api/chats/{chatID}/messages", handler.SendMessage)
	})
	return &testServer{fixture: f, sessions: manager, router: r}
}

func (s *testServer) tokenFor(t *testing.T, userID int64, username string) string {
	t.Helper()
	token, err := s.sessions.Issue(context.Background(), userID, username)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}

func (s *testServer) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func TestGetMessagesResponseShape(t *testing.T) {
	s := newTestServer(t)
	u := createTestUser(t, s.fixture.db, "alice")
	chatID := s.fixture.chatWithMember(t, "general", u.ID)
	token := s.tokenFor(t, u.ID, u.Username)

	for i := 1; i <= 35; i++ {
		s.fixture.service.Send(context.Background(), chatID, u.ID, fmt.Sprintf("msg %d", i))
	}

	rr := s.request(t, http.MethodGet, fmt.Sprintf("/api/chats/%d/messages?limit=30", chatID), token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var page Page
	if err := json.NewDecoder(rr.Body).Decode(&page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if len(page.Messages) != 30 {
		t.Fatalf("page size = %d, want 30", len(page.Messages))
	}
	if page.NextCursor == nil {
		t.Fatal("expected a non-nil cursor for the first of two pages")
	}

	rr = s.request(t, http.MethodGet,
		fmt.Sprintf("/api/chats/%d/messages?limit=30&before=%d", chatID, *page.NextCursor), token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var rest Page
	json.NewDecoder(rr.Body).Decode(&rest)
	if len(rest.Messages) != 5 {
		t.Fatalf("second page size = %d, want 5", len(rest.Messages))
	}
	if rest.NextCursor != nil {
		t.Errorf("second page cursor = %d, want null", *rest.NextCursor)
	}
}

func TestGetMessagesRequiresAuth(t *testing.T) {
	s := newTestServer(t)

	rr := s.request(t, http.MethodGet, "/api/chats/1/messages", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("missing token status = %d, want 401", rr.Code)
	}

	rr = s.request(t, http.MethodGet, "/api/chats/1/messages", "bogus-token", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", rr.Code)
	}
}

func TestSendMessageEndpoint(t *testing.T) {
	s := newTestServer(t)
	u := createTestUser(t, s.fixture.db, "alice")
	chatID := s.fixture.chatWithMember(t, "general", u.ID)
	token := s.tokenFor(t, u.ID, u.Username)

	rr := s.request(t, http.MethodPost, fmt.Sprintf("/api/chats/%d/messages", chatID), token,
		SendMessageRequest{Body: "hello there"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rr.Code, rr.Body.String())
	}

	var msg Message
	if err := json.NewDecoder(rr.Body).Decode(&msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if msg.ID == 0 || msg.Body != "hello there" || msg.SenderID != u.ID {
		t.Errorf("unexpected message: %+v", msg)
	}
	if msg.CreatedAt.IsZero() {
		t.Error("expected a server-assigned timestamp")
	}
}

func TestSendMessageValidation(t *testing.T) {
	s := newTestServer(t)
	u := createTestUser(t, s.fixture.db, "alice")
	chatID := s.fixture.chatWithMember(t, "general", u.ID)
	token := s.tokenFor(t, u.ID, u.Username)

	rr := s.request(t, http.MethodPost, fmt.Sprintf("/api/chats/%d/messages", chatID), token,
		SendMessageRequest{Body: "   \n "})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("whitespace body status = %d, want 400", rr.Code)
	}

	// No message may have been created by the rejected send.
	page, _ := s.fixture.service.History(context.Background(), chatID, u.ID, 0, 10)
	if len(page.Messages) != 0 {
		t.Errorf("expected empty history, got %d messages", len(page.Messages))
	}
}

func TestSendMessageForbiddenForOutsider(t *testing.T) {
	s := newTestServer(t)
	member := createTestUser(t, s.fixture.db, "alice")
	outsider := createTestUser(t, s.fixture.db, "mallory")
	chatID := s.fixture.chatWithMember(t, "general", member.ID)
	token := s.tokenFor(t, outsider.ID, outsider.Username)

	rr := s.request(t, http.MethodPost, fmt.Sprintf("/api/chats/%d/messages", chatID), token,
		SendMessageRequest{Body: "let me in"})
	if rr.Code != http.StatusForbidden {
		t.Errorf("outsider send status = %d, want 403", rr.Code)
	}

	rr = s.request(t, http.MethodGet, fmt.Sprintf("/api/chats/%d/messages", chatID), token, nil)
	if rr.Code != http.StatusForbidden {
		t.Errorf("outsider read status = %d, want 403", rr.Code)
	}
}

func TestCreateAndListChats(t *testing.T) {
	s := newTestServer(t)
	alice := createTestUser(t, s.fixture.db, "alice")
	bob := createTestUser(t, s.fixture.db, "bob")
	token := s.tokenFor(t, alice.ID, alice.Username)

	rr := s.request(t, http.MethodPost, "/api/chats", token,
		CreateChatRequest{Name: "pair", ParticipantIDs: []int64{bob.ID}})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", rr.Code, rr.Body.String())
	}
	var created Chat
	json.NewDecoder(rr.Body).Decode(&created)

	rr = s.request(t, http.MethodGet, "/api/chats", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rr.Code)
	}
	var summaries []Summary
	json.NewDecoder(rr.Body).Decode(&summaries)
	if len(summaries) != 1 || summaries[0].ID != created.ID {
		t.Fatalf("unexpected summaries: %+v", summaries)
	}
	if len(summaries[0].Participants) != 2 {
		t.Errorf("expected both members in the summary, got %+v", summaries[0].Participants)
	}

	rr = s.request(t, http.MethodGet, fmt.Sprintf("/api/chats/%d", created.ID), token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("detail status = %d, want 200", rr.Code)
	}

	rr = s.request(t, http.MethodGet, "/api/chats/424242", token, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing chat status = %d, want 404", rr.Code)
	}
}
