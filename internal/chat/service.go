package chat

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyBody      = errors.New("message body required")
	ErrNameRequired   = errors.New("chat name required")
	ErrChatNotFound   = errors.New("chat not found")
	ErrNotParticipant = errors.New("not a participant of this chat")
)

const (
	// DefaultPageSize is used when the caller does not ask for a limit.
	DefaultPageSize = 30
	// MaxPageSize is the hard ceiling; larger requests are clamped, not
	// rejected.
	MaxPageSize = 100
)

type Service struct {
	repo *Repository
	log  *logrus.Logger
}

func NewService(repo *Repository, log *logrus.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create establishes a chat with the given members.
func (s *Service) Create(ctx context.Context, name string, memberIDs []int64) (*Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	id, err := s.repo.CreateChat(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, userID := range memberIDs {
		if err := s.repo.AddParticipant(ctx, id, userID); err != nil {
			return nil, err
		}
	}
	return &Chat{ID: id, Name: name}, nil
}

// Send appends a message to the chat log. The body must be non-empty after
// trimming and the sender must be a participant of the chat.
func (s *Service) Send(ctx context.Context, chatID, senderID int64, body string) (*Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	if err := s.requireParticipant(ctx, chatID, senderID); err != nil {
		return nil, err
	}
	return s.repo.InsertMessage(ctx, chatID, senderID, body)
}

// History returns one keyset page: the `limit` most recent messages strictly
// below `before` (or overall when before is 0), ascending. NextCursor is set
// only when a full page came back, so a short page signals exhaustion right
// away.
func (s *Service) History(ctx context.Context, chatID, readerID, before int64, limit int) (*Page, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if err := s.requireParticipant(ctx, chatID, readerID); err != nil {
		return nil, err
	}

	messages, err := s.repo.MessagesBefore(ctx, chatID, before, limit)
	if err != nil {
		return nil, err
	}

	page := &Page{Messages: messages}
	if len(messages) == limit {
		oldest := messages[0].ID
		page.NextCursor = &oldest
	}
	return page, nil
}

// Detail returns a chat with its participant list.
func (s *Service) Detail(ctx context.Context, chatID, readerID int64) (*Detail, error) {
	c, err := s.repo.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := s.requireParticipant(ctx, chatID, readerID); err != nil {
		return nil, err
	}
	participants, err := s.repo.Participants(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return &Detail{ID: c.ID, Name: c.Name, Participants: participants}, nil
}

// Summaries derives the sidebar for a user: every chat they participate in,
// annotated with participants and last message, most recently active first.
// Chats with no messages sort after every chat that has one.
func (s *Service) Summaries(ctx context.Context, userID int64) ([]Summary, error) {
	chats, err := s.repo.ChatsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return []Summary{}, nil
	}

	chatIDs := make([]int64, len(chats))
	for i, c := range chats {
		chatIDs[i] = c.ID
	}

	participants, err := s.repo.ParticipantsForChats(ctx, chatIDs)
	if err != nil {
		return nil, err
	}
	lasts, err := s.repo.LastMessages(ctx, chatIDs)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(chats))
	lastIDs := make(map[int64]int64, len(lasts))
	for _, c := range chats {
		summary := Summary{ID: c.ID, Name: c.Name, Participants: participants[c.ID]}
		if last, ok := lasts[c.ID]; ok {
			body := last.Body
			at := last.CreatedAt
			summary.LastMessage = &body
			summary.LastTime = &at
			lastIDs[c.ID] = last.ID
		}
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		switch {
		case a.LastTime == nil && b.LastTime == nil:
			return false
		case a.LastTime == nil:
			return false
		case b.LastTime == nil:
			return true
		case !a.LastTime.Equal(*b.LastTime):
			return a.LastTime.After(*b.LastTime)
		default:
			// Same wall-clock time; the message id is the tiebreaker.
			return lastIDs[a.ID] > lastIDs[b.ID]
		}
	})
	return summaries, nil
}

func (s *Service) requireParticipant(ctx context.Context, chatID, userID int64) error {
	ok, err := s.repo.IsParticipant(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !ok {
		// Distinguish a missing chat from a membership failure.
		if _, err := s.repo.GetChat(ctx, chatID); err != nil {
			return err
		}
		return ErrNotParticipant
	}
	return nil
}
