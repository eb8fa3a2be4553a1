// Package timeline is the client-side synchronization core for one open chat
// view: it pages history backwards with a keyset cursor, serializes
// scroll-triggered backfills, and reconciles optimistically displayed sends
// with the server's authoritative copies.
package timeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatsync/internal/chat"
)

// ErrEmptyDraft is returned by Send for a body that is empty after trimming;
// no entry is appended in that case.
var ErrEmptyDraft = errors.New("message text required")

// Pager loads one keyset page of history. before == 0 means "from the
// newest".
type Pager interface {
	Page(ctx context.Context, chatID, before int64, limit int) (*chat.Page, error)
}

// Sender performs the authoritative append.
type Sender interface {
	Send(ctx context.Context, chatID int64, body string) (*chat.Message, error)
}

// State is the backfill state of the view.
type State int

const (
	// StateIdle: no request in flight, more history may remain.
	StateIdle State = iota
	// StateLoading: exactly one request is in flight.
	StateLoading
	// StateExhausted: the oldest message has been loaded; sticky until the
	// view is re-opened.
	StateExhausted
)

// Status tags a displayed entry.
type Status int

const (
	// StatusConfirmed entries carry an authoritative server message.
	StatusConfirmed Status = iota
	// StatusPending entries are local drafts whose append is in flight.
	StatusPending
	// StatusFailed entries are drafts whose append failed; they stay in
	// place, marked, and are never resent automatically.
	StatusFailed
)

// Entry is one element of the displayed sequence. Confirmed entries hold the
// server message; pending and failed entries hold a locally synthesized
// preview keyed by LocalID, a UUID from a namespace server ids never occupy.
type Entry struct {
	Status  Status
	LocalID string
	Message chat.Message
}

// Timeline holds the ordered view of one open chat. All methods are safe for
// concurrent use; the single-flight rule means a scroll trigger that races a
// running backfill is simply a no-op.
type Timeline struct {
	chatID   int64
	senderID int64
	pager    Pager
	sender   Sender
	refresh  func() // chat-list refresh hook, invoked after a confirmed send

	mu        sync.Mutex
	state     State
	opened    bool
	cursor    int64 // 0 once exhausted or before the first load
	entries   []Entry
	scrollTop int // index of the topmost visible entry
	pageSize  int
}

// New builds a timeline for one chat view. refresh may be nil.
func New(chatID, senderID int64, pager Pager, sender Sender, refresh func()) *Timeline {
	return &Timeline{
		chatID:   chatID,
		senderID: senderID,
		pager:    pager,
		sender:   sender,
		refresh:  refresh,
		pageSize: chat.DefaultPageSize,
	}
}

// Open resets the view and performs the initial, cursorless load. Entering a
// chat always starts from the newest page; scroll-triggered backfill is only
// possible after Open has completed.
func (t *Timeline) Open(ctx context.Context) error {
	t.mu.Lock()
	t.entries = nil
	t.cursor = 0
	t.scrollTop = 0
	t.opened = false
	t.state = StateLoading
	t.mu.Unlock()

	page, err := t.pager.Page(ctx, t.chatID, 0, t.pageSize)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.state = StateIdle
		return err
	}

	t.entries = confirmed(page.Messages)
	t.opened = true
	if page.NextCursor == nil {
		t.state = StateExhausted
	} else {
		t.cursor = *page.NextCursor
		t.state = StateIdle
	}
	return nil
}

// LoadOlder is the scroll-proximity trigger. It is a no-op unless the view
// is idle with history remaining, which guarantees at most one backfill in
// flight per view. It reports whether messages were prepended. On failure
// the view returns to idle with no data change; the user retries by
// scrolling again.
func (t *Timeline) LoadOlder(ctx context.Context) (bool, error) {
	t.mu.Lock()
	if !t.opened || t.state != StateIdle || t.cursor == 0 {
		t.mu.Unlock()
		return false, nil
	}
	t.state = StateLoading
	before := t.cursor
	t.mu.Unlock()

	page, err := t.pager.Page(ctx, t.chatID, before, t.pageSize)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.state = StateIdle
		return false, err
	}
	if len(page.Messages) == 0 {
		t.state = StateExhausted
		return false, nil
	}

	older := confirmed(page.Messages)
	t.entries = append(older, t.entries...)
	// Shift the anchor by the prepended count so the entries the user was
	// looking at stay in place.
	t.scrollTop += len(older)

	if page.NextCursor == nil {
		t.state = StateExhausted
		t.cursor = 0
	} else {
		t.cursor = *page.NextCursor
		t.state = StateIdle
	}
	return true, nil
}

// Send appends a pending entry immediately, issues the authoritative append,
// and then either replaces the entry in place with the server message or
// marks it failed in place. A failed entry is never dropped and never
// retried automatically.
func (t *Timeline) Send(ctx context.Context, body string) (*chat.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyDraft
	}

	localID := uuid.NewString()
	t.mu.Lock()
	t.entries = append(t.entries, Entry{
		Status:  StatusPending,
		LocalID: localID,
		Message: chat.Message{
			ChatID:    t.chatID,
			SenderID:  t.senderID,
			Body:      body,
			CreatedAt: time.Now(),
		},
	})
	t.mu.Unlock()

	msg, err := t.sender.Send(ctx, t.chatID, body)

	t.mu.Lock()
	i := t.indexOf(localID)
	if err != nil {
		if i >= 0 {
			t.entries[i].Status = StatusFailed
		}
		t.mu.Unlock()
		return nil, err
	}
	if i >= 0 {
		t.entries[i] = Entry{Status: StatusConfirmed, Message: *msg}
	}
	t.mu.Unlock()

	// The chat list's last-message preview is stale now.
	if t.refresh != nil {
		t.refresh()
	}
	return msg, nil
}

// Entries returns a snapshot of the displayed sequence, oldest first.
func (t *Timeline) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Timeline) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// ScrollTop is the index of the topmost visible entry. LoadOlder adjusts it
// by the prepended count, so the viewport does not jump after a backfill.
func (t *Timeline) ScrollTop() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scrollTop
}

func (t *Timeline) SetScrollTop(i int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scrollTop = i
}

func (t *Timeline) indexOf(localID string) int {
	for i := range t.entries {
		if t.entries[i].LocalID == localID {
			return i
		}
	}
	return -1
}

func confirmed(messages []chat.Message) []Entry {
	entries := make([]Entry, len(messages))
	for i, m := range messages {
		entries[i] = Entry{Status: StatusConfirmed, Message: m}
	}
	return entries
}
