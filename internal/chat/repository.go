package chat

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"chatsync/internal/db"
)

type Repository struct {
	db *db.Database
}

func NewRepository(database *db.Database) *Repository {
	return &Repository{db: database}
}

func (r *Repository) CreateChat(ctx context.Context, name string) (int64, error) {
	var id int64
	query := r.db.Rebind("INSERT INTO chats (name) VALUES (?) RETURNING id")
	if err := r.db.Conn.QueryRowContext(ctx, query, name).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Repository) GetChat(ctx context.Context, chatID int64) (*Chat, error) {
	c := &Chat{}
	query := r.db.Rebind("SELECT id, name FROM chats WHERE id = ?")
	err := r.db.Conn.QueryRowContext(ctx, query, chatID).Scan(&c.ID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Repository) AddParticipant(ctx context.Context, chatID, userID int64) error {
	query := r.db.Rebind("INSERT INTO chat_participants (chat_id, user_id) VALUES (?, ?)")
	_, err := r.db.Conn.ExecContext(ctx, query, chatID, userID)
	return err
}

func (r *Repository) IsParticipant(ctx context.Context, chatID, userID int64) (bool, error) {
	var exists bool
	query := r.db.Rebind("SELECT EXISTS(SELECT 1 FROM chat_participants WHERE chat_id = ? AND user_id = ?)")
	err := r.db.Conn.QueryRowContext(ctx, query, chatID, userID).Scan(&exists)
	return exists, err
}

func (r *Repository) ChatsForUser(ctx context.Context, userID int64) ([]Chat, error) {
	query := r.db.Rebind(`
		SELECT c.id, c.name
		FROM chats c
		JOIN chat_participants p ON c.id = p.chat_id
		WHERE p.user_id = ?
		ORDER BY c.id
	`)
	rows, err := r.db.Conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

func (r *Repository) Participants(ctx context.Context, chatID int64) ([]Participant, error) {
	query := r.db.Rebind(`
		SELECT u.id, u.username
		FROM users u
		JOIN chat_participants p ON u.id = p.user_id
		WHERE p.chat_id = ?
		ORDER BY u.id
	`)
	rows, err := r.db.Conn.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.ID, &p.Username); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// ParticipantsForChats fetches the participant lists for a set of chats in
// one query.
func (r *Repository) ParticipantsForChats(ctx context.Context, chatIDs []int64) (map[int64][]Participant, error) {
	result := make(map[int64][]Participant)
	if len(chatIDs) == 0 {
		return result, nil
	}

	query := r.db.Rebind(`
		SELECT p.chat_id, u.id, u.username
		FROM chat_participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.chat_id IN (` + placeholders(len(chatIDs)) + `)
		ORDER BY p.chat_id, u.id
	`)
	rows, err := r.db.Conn.QueryContext(ctx, query, int64Args(chatIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var chatID int64
		var p Participant
		if err := rows.Scan(&chatID, &p.ID, &p.Username); err != nil {
			return nil, err
		}
		result[chatID] = append(result[chatID], p)
	}
	return result, rows.Err()
}

// InsertMessage appends to the chat log. The database assigns the id, so
// assignment is atomic and monotonic under concurrent appends; the row is
// visible to readers as soon as this returns.
func (r *Repository) InsertMessage(ctx context.Context, chatID, senderID int64, body string) (*Message, error) {
	m := &Message{ChatID: chatID, SenderID: senderID, Body: body, CreatedAt: time.Now().UTC()}
	query := r.db.Rebind("INSERT INTO messages (chat_id, sender_id, body, created_at) VALUES (?, ?, ?, ?) RETURNING id")
	if err := r.db.Conn.QueryRowContext(ctx, query, chatID, senderID, body, m.CreatedAt).Scan(&m.ID); err != nil {
		return nil, err
	}
	return m, nil
}

// MessagesBefore returns up to limit messages with id strictly below the
// cursor (or the most recent ones when before is 0), ascending by id.
func (r *Repository) MessagesBefore(ctx context.Context, chatID, before int64, limit int) ([]Message, error) {
	query := `
		SELECT id, chat_id, sender_id, body, created_at
		FROM messages
		WHERE chat_id = ?`
	args := []interface{}{chatID}
	if before > 0 {
		query += " AND id < ?"
		args = append(args, before)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Conn.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Fetched newest-first for the LIMIT; flip to ascending for display.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// LastMessage returns the most recent message of a chat, or nil when the
// chat has none.
func (r *Repository) LastMessage(ctx context.Context, chatID int64) (*Message, error) {
	m := &Message{}
	query := r.db.Rebind(`
		SELECT id, chat_id, sender_id, body, created_at
		FROM messages
		WHERE chat_id = ?
		ORDER BY id DESC
		LIMIT 1
	`)
	err := r.db.Conn.QueryRowContext(ctx, query, chatID).Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Body, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// LastMessages resolves the most recent message for every chat in the set
// with a single aggregate query instead of one lookup per chat.
func (r *Repository) LastMessages(ctx context.Context, chatIDs []int64) (map[int64]Message, error) {
	result := make(map[int64]Message)
	if len(chatIDs) == 0 {
		return result, nil
	}

	query := r.db.Rebind(`
		SELECT m.id, m.chat_id, m.sender_id, m.body, m.created_at
		FROM messages m
		JOIN (
			SELECT chat_id, MAX(id) AS max_id
			FROM messages
			WHERE chat_id IN (` + placeholders(len(chatIDs)) + `)
			GROUP BY chat_id
		) latest ON m.chat_id = latest.chat_id AND m.id = latest.max_id
	`)
	rows, err := r.db.Conn.QueryContext(ctx, query, int64Args(chatIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		result[m.ChatID] = m
	}
	return result, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(ids []int64) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
