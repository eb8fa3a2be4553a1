package chat

import "time"

type Chat struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Message is a row of the append-only per-chat log. IDs are assigned by the
// database at insert time and are globally monotonic; within a chat,
// ascending id order is chronological order.
type Message struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	SenderID  int64     `json:"sender_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Page is one keyset page of history. Messages are ascending by id;
// NextCursor is the oldest id in the page when more history remains, nil
// once the log is exhausted. Passing it back as `before` resumes strictly
// below that point.
type Page struct {
	Messages   []Message `json:"messages"`
	NextCursor *int64    `json:"nextCursor"`
}

type Participant struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Summary is the derived sidebar entry for one chat: participants plus a
// preview of the most recent message. It is recomputed per request, never
// stored.
type Summary struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Participants []Participant `json:"participants"`
	LastMessage  *string       `json:"lastMessage"`
	LastTime     *time.Time    `json:"lastTime"`
}

// Detail is the single-chat view: the chat plus its participant list.
type Detail struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	Participants []Participant `json:"participants"`
}
