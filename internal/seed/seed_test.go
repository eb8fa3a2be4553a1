package seed

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"chatsync/internal/chat"
	"chatsync/internal/db"
	"chatsync/internal/user"
)

func newSeeder(t *testing.T) (*Seeder, *user.Repository, *chat.Repository) {
	t.Helper()
	database, err := db.New("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("migration failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	users := user.NewRepository(database)
	chats := chat.NewRepository(database)
	return New(users, chats, logger), users, chats
}

func TestSeedNewUser(t *testing.T) {
	seeder, users, chats := newSeeder(t)
	ctx := context.Background()

	u, err := users.Create(ctx, "newbie")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := seeder.SeedNewUser(ctx, u); err != nil {
		t.Fatalf("SeedNewUser: %v", err)
	}

	seeded, err := chats.ChatsForUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("ChatsForUser: %v", err)
	}
	if len(seeded) != len(demoContacts) {
		t.Fatalf("seeded %d chats, want %d", len(seeded), len(demoContacts))
	}

	for _, c := range seeded {
		msgs, err := chats.MessagesBefore(ctx, c.ID, 0, 10)
		if err != nil {
			t.Fatalf("MessagesBefore: %v", err)
		}
		if len(msgs) != 2 {
			t.Errorf("chat %q has %d starter messages, want 2", c.Name, len(msgs))
		}
		parts, _ := chats.Participants(ctx, c.ID)
		if len(parts) != 2 {
			t.Errorf("chat %q has %d participants, want 2", c.Name, len(parts))
		}
	}
}

func TestSeedSkipsOwnUsername(t *testing.T) {
	seeder, users, chats := newSeeder(t)
	ctx := context.Background()

	u, _ := users.Create(ctx, demoContacts[0])
	if err := seeder.SeedNewUser(ctx, u); err != nil {
		t.Fatalf("SeedNewUser: %v", err)
	}

	seeded, _ := chats.ChatsForUser(ctx, u.ID)
	if len(seeded) != len(demoContacts)-1 {
		t.Errorf("seeded %d chats, want %d (no chat with yourself)", len(seeded), len(demoContacts)-1)
	}
}

func TestSeedReusesExistingContacts(t *testing.T) {
	seeder, users, _ := newSeeder(t)
	ctx := context.Background()

	a, _ := users.Create(ctx, "first")
	if err := seeder.SeedNewUser(ctx, a); err != nil {
		t.Fatalf("SeedNewUser: %v", err)
	}
	b, _ := users.Create(ctx, "second")
	if err := seeder.SeedNewUser(ctx, b); err != nil {
		t.Fatalf("SeedNewUser: %v", err)
	}

	// Both users talk to the one shared contact account.
	contact, err := users.GetByUsername(ctx, demoContacts[0])
	if err != nil {
		t.Fatalf("expected contact %q to exist once: %v", demoContacts[0], err)
	}
	if contact == nil || contact.Username != demoContacts[0] {
		t.Fatalf("unexpected contact: %+v", contact)
	}
}
