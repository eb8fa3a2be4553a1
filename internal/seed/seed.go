package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"chatsync/internal/chat"
	"chatsync/internal/user"
)

// demoContacts are created on demand and shared between accounts, so two new
// users end up talking to the same Raina.
var demoContacts = []string{"Raina", "Aadhya", "Zaina", "Deeva"}

// Seeder gives a brand-new account a handful of chats with starter messages
// so the UI is not empty on first login.
type Seeder struct {
	users *user.Repository
	chats *chat.Repository
	log   *logrus.Logger
}

func New(users *user.Repository, chats *chat.Repository, log *logrus.Logger) *Seeder {
	return &Seeder{users: users, chats: chats, log: log}
}

func (s *Seeder) SeedNewUser(ctx context.Context, u *user.User) error {
	for _, name := range demoContacts {
		if name == u.Username {
			continue
		}

		contact, err := s.users.GetByUsername(ctx, name)
		if errors.Is(err, user.ErrNotFound) {
			contact, err = s.users.Create(ctx, name)
		}
		if err != nil {
			return err
		}

		chatID, err := s.chats.CreateChat(ctx, name)
		if err != nil {
			return err
		}
		if err := s.chats.AddParticipant(ctx, chatID, u.ID); err != nil {
			return err
		}
		if err := s.chats.AddParticipant(ctx, chatID, contact.ID); err != nil {
			return err
		}

		if _, err := s.chats.InsertMessage(ctx, chatID, contact.ID, fmt.Sprintf("Hi %s!", u.Username)); err != nil {
			return err
		}
		if _, err := s.chats.InsertMessage(ctx, chatID, u.ID, "Hello!"); err != nil {
			return err
		}
	}

	s.log.WithField("username", u.Username).Debug("seeded demo chats")
	return nil
}
