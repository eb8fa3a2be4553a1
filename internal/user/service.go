package user

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"chatsync/internal/session"
)

var ErrUsernameRequired = errors.New("username required")

// Seeder populates starter content for a freshly created account. Wired up
// in main so this package stays decoupled from the chat feature.
type Seeder interface {
	SeedNewUser(ctx context.Context, u *User) error
}

type Service struct {
	repo     *Repository
	sessions *session.Manager
	seeder   Seeder
	log      *logrus.Logger
}

func NewService(repo *Repository, sessions *session.Manager, seeder Seeder, log *logrus.Logger) *Service {
	return &Service{repo: repo, sessions: sessions, seeder: seeder, log: log}
}

// Login finds or creates the account for a username and issues a fresh
// session token. One token is live per user: logging in again anywhere
// invalidates the previous session.
func (s *Service) Login(ctx context.Context, username string) (*LoginResponse, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}

	u, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		u, err = s.repo.Create(ctx, username)
		if err != nil {
			return nil, err
		}
		s.log.WithField("username", username).Info("created user")

		if s.seeder != nil {
			// Starter content is best effort; a failed seed must not block
			// the login.
			if err := s.seeder.SeedNewUser(ctx, u); err != nil {
				s.log.WithError(err).WithField("username", username).Warn("demo seed failed")
			}
		}
	} else if err != nil {
		return nil, err
	}

	token, err := s.sessions.Issue(ctx, u.ID, u.Username)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{ID: u.ID, Username: u.Username, Token: token}, nil
}
