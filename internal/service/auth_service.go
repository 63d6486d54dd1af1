package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"tasktrack/internal/clock"
	"tasktrack/internal/domain"
	"tasktrack/internal/repository"
	"tasktrack/internal/session"
)

// AuthService binds opaque bearer tokens to user identities. Tokens
// live in the injected session store for the process lifetime; a user
// may hold several concurrent tokens.
type AuthService interface {
	Register(ctx context.Context, name, email string) (*domain.User, string, error)
	Login(ctx context.Context, email string) (*domain.User, string, error)
	// Authenticate resolves a token to its user. An unknown or empty
	// token resolves to (nil, nil); callers decide whether to reject.
	Authenticate(ctx context.Context, token string) (*domain.User, error)
	Logout(token string)
}

type authService struct {
	users    repository.UserRepository
	sessions *session.Store
	clock    clock.Clock
}

func NewAuthService(users repository.UserRepository, sessions *session.Store, clk clock.Clock) AuthService {
	return &authService{
		users:    users,
		sessions: sessions,
		clock:    clk,
	}
}

func (s *authService) Register(ctx context.Context, name, email string) (*domain.User, string, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return nil, "", ErrNameRequired
	}
	if email == "" {
		return nil, "", ErrEmailRequired
	}

	user := &domain.User{
		Name:  name,
		Email: email,
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, "", ErrUserExists
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token := s.mintToken()
	s.sessions.Put(token, user.ID)
	return user, token, nil
}

func (s *authService) Login(ctx context.Context, email string) (*domain.User, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, "", ErrUserNotFound
		}
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}

	token := s.mintToken()
	s.sessions.Put(token, user.ID)
	return user, token, nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, nil
	}
	userID, ok := s.sessions.Get(token)
	if !ok {
		return nil, nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		// Stale session: the bound user no longer exists.
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session user: %w", err)
	}
	return user, nil
}

func (s *authService) Logout(token string) {
	s.sessions.Delete(token)
}

// mintToken produces an unguessable session token: a v4 UUID (122 bits
// from crypto/rand) joined with a base36 timestamp so tokens minted in
// the same process never collide.
func (s *authService) mintToken() string {
	return uuid.NewString() + "." + strconv.FormatInt(s.clock.Now().UnixNano(), 36)
}
