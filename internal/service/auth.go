package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/study-buddy/internal/apperror"
	"github.com/sakif/study-buddy/internal/auth"
	"github.com/sakif/study-buddy/internal/model"
	"github.com/sakif/study-buddy/internal/repository"
	"github.com/sakif/study-buddy/internal/state"
)

// AuthService signs users in and issues session tokens.
//
// There is no separate sign-up: the first email login creates the account
// and later logins must present the same password. GitHub login creates or
// links the account with the same email. Either way the user ends up with a
// stats record.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	ws        Workspace
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	ws Workspace,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		ws:        ws,
		logger:    logger,
	}
}

// AuthResult bundles the user and their token so the handler can set the
// cookie and respond in one step.
type AuthResult struct {
	User    *model.User
	Token   string
	Created bool // true when this login registered the account
}

// Login signs in with email and password, registering unknown emails.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "a valid email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	user, err := s.users.GetUserByID(ctx, email)
	created := false
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		user, err = s.register(ctx, email, password)
		if err != nil {
			return nil, err
		}
		created = true
	case err != nil:
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", email, err)
	default:
		if user.PasswordHash == "" {
			return nil, apperror.Unauthorized("this account signs in with GitHub")
		}
		if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
			if errors.Is(err, auth.ErrInvalidPassword) {
				return nil, apperror.Unauthorized("invalid email or password")
			}
			return nil, fmt.Errorf("service/auth: verifying password: %w", err)
		}
	}

	return s.finish(ctx, user, created, "password")
}

func (s *AuthService) register(ctx context.Context, email, password string) (*model.User, error) {
	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", strings.TrimPrefix(err.Error(), "auth: "))
	}

	user := &model.User{ID: email, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user %s: %w", email, err)
	}
	return user, nil
}

// LoginOrRegisterGitHub completes a GitHub OAuth login.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	email := strings.ToLower(ghUser.AccountEmail())
	user := &model.User{
		ID:       email,
		Email:    email,
		GitHubID: ghUser.ID,
		Login:    ghUser.Login,
	}
	if err := s.users.UpsertGitHub(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	return s.finish(ctx, user, false, "github")
}

// finish makes sure the user has stats and issues the token.
func (s *AuthService) finish(ctx context.Context, user *model.User, created bool, method string) (*AuthResult, error) {
	if _, _, err := s.ws.Dispatch(ctx, state.Login{UserID: user.ID}); err != nil {
		return nil, fmt.Errorf("service/auth: initialising stats for %s: %w", user.ID, err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user authenticated",
		slog.String("userID", user.ID),
		slog.String("method", method),
		slog.Bool("created", created),
	)

	return &AuthResult{User: user, Token: token, Created: created}, nil
}

// GetUserByID returns the account for email.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}
