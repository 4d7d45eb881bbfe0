package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"packshop/internal/models"
	"packshop/internal/repository"
)

// AccountService handles registration, login and session lookup.
type AccountService struct {
	users  repository.UserRepository
	hasher PasswordHasher
	tokens *TokenIssuer
	log    *zap.Logger
	// dummyHash is verified against when the email is unknown so login
	// takes the same time either way.
	dummyHash string
}

func NewAccountService(users repository.UserRepository, hasher PasswordHasher, tokens *TokenIssuer, log *zap.Logger) *AccountService {
	if users == nil {
		panic("nil user repository")
	}
	if hasher == nil {
		panic("nil password hasher")
	}
	if tokens == nil {
		panic("nil token issuer")
	}
	if log == nil {
		log = zap.NewNop()
	}
	dummy, err := hasher.Hash("dummy-password-for-timing")
	if err != nil {
		panic(err)
	}
	return &AccountService{users: users, hasher: hasher, tokens: tokens, log: log, dummyHash: dummy}
}

func (s *AccountService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	if res := CheckPasswordPolicy(req.Password); !res.OK {
		return nil, policyError(res.Reasons)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, dependencyError("Could not create the account", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrEmailTaken
		}
		return nil, dependencyError("Could not create the account", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, dependencyError("Could not create the account", err)
	}
	s.log.Info("User registered", zap.String("user_id", user.ID))
	return s.authResponse(token, user), nil
}

// Login never tells an unknown email apart from a wrong password.
func (s *AccountService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.hasher.Verify(req.Password, s.dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, dependencyError("Could not log in", err)
	}
	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, dependencyError("Could not log in", err)
	}
	return s.authResponse(token, user), nil
}

func (s *AccountService) authResponse(token string, user *models.User) *models.AuthResponse {
	return &models.AuthResponse{
		Token:     token,
		ExpiresIn: int64(s.tokens.TTL() / time.Second),
		User:      user,
	}
}

func (s *AccountService) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, dependencyError("Could not load the account", err)
	}
	return user, nil
}

// Authenticate verifies a session token and loads its user. Token errors are
// ErrSessionTokenInvalid or ErrSessionTokenExpired; a token for a deleted
// user gives ErrUnauthorized.
func (s *AccountService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	return s.Me(ctx, claims.ID)
}

// SetPassword is the operator path: it bypasses the current password check
// but not the policy.
func (s *AccountService) SetPassword(ctx context.Context, email string, password string, mustChange bool) (*models.User, error) {
	if res := CheckPasswordPolicy(password); !res.OK {
		return nil, policyError(res.Reasons)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, dependencyError("Could not load the account", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, dependencyError("Could not set the password", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, mustChange); err != nil {
		return nil, dependencyError("Could not set the password", err)
	}
	user.PasswordHash = hash
	user.MustChangePassword = mustChange
	s.log.Info("Password set by operator", zap.String("user_id", user.ID), zap.Bool("must_change_password", mustChange))
	return user, nil
}
