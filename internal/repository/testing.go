package repository

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"packshop/internal/models"
)

// FakeUserRepository is an in-memory UserRepository for tests.
type FakeUserRepository struct {
	Users       map[string]*models.User
	ReturnError bool
	lock        sync.Mutex
}

func NewFakeUserRepository(users ...*models.User) *FakeUserRepository {
	r := &FakeUserRepository{Users: make(map[string]*models.User)}
	for _, u := range users {
		cp := *u
		r.Users[u.ID] = &cp
	}
	return r
}

var errFake = errors.New("fake repository failure")

func (r *FakeUserRepository) Create(ctx context.Context, user *models.User) error {
	if r.ReturnError {
		return errFake
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, u := range r.Users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrEmailExists
		}
	}
	now := time.Now().UTC()
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt, user.UpdatedAt = now, now
	cp := *user
	r.Users[user.ID] = &cp
	return nil
}

func (r *FakeUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if r.ReturnError {
		return nil, errFake
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	u, ok := r.Users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *FakeUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if r.ReturnError {
		return nil, errFake
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, u := range r.Users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *FakeUserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, mustChange bool) error {
	if r.ReturnError {
		return errFake
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.setPasswordLocked(id, passwordHash, mustChange)
}

func (r *FakeUserRepository) setPasswordLocked(id string, passwordHash string, mustChange bool) error {
	u, ok := r.Users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.MustChangePassword = mustChange
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// FakePasswordResetRepository keeps reset tokens in memory and writes
// password changes through to the wrapped FakeUserRepository.
type FakePasswordResetRepository struct {
	Users       *FakeUserRepository
	Tokens      map[string]*models.PasswordResetToken
	ReturnError bool
	lock        sync.Mutex
}

func NewFakePasswordResetRepository(users *FakeUserRepository) *FakePasswordResetRepository {
	return &FakePasswordResetRepository{Users: users, Tokens: make(map[string]*models.PasswordResetToken)}
}

func (r *FakePasswordResetRepository) Replace(ctx context.Context, token *models.PasswordResetToken) error {
	if r.ReturnError {
		return errFake
	}
	if _, err := r.Users.GetByID(ctx, token.UserID); err != nil {
		return err
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	for id, t := range r.Tokens {
		if t.UserID == token.UserID {
			delete(r.Tokens, id)
		}
	}
	token.CreatedAt = time.Now().UTC()
	token.Used = false
	token.UsedAt = nil
	cp := *token
	r.Tokens[token.ID] = &cp
	return nil
}

func (r *FakePasswordResetRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordResetToken, *models.User, error) {
	if r.ReturnError {
		return nil, nil, errFake
	}
	r.lock.Lock()
	var found *models.PasswordResetToken
	for _, t := range r.Tokens {
		if t.TokenHash == tokenHash {
			cp := *t
			found = &cp
			break
		}
	}
	r.lock.Unlock()
	if found == nil {
		return nil, nil, ErrResetTokenNotFound
	}
	u, err := r.Users.GetByID(ctx, found.UserID)
	if err != nil {
		return nil, nil, ErrResetTokenNotFound
	}
	return found, u, nil
}

func (r *FakePasswordResetRepository) Consume(ctx context.Context, tokenID string, userID string, passwordHash string, usedAt time.Time) error {
	if r.ReturnError {
		return errFake
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	t, ok := r.Tokens[tokenID]
	if !ok || t.Used {
		return ErrResetTokenUsed
	}

	r.Users.lock.Lock()
	defer r.Users.lock.Unlock()
	if err := r.Users.setPasswordLocked(userID, passwordHash, false); err != nil {
		return err
	}
	t.Used = true
	t.UsedAt = &usedAt
	return nil
}

func (r *FakePasswordResetRepository) DeleteByID(ctx context.Context, id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.Tokens, id)
	return nil
}

// ActiveTokens returns the unused, unexpired tokens of a user.
func (r *FakePasswordResetRepository) ActiveTokens(userID string, now time.Time) []*models.PasswordResetToken {
	r.lock.Lock()
	defer r.lock.Unlock()
	var active []*models.PasswordResetToken
	for _, t := range r.Tokens {
		if t.UserID == userID && !t.Used && !t.IsExpired(now) {
			cp := *t
			active = append(active, &cp)
		}
	}
	return active
}
