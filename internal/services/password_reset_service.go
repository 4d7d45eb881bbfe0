package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"packshop/internal/models"
	"packshop/internal/repository"
)

const DefaultResetTTL = 30 * time.Minute

// EventRecorder receives the outcome of password operations, for metrics.
type EventRecorder interface {
	PasswordEvent(operation string, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) PasswordEvent(string, string) {}

type ResetRequestResult struct {
	Accepted bool `json:"accepted"`
}

type PasswordResetDeps struct {
	Users    repository.UserRepository
	Resets   repository.PasswordResetRepository
	Hasher   PasswordHasher
	Mailer   EmailSender
	Composer *ResetEmailComposer
	TTL      time.Duration
	Logger   *zap.Logger
	Events   EventRecorder
}

// PasswordResetService runs the forgot, reset and change password flows.
type PasswordResetService struct {
	users    repository.UserRepository
	resets   repository.PasswordResetRepository
	hasher   PasswordHasher
	mailer   EmailSender
	composer *ResetEmailComposer
	ttl      time.Duration
	log      *zap.Logger
	events   EventRecorder
	now      func() time.Time

	// issueLatency is a moving average, in nanoseconds, of how long a
	// successful issue-and-send takes. Unknown emails wait that long.
	issueLatency atomic.Int64
	since        func(time.Time) time.Duration
	wait         func(context.Context, time.Duration)
}

func NewPasswordResetService(deps PasswordResetDeps) *PasswordResetService {
	if deps.Users == nil {
		panic("nil user repository")
	}
	if deps.Resets == nil {
		panic("nil reset token repository")
	}
	if deps.Hasher == nil {
		panic("nil password hasher")
	}
	if deps.Mailer == nil {
		panic("nil email sender")
	}
	if deps.Composer == nil {
		panic("nil reset email composer")
	}
	s := &PasswordResetService{
		users:    deps.Users,
		resets:   deps.Resets,
		hasher:   deps.Hasher,
		mailer:   deps.Mailer,
		composer: deps.Composer,
		ttl:      deps.TTL,
		log:      deps.Logger,
		events:   deps.Events,
		now:      func() time.Time { return time.Now().UTC() },
		since:    time.Since,
		wait:     waitContext,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultResetTTL
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.events == nil {
		s.events = noopRecorder{}
	}
	return s
}

// RequestReset issues a new reset token for the account behind email and
// mails it. The result is the same whether or not the account exists.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) (ResetRequestResult, error) {
	accepted := ResetRequestResult{Accepted: true}
	start := time.Now()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.events.PasswordEvent("request_reset", "unknown_email")
			s.wait(ctx, time.Duration(s.issueLatency.Load())-s.since(start))
			return accepted, nil
		}
		s.events.PasswordEvent("request_reset", "error")
		return ResetRequestResult{}, dependencyError("Could not process the request", err)
	}

	token, tokenHash, err := GenerateResetToken()
	if err != nil {
		return ResetRequestResult{}, dependencyError("Could not process the request", err)
	}
	record := &models.PasswordResetToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: tokenHash,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.resets.Replace(ctx, record); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Deleted between lookup and issue.
			s.events.PasswordEvent("request_reset", "unknown_email")
			s.wait(ctx, time.Duration(s.issueLatency.Load())-s.since(start))
			return accepted, nil
		}
		s.events.PasswordEvent("request_reset", "error")
		return ResetRequestResult{}, dependencyError("Could not process the request", err)
	}

	msg, err := s.composer.Compose(user.Email, user.Name, token, s.ttl)
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.log.Error("Failed to send password reset email", zap.String("user_id", user.ID), zap.Error(err))
		s.discardToken(ctx, record.ID)
		s.events.PasswordEvent("request_reset", "send_failed")
		return ResetRequestResult{}, dependencyError("Could not send the reset email, please try again", err)
	}

	s.recordIssueLatency(s.since(start))
	s.log.Info("Password reset requested", zap.String("user_id", user.ID))
	s.events.PasswordEvent("request_reset", "issued")
	return accepted, nil
}

func (s *PasswordResetService) recordIssueLatency(d time.Duration) {
	for {
		prev := s.issueLatency.Load()
		next := int64(d)
		if prev != 0 {
			next = prev + (int64(d)-prev)/8
		}
		if s.issueLatency.CompareAndSwap(prev, next) {
			return
		}
	}
}

func waitContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// discardToken removes a token whose email never left, so no unreachable
// token stays active.
func (s *PasswordResetService) discardToken(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.resets.DeleteByID(ctx, id); err != nil {
		s.log.Warn("Failed to discard undelivered reset token", zap.String("token_id", id), zap.Error(err))
	}
}

// ConfirmReset sets a new password using a reset token. A token can be
// consumed once.
func (s *PasswordResetService) ConfirmReset(ctx context.Context, token string, newPassword string) error {
	err := s.confirmReset(ctx, token, newPassword)
	s.events.PasswordEvent("confirm_reset", outcomeOf(err))
	return err
}

func (s *PasswordResetService) confirmReset(ctx context.Context, token string, newPassword string) error {
	record, user, err := s.resets.GetByTokenHash(ctx, HashResetToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrResetTokenNotFound) {
			return ErrTokenNotFound
		}
		return dependencyError("Could not reset the password", err)
	}

	now := s.now()
	if record.Used {
		return ErrTokenAlreadyUsed
	}
	if record.IsExpired(now) {
		return ErrTokenExpired
	}
	if res := CheckPasswordPolicy(newPassword); !res.OK {
		return policyError(res.Reasons)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return dependencyError("Could not reset the password", err)
	}

	if err := s.resets.Consume(ctx, record.ID, user.ID, hash, now); err != nil {
		switch {
		case errors.Is(err, repository.ErrResetTokenUsed):
			return ErrTokenAlreadyUsed
		case errors.Is(err, repository.ErrUserNotFound):
			return ErrTokenNotFound
		default:
			return dependencyError("Could not reset the password", err)
		}
	}

	s.log.Info("Password reset completed", zap.String("user_id", user.ID))
	return nil
}

// ChangePassword replaces the password of an authenticated user.
func (s *PasswordResetService) ChangePassword(ctx context.Context, userID string, currentPassword string, newPassword string) error {
	err := s.changePassword(ctx, userID, currentPassword, newPassword)
	s.events.PasswordEvent("change_password", outcomeOf(err))
	return err
}

func (s *PasswordResetService) changePassword(ctx context.Context, userID string, currentPassword string, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUnauthorized
		}
		return dependencyError("Could not change the password", err)
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	if s.hasher.Verify(newPassword, user.PasswordHash) {
		return ErrSamePassword
	}
	if res := CheckPasswordPolicy(newPassword); !res.OK {
		return policyError(res.Reasons)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return dependencyError("Could not change the password", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, false); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUnauthorized
		}
		return dependencyError("Could not change the password", err)
	}

	s.log.Info("Password changed", zap.String("user_id", user.ID))
	return nil
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "error"
}
