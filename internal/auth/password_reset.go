package auth

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/backoffice-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/backoffice-api/pkg/errors"
	"github.com/angelmondragon/backoffice-api/pkg/outbox"
	"github.com/angelmondragon/backoffice-api/pkg/outbox/payloads"
	"github.com/angelmondragon/backoffice-api/pkg/security"
)

// ForgotPassword stores a hashed reset token and queues its delivery. Unknown
// emails succeed silently so the endpoint does not reveal which accounts exist.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if s.logg != nil {
			s.logg.Info(ctx, "password reset requested for unknown email")
		}
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	token, hash, err := security.NewResetToken()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	expiresAt := s.now().Add(s.resetTTL)

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.users.WithTx(tx).SetResetToken(ctx, user.ID, hash, expiresAt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store reset token")
		}
		err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPasswordResetRequested,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Actor:         &outbox.ActorRef{UserID: user.ID, Role: user.Role},
			Data: payloads.PasswordResetRequestedEvent{
				UserID:    user.ID,
				Email:     user.Email,
				FirstName: user.FirstName,
				Token:     token,
				ExpiresAt: expiresAt,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit reset event")
		}
		return nil
	})
}

// ResetPassword swaps the password for the holder of a live reset token and
// signs out every existing session.
func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	user, err := s.users.FindByResetTokenHash(ctx, security.HashResetToken(req.Token), s.now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired reset token")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup reset token")
	}
	if user.ResetPasswordTokenHash == nil || !security.ResetTokenMatches(req.Token, *user.ResetPasswordTokenHash) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired reset token")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	if err := s.sessions.RevokeAll(ctx, user.ID); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithField(ctx, "user_id", user.ID.String()), "revoke sessions after reset failed", err)
	}
	return nil
}
