package auth

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/backoffice-api/internal/users"
	pkgAuth "github.com/angelmondragon/backoffice-api/pkg/auth"
	"github.com/angelmondragon/backoffice-api/pkg/auth/session"
	"github.com/angelmondragon/backoffice-api/pkg/config"
	"github.com/angelmondragon/backoffice-api/pkg/db/dbtest"
	"github.com/angelmondragon/backoffice-api/pkg/enums"
	pkgerrors "github.com/angelmondragon/backoffice-api/pkg/errors"
	"github.com/angelmondragon/backoffice-api/pkg/logger"
	"github.com/angelmondragon/backoffice-api/pkg/outbox"
	"github.com/angelmondragon/backoffice-api/pkg/outbox/payloads"
)

type fakeSessions struct {
	tokens  map[string]string
	owners  map[string]uuid.UUID
	revoked []uuid.UUID
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: map[string]string{}, owners: map[string]uuid.UUID{}}
}

func (f *fakeSessions) Generate(_ context.Context, userID uuid.UUID, accessID string) (string, error) {
	token := "refresh-" + accessID
	f.tokens[accessID] = token
	f.owners[accessID] = userID
	return token, nil
}

func (f *fakeSessions) Rotate(ctx context.Context, userID uuid.UUID, oldAccessID, provided string) (string, string, error) {
	if f.tokens[oldAccessID] == "" || f.tokens[oldAccessID] != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(f.tokens, oldAccessID)
	next := session.NewAccessID()
	token, _ := f.Generate(ctx, userID, next)
	return next, token, nil
}

func (f *fakeSessions) Revoke(_ context.Context, accessID string) error {
	delete(f.tokens, accessID)
	return nil
}

func (f *fakeSessions) RevokeAll(_ context.Context, userID uuid.UUID) error {
	f.revoked = append(f.revoked, userID)
	for id, owner := range f.owners {
		if owner == userID {
			delete(f.tokens, id)
		}
	}
	return nil
}

var (
	testJWT = config.JWTConfig{Secret: "test-secret", Issuer: "backoffice-test", ExpirationMinutes: 15, RefreshTokenTTLMinutes: 60}
	testPwd = config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}
)

type fixture struct {
	svc      Service
	users    *users.Repository
	outbox   *outbox.Repository
	sessions *fakeSessions
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.Open(t)
	userRepo := users.NewRepository(client.DB())
	outboxRepo := outbox.NewRepository(client.DB())
	sessions := newFakeSessions()
	svc, err := NewService(ServiceParams{
		Users:          userRepo,
		Tx:             client,
		Sessions:       sessions,
		Outbox:         outbox.NewService(outboxRepo, logger.Nop()),
		JWTConfig:      testJWT,
		PasswordConfig: testPwd,
		ResetTokenTTL:  time.Hour,
		Logger:         logger.Nop(),
	})
	require.NoError(t, err)
	return fixture{svc: svc, users: userRepo, outbox: outboxRepo, sessions: sessions}
}

func register(t *testing.T, f fixture, email string) *AuthResponse {
	t.Helper()
	resp, err := f.svc.Register(context.Background(), RegisterRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  "correct horse",
	}, enums.RoleUser)
	require.NoError(t, err)
	return resp
}

func TestRegisterIssuesTokenAndRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	resp := register(t, f, "Ada@Example.com")

	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, enums.RoleUser, resp.User.Role)
	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, "refresh-"+claims.ID, resp.RefreshToken)

	_, err = f.svc.Register(context.Background(), RegisterRequest{FirstName: "A", LastName: "B", Email: "ada@example.com", Password: "another pass"}, enums.RoleUser)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	register(t, f, "ada@example.com")

	resp, err := f.svc.Login(context.Background(), LoginRequest{Email: "ADA@example.com", Password: "correct horse"})
	require.NoError(t, err)
	require.NotNil(t, resp.User.LastLoginAt)

	_, err = f.svc.Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "wrong"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = f.svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "correct horse"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	f := newFixture(t)
	first := register(t, f, "ada@example.com")

	_, err := f.svc.Refresh(context.Background(), first.Token, "forged")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	second, err := f.svc.Refresh(context.Background(), first.Token, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)

	_, err = f.svc.Refresh(context.Background(), first.Token, first.RefreshToken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "old refresh token must be single use")

	require.NoError(t, f.svc.Logout(context.Background(), second.Token))
	_, err = f.svc.Refresh(context.Background(), second.Token, second.RefreshToken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := register(t, f, "ada@example.com")

	require.NoError(t, f.svc.ForgotPassword(ctx, "nobody@example.com"))
	require.NoError(t, f.svc.ForgotPassword(ctx, "ada@example.com"))

	rows, err := f.outbox.FetchUnpublished(10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventPasswordResetRequested, rows[0].EventType)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	var event payloads.PasswordResetRequestedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &event))
	require.NotEmpty(t, event.Token)

	stored, err := f.users.FindByID(ctx, reg.User.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetPasswordTokenHash)
	assert.NotEqual(t, event.Token, *stored.ResetPasswordTokenHash, "raw token must not be stored")

	err = f.svc.ResetPassword(ctx, ResetPasswordRequest{Token: "bogus", Password: "brand new pass"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.NoError(t, f.svc.ResetPassword(ctx, ResetPasswordRequest{Token: event.Token, Password: "brand new pass"}))
	assert.Equal(t, []uuid.UUID{reg.User.ID}, f.sessions.revoked)

	_, err = f.svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "brand new pass"})
	require.NoError(t, err)

	err = f.svc.ResetPassword(ctx, ResetPasswordRequest{Token: event.Token, Password: "third pass!!"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "token is single use")
}
