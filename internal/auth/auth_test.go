package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/krishanu7/subway-trader-backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return NewService(mem, NewTokens("test-secret", time.Hour), bcrypt.MinCost, zap.NewNop()), mem
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService(t)

	session, err := svc.Register(ctx, "  rider  ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "rider", session.Username)
	assert.NotEmpty(t, session.Token)
	assert.Zero(t, session.HighScore)

	p, err := mem.GetPlayer(ctx, "rider")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", p.PasswordHash, "password must be stored hashed")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte("secret1")))

	username, err := svc.Verify(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "rider", username)

	_, err = svc.Register(ctx, "rider", "another1")
	assert.ErrorIs(t, err, store.ErrUsernameTaken)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	cases := []struct {
		name, username, password, field string
	}{
		{"short username", "ab", "secret1", "username"},
		{"blank username", "   ", "secret1", "username"},
		{"short password", "rider", "12345", "password"},
		{"long password", "rider", string(make([]byte, 73)), "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.username, tc.password)
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, err := svc.Register(ctx, "rider", "secret1")
	require.NoError(t, err)

	session, err := svc.Login(ctx, "rider", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "rider", session.Username)

	_, err = svc.Login(ctx, "rider", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "", "")
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestTokens(t *testing.T) {
	tokens := NewTokens("k1", time.Minute)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return now }

	raw, exp, err := tokens.Issue("rider")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Minute), exp)

	username, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "rider", username)

	_, err = NewTokens("k2", time.Minute).Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong secret")

	now = now.Add(2 * time.Minute)
	_, err = tokens.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")

	_, err = tokens.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
