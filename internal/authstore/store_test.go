package authstore

import (
	"context"
	"testing"
	"time"

	"admin-console/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	_, err := s.Load(ctx, "sid")
	assert.ErrorIs(t, err, ErrNotFound)

	creds := &models.Credentials{AccessToken: "tok", User: models.AdminProfile{Email: "a@example.com", Role: models.RoleAdmin}}
	require.NoError(t, s.Save(ctx, "sid", creds))

	got, err := s.Load(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, *creds, *got)
	got.AccessToken = "mutated"

	again, err := s.Load(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, "tok", again.AccessToken)

	require.NoError(t, s.Clear(ctx, "sid"))
	_, err = s.Load(ctx, "sid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_RejectsEmptyToken(t *testing.T) {
	s := NewMemoryStore(0)
	assert.Error(t, s.Save(context.Background(), "sid", &models.Credentials{}))
	assert.Error(t, s.Save(context.Background(), "sid", nil))
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore(time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "sid", &models.Credentials{AccessToken: "tok"}))
	now = now.Add(59 * time.Minute)
	_, err := s.Load(ctx, "sid")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.Load(ctx, "sid")
	assert.ErrorIs(t, err, ErrNotFound)
}
