package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"admin-console/internal/authstore"
	"admin-console/internal/client"
	"admin-console/internal/encryption"
	"admin-console/internal/models"
)

const (
	credentialPrefix  = "admin_console:"
	tokenPurpose      = "admin_token"
	refreshPurpose    = "admin_refresh_token"
	credentialTimeout = 5 * time.Second
)

// CredentialCache is the Redis-backed authstore.Store. Tokens are sealed
// by the encryption manager before they reach Redis.
type CredentialCache struct {
	client    *client.RedisClient
	encryptor *encryption.EncryptionManager
	ttl       time.Duration
	logger    *zap.Logger
}

var _ authstore.Store = (*CredentialCache)(nil)

func NewCredentialCache(client *client.RedisClient, encryptor *encryption.EncryptionManager, ttl time.Duration, logger *zap.Logger) *CredentialCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialCache{client: client, encryptor: encryptor, ttl: ttl, logger: logger}
}

func credentialKey(sessionID, field string) string {
	return credentialPrefix + sessionID + ":" + field
}

type storedProfile struct {
	models.AdminProfile
	IssuedAt time.Time `json:"issued_at"`
}

func (c *CredentialCache) seal(ctx context.Context, value, purpose string) (string, error) {
	sealed, err := c.encryptor.EncryptField(ctx, value, purpose)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(sealed)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (c *CredentialCache) open(ctx context.Context, raw string) (string, error) {
	var sealed encryption.EncryptedData
	if err := json.Unmarshal([]byte(raw), &sealed); err != nil {
		return "", fmt.Errorf("%w: %v", encryption.ErrDecryptionFailed, err)
	}
	return c.encryptor.DecryptField(ctx, &sealed)
}

// Save writes token, optional refresh token and profile in one MULTI/EXEC.
func (c *CredentialCache) Save(ctx context.Context, sessionID string, creds *models.Credentials) error {
	if creds == nil || creds.AccessToken == "" {
		return errors.New("credentials without access token")
	}
	ctx, cancel := context.WithTimeout(ctx, credentialTimeout)
	defer cancel()

	token, err := c.seal(ctx, creds.AccessToken, tokenPurpose)
	if err != nil {
		return fmt.Errorf("seal access token: %w", err)
	}
	profile, err := json.Marshal(storedProfile{AdminProfile: creds.User, IssuedAt: creds.IssuedAt})
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	var refresh string
	if creds.RefreshToken != "" {
		if refresh, err = c.seal(ctx, creds.RefreshToken, refreshPurpose); err != nil {
			return fmt.Errorf("seal refresh token: %w", err)
		}
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, credentialKey(sessionID, authstore.KeyToken), token, c.ttl)
	pipe.Set(ctx, credentialKey(sessionID, authstore.KeyUser), profile, c.ttl)
	if refresh != "" {
		pipe.Set(ctx, credentialKey(sessionID, authstore.KeyRefreshToken), refresh, c.ttl)
	} else {
		pipe.Del(ctx, credentialKey(sessionID, authstore.KeyRefreshToken))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Error("Failed to save credentials", zap.String("session_id", sessionID), zap.Error(err))
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	c.logger.Debug("Credentials saved", zap.String("session_id", sessionID), zap.Duration("ttl", c.ttl))
	return nil
}

// Load returns ErrNotFound unless both token and profile are present.
func (c *CredentialCache) Load(ctx context.Context, sessionID string) (*models.Credentials, error) {
	ctx, cancel := context.WithTimeout(ctx, credentialTimeout)
	defer cancel()

	vals, err := c.client.MGet(ctx,
		credentialKey(sessionID, authstore.KeyToken),
		credentialKey(sessionID, authstore.KeyUser),
	)
	if errors.Is(err, client.ErrKeyNotFound) {
		return nil, authstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	token, err := c.open(ctx, vals[0])
	if err != nil {
		c.logger.Warn("Dropping undecryptable credentials", zap.String("session_id", sessionID), zap.Error(err))
		_ = c.Clear(ctx, sessionID)
		return nil, authstore.ErrNotFound
	}

	var profile storedProfile
	if err := json.Unmarshal([]byte(vals[1]), &profile); err != nil {
		_ = c.Clear(ctx, sessionID)
		return nil, authstore.ErrNotFound
	}

	creds := &models.Credentials{
		AccessToken: token,
		User:        profile.AdminProfile,
		IssuedAt:    profile.IssuedAt,
	}
	if raw, err := c.client.Get(ctx, credentialKey(sessionID, authstore.KeyRefreshToken)); err == nil {
		if refresh, err := c.open(ctx, raw); err == nil {
			creds.RefreshToken = refresh
		}
	}
	return creds, nil
}

func (c *CredentialCache) Clear(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, credentialTimeout)
	defer cancel()

	err := c.client.Del(ctx,
		credentialKey(sessionID, authstore.KeyToken),
		credentialKey(sessionID, authstore.KeyRefreshToken),
		credentialKey(sessionID, authstore.KeyUser),
	)
	if err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}

// TTL reports how long the session's credentials have left.
func (c *CredentialCache) TTL(ctx context.Context, sessionID string) (time.Duration, error) {
	return c.client.TTL(ctx, credentialKey(sessionID, authstore.KeyToken))
}
