package encryption

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"admin-console/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

var (
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrDecryptionFailed = errors.New("decryption failed")
)

// KMSAPI is the subset of the KMS client used for envelope encryption.
type KMSAPI interface {
	GenerateDataKey(ctx context.Context, params *kms.GenerateDataKeyInput, optFns ...func(*kms.Options)) (*kms.GenerateDataKeyOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// EncryptedData is a sealed value plus the data key that sealed it,
// itself encrypted by KMS (or base64 only when KMS is disabled).
type EncryptedData struct {
	EncryptedValue string    `json:"encrypted_value"`
	EncryptedDEK   string    `json:"encrypted_dek"`
	KeyID          string    `json:"key_id"`
	Purpose        string    `json:"purpose"`
	Version        string    `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
}

type EncryptionManager struct {
	kmsClient KMSAPI
	config    config.KMSConfig
	logger    *zap.Logger
	keyCache  *lru.Cache[string, []byte] // encrypted DEK -> plaintext DEK, KMS keys only
}

// keyCacheSize bounds how many unwrapped KMS data keys stay in memory.
const keyCacheSize = 1024

type DataKey struct {
	Plaintext  []byte
	Ciphertext []byte
	KeyID      string
}

func NewEncryptionManager(cfg config.KMSConfig, kmsClient KMSAPI, logger *zap.Logger) *EncryptionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, _ := lru.New[string, []byte](keyCacheSize)
	return &EncryptionManager{
		kmsClient: kmsClient,
		config:    cfg,
		logger:    logger,
		keyCache:  cache,
	}
}

func (em *EncryptionManager) kmsEnabled() bool {
	return em.config.Enabled && em.kmsClient != nil
}

// GenerateDataKey returns a fresh AES-256 data key.
func (em *EncryptionManager) GenerateDataKey(ctx context.Context) (*DataKey, error) {
	if !em.kmsEnabled() {
		return generateLocalKey()
	}

	result, err := em.kmsClient.GenerateDataKey(ctx, &kms.GenerateDataKeyInput{
		KeyId:   aws.String(em.config.KeyID),
		KeySpec: types.DataKeySpecAes256,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate data key: %w", err)
	}

	return &DataKey{
		Plaintext:  result.Plaintext,
		Ciphertext: result.CiphertextBlob,
		KeyID:      em.config.KeyID,
	}, nil
}

// generateLocalKey is for development: the "encrypted" key is the key itself.
func generateLocalKey() (*DataKey, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	return &DataKey{
		Plaintext:  key,
		Ciphertext: key,
		KeyID:      "local-" + uuid.NewString(),
	}, nil
}

// EncryptField seals plaintext with a new data key. purpose is recorded
// alongside and bound into the ciphertext as additional data.
func (em *EncryptionManager) EncryptField(ctx context.Context, plaintext, purpose string) (*EncryptedData, error) {
	dataKey, err := em.GenerateDataKey(ctx)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(dataKey.Plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), []byte(purpose))

	encryptedDEK := base64.StdEncoding.EncodeToString(dataKey.Ciphertext)
	if em.kmsEnabled() {
		em.keyCache.Add(encryptedDEK, dataKey.Plaintext)
	}

	em.logger.Debug("Field encrypted", zap.String("purpose", purpose), zap.String("key_id", dataKey.KeyID))

	return &EncryptedData{
		EncryptedValue: base64.StdEncoding.EncodeToString(ciphertext),
		EncryptedDEK:   encryptedDEK,
		KeyID:          dataKey.KeyID,
		Purpose:        purpose,
		Version:        "v1",
		CreatedAt:      time.Now().UTC(),
	}, nil
}

func (em *EncryptionManager) DecryptField(ctx context.Context, data *EncryptedData) (string, error) {
	if data == nil {
		return "", fmt.Errorf("%w: no data", ErrDecryptionFailed)
	}
	if cached, ok := em.keyCache.Get(data.EncryptedDEK); ok {
		return decryptWithKey(data.EncryptedValue, data.Purpose, cached)
	}

	blob, err := base64.StdEncoding.DecodeString(data.EncryptedDEK)
	if err != nil {
		return "", fmt.Errorf("%w: invalid DEK format", ErrDecryptionFailed)
	}

	plaintextDEK := blob
	if em.kmsEnabled() {
		result, err := em.kmsClient.Decrypt(ctx, &kms.DecryptInput{CiphertextBlob: blob})
		if err != nil {
			return "", fmt.Errorf("%w: failed to decrypt DEK: %v", ErrDecryptionFailed, err)
		}
		plaintextDEK = result.Plaintext
		em.keyCache.Add(data.EncryptedDEK, plaintextDEK)
	}

	return decryptWithKey(data.EncryptedValue, data.Purpose, plaintextDEK)
}

func decryptWithKey(encryptedValue, purpose string, key []byte) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encryptedValue)
	if err != nil {
		return "", fmt.Errorf("%w: invalid ciphertext format", ErrDecryptionFailed)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, []byte(purpose))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// ClearCache drops every cached data key.
func (em *EncryptionManager) ClearCache() {
	em.keyCache.Purge()
}

func (em *EncryptionManager) CacheSize() int {
	return em.keyCache.Len()
}
