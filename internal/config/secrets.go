package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"l10ntrack/pkg/errors"
	"l10ntrack/pkg/models"
)

const (
	encryptedPrefix = "ENC["
	encryptedSuffix = "]"

	// KeyEnv supplies the passphrase secrets are encrypted with.
	KeyEnv = "L10NTRACK_ENCRYPTION_KEY"
)

// encryptionKey derives the AES-256 key from KeyEnv, or from the host and home directory.
func encryptionKey() []byte {
	if key := os.Getenv(KeyEnv); key != "" {
		hash := sha256.Sum256([]byte(key))
		return hash[:]
	}
	hostname, _ := os.Hostname()
	homeDir, _ := os.UserHomeDir()
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s-%s-l10ntrack", hostname, homeDir)))
	return hash[:]
}

func newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(encryptionKey())
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// EncryptSecret seals value with AES-256-GCM as ENC[base64]. Empty and
// already encrypted values are returned unchanged.
func EncryptSecret(value string) (string, error) {
	if value == "" || IsEncrypted(value) {
		return value, nil
	}

	gcm, err := newGCM()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(value), nil)
	return encryptedPrefix + base64.StdEncoding.EncodeToString(sealed) + encryptedSuffix, nil
}

// DecryptSecret reverses EncryptSecret. Plain values are returned unchanged.
func DecryptSecret(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}

	encoded := strings.TrimSuffix(strings.TrimPrefix(value, encryptedPrefix), encryptedSuffix)
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode encrypted value: %w", err)
	}

	gcm, err := newGCM()
	if err != nil {
		return "", err
	}
	if len(sealed) < gcm.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt value: %w", err)
	}
	return string(plain), nil
}

// IsEncrypted reports whether value has the ENC[...] form.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, encryptedPrefix) && strings.HasSuffix(value, encryptedSuffix)
}

// secretFields lists the settings stored encrypted on disk.
func secretFields(cfg *models.Config) map[string]*string {
	return map[string]*string{
		"database.dsn":                &cfg.Database.DSN,
		"database.snowflake.password": &cfg.Database.Snowflake.Password,
		"export.s3.secret_key":        &cfg.Export.S3.SecretKey,
	}
}

// EncryptConfigSecrets encrypts every secret field of cfg in place.
func EncryptConfigSecrets(cfg *models.Config) error {
	for field, value := range secretFields(cfg) {
		encrypted, err := EncryptSecret(*value)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to encrypt "+field).
				WithContext("field", field)
		}
		*value = encrypted
	}
	return nil
}

// DecryptConfigSecrets decrypts every secret field of cfg in place.
func DecryptConfigSecrets(cfg *models.Config) error {
	for field, value := range secretFields(cfg) {
		decrypted, err := DecryptSecret(*value)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to decrypt "+field).
				WithContext("field", field).
				WithSuggestions(fmt.Sprintf("Set %s to the key used when the config was saved", KeyEnv))
		}
		*value = decrypted
	}
	return nil
}
