package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/scrypt"
)

// Secrets file configuration.
const (
	secretsFileName = "secrets.json.enc"
	saltSize        = 16
	nonceSize       = 12
	scryptN         = 32768 // 2^15
	scryptR         = 8
	scryptP         = 1
	keySize         = 32 // AES-256
)

//nolint:gochecknoglobals // Intentional in-memory secrets storage
var (
	decryptedSecrets    map[string]string
	decryptedSecretsMux sync.RWMutex
)

// SetDecryptedSecrets stores decrypted secrets in memory.
func SetDecryptedSecrets(secrets map[string]string) {
	decryptedSecretsMux.Lock()
	defer decryptedSecretsMux.Unlock()
	decryptedSecrets = secrets
}

// GetSecret returns a secret value by name using standard precedence:
// 1. Decrypted secrets file (in memory)
// 2. Environment variables.
func GetSecret(name string) (string, error) {
	decryptedSecretsMux.RLock()
	if decryptedSecrets != nil {
		if value, exists := decryptedSecrets[name]; exists && value != "" {
			decryptedSecretsMux.RUnlock()
			return value, nil
		}
	}
	decryptedSecretsMux.RUnlock()

	if value := os.Getenv(name); value != "" {
		return value, nil
	}

	return "", fmt.Errorf("secret %s not found in secrets file or environment", name)
}

// SetSecret sets a secret value in memory.
func SetSecret(name, value string) {
	decryptedSecretsMux.Lock()
	defer decryptedSecretsMux.Unlock()

	if decryptedSecrets == nil {
		decryptedSecrets = make(map[string]string)
	}
	decryptedSecrets[name] = value
}

// SecretsFileExists checks if the encrypted secrets file exists.
func SecretsFileExists(projectDir string) bool {
	path := filepath.Join(projectDir, ProjectDirName, secretsFileName)
	_, err := os.Stat(path)
	return err == nil
}

// SaveSecretsToFile saves the current in-memory secrets to the encrypted file.
func SaveSecretsToFile(projectDir, password string) error {
	decryptedSecretsMux.RLock()
	secretsCopy := make(map[string]string, len(decryptedSecrets))
	for k, v := range decryptedSecrets {
		secretsCopy[k] = v
	}
	decryptedSecretsMux.RUnlock()

	return EncryptSecretsFile(projectDir, password, secretsCopy)
}

// EncryptSecretsFile encrypts and saves secrets with 0600 permissions.
// File layout: [salt][nonce][ciphertext+tag].
func EncryptSecretsFile(projectDir, password string, secrets map[string]string) error {
	passwordBytes := []byte(password)
	defer zero(passwordBytes)

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := scrypt.Key(passwordBytes, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return fmt.Errorf("failed to derive encryption key: %w", err)
	}
	defer zero(key)

	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("failed to marshal secrets: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	fileData := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	fileData = append(fileData, salt...)
	fileData = append(fileData, nonce...)
	fileData = append(fileData, ciphertext...)

	dir := filepath.Join(projectDir, ProjectDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", ProjectDirName, err)
	}

	path := filepath.Join(dir, secretsFileName)
	if err := os.WriteFile(path, fileData, 0600); err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}

	return nil
}

// DecryptSecretsFile decrypts and returns secrets from the encrypted file.
func DecryptSecretsFile(projectDir, password string) (map[string]string, error) {
	path := filepath.Join(projectDir, ProjectDirName, secretsFileName)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat secrets file: %w", err)
	}

	if info.Mode().Perm() != 0600 {
		getLogger().Warn("Secrets file has permissions %04o, fixing to 0600", info.Mode().Perm())
		if chmodErr := os.Chmod(path, 0600); chmodErr != nil {
			return nil, fmt.Errorf("failed to fix file permissions: %w", chmodErr)
		}
	}

	fileData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets file: %w", err)
	}

	minSize := saltSize + nonceSize + 16 // 16 is GCM tag size
	if len(fileData) < minSize {
		return nil, fmt.Errorf("secrets file is corrupted or invalid format (too small)")
	}

	salt := fileData[:saltSize]
	nonce := fileData[saltSize : saltSize+nonceSize]
	ciphertext := fileData[saltSize+nonceSize:]

	passwordBytes := []byte(password)
	defer zero(passwordBytes)

	key, err := scrypt.Key(passwordBytes, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive decryption key: %w", err)
	}
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed (wrong password or corrupted file)")
	}

	var secrets map[string]string
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("failed to parse secrets: %w", err)
	}

	return secrets, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
