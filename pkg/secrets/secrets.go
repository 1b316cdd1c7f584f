package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"ai-roleplay-platform/backend/pkg/logger"

	vault "github.com/hashicorp/vault/api"
)

// Common errors
var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrNoVaultToken   = errors.New("no vault token provided")
	ErrNoVaultAddress = errors.New("no vault address provided")
)

// VaultConfig holds configuration for the Vault client
type VaultConfig struct {
	Address     string
	Token       string
	Namespace   string
	SecretsPath string
	Enabled     bool
}

// VaultManager resolves secrets from HashiCorp Vault, falling back to
// environment variables when Vault is disabled or a key is absent.
type VaultManager struct {
	client *vault.Client
	config VaultConfig
	cache  map[string]string
	mu     sync.RWMutex
	log    *logger.Logger
}

// NewVaultManager creates a manager from VAULT_* environment variables.
// With VAULT_ENABLED unset or false the manager serves env lookups only.
func NewVaultManager(log *logger.Logger) (*VaultManager, error) {
	config := VaultConfig{
		Address:     os.Getenv("VAULT_ADDR"),
		Token:       os.Getenv("VAULT_TOKEN"),
		Namespace:   os.Getenv("VAULT_NAMESPACE"),
		SecretsPath: os.Getenv("VAULT_SECRETS_PATH"),
		Enabled:     os.Getenv("VAULT_ENABLED") == "true",
	}

	manager := &VaultManager{
		config: config,
		cache:  make(map[string]string),
		log:    log,
	}

	if !config.Enabled {
		return manager, nil
	}

	if config.Address == "" {
		return nil, ErrNoVaultAddress
	}
	if config.Token == "" {
		return nil, ErrNoVaultToken
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = config.Address
	vaultConfig.Timeout = 10 * time.Second

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(config.Token)
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	manager.client = client
	return manager, nil
}

// GetSecret retrieves a secret by key, preferring Vault, then the process
// environment.
func (m *VaultManager) GetSecret(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	if value, ok := m.cache[key]; ok {
		m.mu.RUnlock()
		return value, nil
	}
	m.mu.RUnlock()

	if m.client != nil {
		if value, err := m.readFromVault(ctx, key); err == nil {
			m.mu.Lock()
			m.cache[key] = value
			m.mu.Unlock()
			return value, nil
		} else if !errors.Is(err, ErrSecretNotFound) {
			m.log.Warn("vault lookup failed, falling back to environment", "key", key, "error", err.Error())
		}
	}

	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	return "", ErrSecretNotFound
}

// GetSecretWithDefault retrieves a secret with a default value if not found
func (m *VaultManager) GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	value, err := m.GetSecret(ctx, key)
	if err != nil {
		return defaultValue
	}
	return value
}

func (m *VaultManager) readFromVault(ctx context.Context, key string) (string, error) {
	path := m.config.SecretsPath
	if path == "" {
		path = "secret/data/roleplay"
	}

	secret, err := m.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return "", fmt.Errorf("failed to read vault path %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", ErrSecretNotFound
	}

	// KV v2 keeps the payload under "data".
	data := secret.Data
	if inner, ok := data["data"].(map[string]interface{}); ok {
		data = inner
	}

	if value, ok := data[key].(string); ok && value != "" {
		return value, nil
	}
	return "", ErrSecretNotFound
}
