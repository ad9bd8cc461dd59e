package vault

import (
	"fmt"

	"github.com/hashicorp/vault/api"
)

// SecretManager reads external credentials from Vault KV v2. Secrets are
// opaque to the rest of the service and are never logged.
type SecretManager struct {
	client *api.Client
}

func NewSecretManager(address, token string) (*SecretManager, error) {
	config := api.DefaultConfig()
	config.Address = address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, err
	}

	client.SetToken(token)

	return &SecretManager{client: client}, nil
}

// AIProviderKey returns the AI provider API key.
func (sm *SecretManager) AIProviderKey() (string, error) {
	return sm.readField("secret/data/openai", "api_key")
}

// BackendToken returns the backend access token.
func (sm *SecretManager) BackendToken() (string, error) {
	return sm.readField("secret/data/backend", "access_token")
}

func (sm *SecretManager) readField(path, field string) (string, error) {
	secret, err := sm.client.Logical().Read(path)
	if err != nil {
		return "", err
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("vault: secret %s not found", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("vault: secret %s has unexpected shape", path)
	}
	value, ok := data[field].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("vault: field %s missing in %s", field, path)
	}
	return value, nil
}
