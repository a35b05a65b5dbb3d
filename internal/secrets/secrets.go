// Package secrets stores provider credentials and the global model
// selection under the user data directory with restricted permissions.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const fileMode = 0o600

// Store persists credentials as a TOML provider→key map and the selected
// model as a plain-text file next to it.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, creating it if needed.
// DefaultDir is ~/.local/share/ostt.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("secrets directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create secrets directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// DefaultDir resolves the conventional secrets location.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("could not determine home directory")
	}
	return filepath.Join(home, ".local", "share", "ostt"), nil
}

func (s *Store) credentialsPath() string { return filepath.Join(s.dir, "credentials") }
func (s *Store) modelPath() string       { return filepath.Join(s.dir, "model") }

func (s *Store) readCredentials() (map[string]string, error) {
	content, err := os.ReadFile(s.credentialsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	credentials := map[string]string{}
	if err := toml.Unmarshal(content, &credentials); err != nil {
		// A corrupt file should not lock the user out of re-authenticating.
		return map[string]string{}, nil
	}
	return credentials, nil
}

func (s *Store) writeCredentials(credentials map[string]string) error {
	content, err := toml.Marshal(credentials)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := os.WriteFile(s.credentialsPath(), content, fileMode); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return os.Chmod(s.credentialsPath(), fileMode)
}

// SaveAPIKey stores the API key for a provider.
func (s *Store) SaveAPIKey(providerID, apiKey string) error {
	credentials, err := s.readCredentials()
	if err != nil {
		return err
	}
	credentials[providerID] = apiKey
	return s.writeCredentials(credentials)
}

// GetAPIKey returns the stored key for a provider, if any.
func (s *Store) GetAPIKey(providerID string) (string, bool, error) {
	credentials, err := s.readCredentials()
	if err != nil {
		return "", false, err
	}
	key, ok := credentials[providerID]
	return key, ok, nil
}

// ClearAPIKey removes the stored key for a provider.
func (s *Store) ClearAPIKey(providerID string) error {
	credentials, err := s.readCredentials()
	if err != nil {
		return err
	}
	if _, ok := credentials[providerID]; !ok {
		return nil
	}
	delete(credentials, providerID)
	return s.writeCredentials(credentials)
}

// AuthorizedProviders lists provider ids that have a key saved.
func (s *Store) AuthorizedProviders() ([]string, error) {
	credentials, err := s.readCredentials()
	if err != nil {
		return nil, err
	}
	providers := make([]string, 0, len(credentials))
	for id := range credentials {
		providers = append(providers, id)
	}
	sort.Strings(providers)
	return providers, nil
}

// SaveSelectedModel records the single global model selection.
func (s *Store) SaveSelectedModel(modelID string) error {
	if err := os.WriteFile(s.modelPath(), []byte(modelID), fileMode); err != nil {
		return fmt.Errorf("failed to write model selection: %w", err)
	}
	return os.Chmod(s.modelPath(), fileMode)
}

// SelectedModel returns the current model selection, if any.
func (s *Store) SelectedModel() (string, bool, error) {
	content, err := os.ReadFile(s.modelPath())
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read model selection: %w", err)
	}
	modelID := strings.TrimSpace(string(content))
	if modelID == "" {
		return "", false, nil
	}
	return modelID, true, nil
}
