// Package keywords manages the ordered bias-keyword list passed to
// transcription providers, stored one keyword per line.
package keywords

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Manager reads and writes the keywords file.
type Manager struct {
	filePath string
}

// NewManager stores keywords under configDir/keywords.txt.
// DefaultDir is ~/.config/ostt.
func NewManager(configDir string) *Manager {
	return &Manager{filePath: filepath.Join(configDir, "keywords.txt")}
}

// DefaultDir resolves the conventional config location.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "ostt"), nil
}

// Load returns the keyword list in file order, skipping blank lines.
func (m *Manager) Load() ([]string, error) {
	content, err := os.ReadFile(m.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read keywords: %w", err)
	}

	var keywords []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			keywords = append(keywords, line)
		}
	}
	return keywords, nil
}

// Save replaces the keyword list.
func (m *Manager) Save(keywords []string) error {
	if err := os.MkdirAll(filepath.Dir(m.filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	content := strings.Join(keywords, "\n")
	if err := os.WriteFile(m.filePath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write keywords: %w", err)
	}
	return nil
}

// Add appends a keyword unless it is already present.
func (m *Manager) Add(keyword string) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil
	}
	keywords, err := m.Load()
	if err != nil {
		return err
	}
	for _, existing := range keywords {
		if existing == keyword {
			return nil
		}
	}
	return m.Save(append(keywords, keyword))
}

// Remove deletes the keyword at index; out-of-range indexes are ignored.
func (m *Manager) Remove(index int) error {
	keywords, err := m.Load()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(keywords) {
		return nil
	}
	return m.Save(append(keywords[:index], keywords[index+1:]...))
}
