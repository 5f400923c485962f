package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"docinsight/internal/crypto"
	"docinsight/internal/llm"
)

const settingsFileName = "settings.json"

// Settings are the provider choices a user can change at runtime.
type Settings struct {
	Provider string            `json:"provider" validate:"omitempty,oneof=openai cohere anthropic huggingface"`
	Model    string            `json:"model" validate:"omitempty,max=200"`
	Keys     map[string]string `json:"keys,omitempty" validate:"-"`
}

// SettingsStore persists Settings to DATA_DIR/settings.json with API keys
// sealed.
type SettingsStore struct {
	mu     sync.Mutex
	path   string
	sealer *crypto.Sealer
}

// NewSettingsStore prepares a store under dataDir.
func NewSettingsStore(dataDir, secret string) (*SettingsStore, error) {
	sealer, err := crypto.NewSealer(secret)
	if err != nil {
		return nil, err
	}
	return &SettingsStore{path: filepath.Join(dataDir, settingsFileName), sealer: sealer}, nil
}

// Path is the location of the settings file.
func (st *SettingsStore) Path() string {
	return st.path
}

// Load reads saved settings. A missing file yields (nil, nil). Keys that
// cannot be unsealed (for example after SETTINGS_SECRET changed) are dropped.
func (st *SettingsStore) Load() (*Settings, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	data, err := os.ReadFile(st.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", st.path, err)
	}
	var saved Settings
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", st.path, err)
	}

	keys := make(map[string]string, len(saved.Keys))
	for name, sealed := range saved.Keys {
		if plain, err := st.sealer.Open(sealed); err == nil && plain != "" {
			keys[name] = plain
		}
	}
	saved.Keys = keys
	return &saved, nil
}

// Save writes s, sealing every non-empty key.
func (st *SettingsStore) Save(s Settings) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := Settings{Provider: s.Provider, Model: s.Model, Keys: make(map[string]string, len(s.Keys))}
	for name, key := range s.Keys {
		if key == "" {
			continue
		}
		sealed, err := st.sealer.Seal(key)
		if err != nil {
			return fmt.Errorf("seal %s key: %w", name, err)
		}
		out.Keys[name] = sealed
	}

	if err := os.MkdirAll(filepath.Dir(st.path), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(st.path, data, 0600)
}

// Apply overlays saved settings onto c.
func (c *Config) Apply(s *Settings) {
	if s == nil {
		return
	}
	if s.Provider != "" {
		c.Provider = s.Provider
	}
	if s.Model != "" {
		c.Model = s.Model
	}
	for name, key := range s.Keys {
		if key != "" {
			c.ProviderKeys[name] = key
		}
	}
}

// ValidateSettings checks a settings update.
func ValidateSettings(s Settings) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	for name := range s.Keys {
		if !knownProvider(name) {
			return fmt.Errorf("invalid settings: unknown provider key %q", name)
		}
	}
	return nil
}

func knownProvider(name string) bool {
	for _, p := range llm.ProviderNames {
		if p == name {
			return true
		}
	}
	return false
}

// MaskKey hides all but the edges of a secret for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		if key == "" {
			return ""
		}
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
