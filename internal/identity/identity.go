// Package identity holds the per-user settings carried into every room and
// the editor/settings navigation rules built on them.
package identity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/codeshare-server/internal/keygen"
)

// Supported editor themes.
var Themes = []string{"vs", "vs-dark", "hc-black"}

// Supported presence colors.
var Colors = []string{"red", "blue", "green", "orange", "purple", "teal", "pink", "yellow"}

const (
	DefaultTheme = "vs-dark"
	DefaultColor = "red"
)

// ErrIncomplete is returned when an operation needs a user code and name.
var ErrIncomplete = errors.New("identity incomplete: set a user name first")

// LocalIdentity is the local user's configuration. UserCode is generated once
// and reused across sessions and rooms.
type LocalIdentity struct {
	UserCode string `yaml:"user_code" json:"userCode"`
	UserName string `yaml:"user_name" json:"userName"`
	Theme    string `yaml:"theme" json:"theme"`
	Color    string `yaml:"color" json:"color"`
	// Key is the last room opened.
	Key string `yaml:"key,omitempty" json:"key,omitempty"`
}

// Complete reports whether the identity can join a room.
func (l LocalIdentity) Complete() bool {
	return l.UserCode != "" && l.UserName != ""
}

// Fill generates the user code if it is missing and defaults theme and color.
// An existing user code is never replaced.
func (l *LocalIdentity) Fill() {
	if l.UserCode == "" {
		l.UserCode = keygen.NewKey()
	}
	if !contains(Themes, l.Theme) {
		l.Theme = DefaultTheme
	}
	if !contains(Colors, l.Color) {
		l.Color = DefaultColor
	}
}

// DefaultPath returns $HOME/.codeshare/settings.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".codeshare", "settings.yaml"), nil
}

// Load reads the settings file. A missing file yields an empty identity.
func Load(path string) (LocalIdentity, error) {
	var l LocalIdentity
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return l, nil
		}
		return l, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &l); err != nil {
		return l, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return l, nil
}

// Save fills defaults and writes the settings file, creating its directory.
// It returns the identity as written.
func Save(path string, l LocalIdentity) (LocalIdentity, error) {
	l.Fill()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return l, fmt.Errorf("create settings dir: %w", err)
	}
	data, err := yaml.Marshal(&l)
	if err != nil {
		return l, fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return l, fmt.Errorf("write settings: %w", err)
	}
	return l, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
