// Package config loads the service's small JSON configuration document.
package config

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed default.json
var defaultFS embed.FS

// Config holds the OS vault's service/account identifiers and the
// on-disk keystore directory.
type Config struct {
	Service string `json:"service"`
	Account string `json:"account"`
	Store   string `json:"store"`
}

// Load reads and parses a config document from path, or the embedded
// default when path is empty. The Store field's leading "~/" is expanded
// against $HOME.
func Load(path string) (*Config, error) {
	var b []byte
	var err error
	if path == "" {
		b, err = defaultFS.ReadFile("default.json")
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	var c Config
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	c.Store, err = expandHome(c.Store)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func expandHome(p string) (string, error) {
	if !strings.HasPrefix(p, "~/") && p != "~" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home dir: %w", err)
	}
	if p == "~" {
		return home, nil
	}
	return filepath.Join(home, p[2:]), nil
}
