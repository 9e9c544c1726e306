package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// sessionFile keeps the session token between runs.
type sessionFile struct {
	path string
}

func defaultSessionFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pushpullrun_session"
	}
	return filepath.Join(home, ".pushpullrun", "session")
}

func (f sessionFile) Load() (string, bool) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(string(data))
	return token, token != ""
}

func (f sessionFile) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(f.path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (f sessionFile) Remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
