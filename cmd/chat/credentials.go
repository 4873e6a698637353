package main

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultServerURL = "http://localhost:8080"
	defaultSocketURL = "ws://localhost:8081/ws"
)

// Credentials is stored in ~/.courier/credentials.toml.
type Credentials struct {
	Server CredentialsServer `toml:"server"`
	Auth   CredentialsAuth   `toml:"auth"`
}

type CredentialsServer struct {
	BaseURL   string `toml:"base_url"`
	SocketURL string `toml:"socket_url"`
}

type CredentialsAuth struct {
	Token    string `toml:"token"`
	UserID   string `toml:"user_id"`
	Username string `toml:"username"`
}

func credentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".courier")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("cannot create config directory: %w", err)
	}
	return filepath.Join(dir, "credentials.toml"), nil
}

// loadCredentials returns a zero value when the file does not exist yet.
func loadCredentials() (*Credentials, error) {
	path, err := credentialsPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Credentials{}, nil
		}
		return nil, fmt.Errorf("cannot read credentials: %w", err)
	}

	var creds Credentials
	if err := toml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("cannot parse credentials: %w", err)
	}
	return &creds, nil
}

func saveCredentials(creds *Credentials) error {
	path, err := credentialsPath()
	if err != nil {
		return err
	}
	data, err := toml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("cannot marshal credentials: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("cannot write credentials: %w", err)
	}
	return nil
}

// endpoints resolves flags over stored values over defaults.
func (c *Credentials) endpoints() (string, string) {
	base, socket := c.Server.BaseURL, c.Server.SocketURL
	if serverURL != "" {
		base = serverURL
	}
	if socketURL != "" {
		socket = socketURL
	}
	if base == "" {
		base = defaultServerURL
	}
	if socket == "" {
		socket = defaultSocketURL
	}
	return base, socket
}

func requireLogin() (*Credentials, error) {
	creds, err := loadCredentials()
	if err != nil {
		return nil, err
	}
	if creds.Auth.Token == "" {
		return nil, fmt.Errorf("not logged in; run 'chat login <username>' first")
	}
	return creds, nil
}
