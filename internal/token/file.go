package token

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

type credentialsFile struct {
	AccessToken string `yaml:"access_token"`
}

// File is a token store persisting the token in a YAML credentials file.
// The file is re-read on every Get so that several processes observe the last write.
type File struct {
	mtx  sync.Mutex
	path string
}

var _ Store = (*File)(nil)

// NewFile creates a new file token store using the given path
func NewFile(path string) *File {
	return &File{path: path}
}

// DefaultFilePath returns the credentials file location, honoring $TICKETDESK_CREDENTIALS and $XDG_CONFIG_HOME
func DefaultFilePath() string {
	if envPath := os.Getenv("TICKETDESK_CREDENTIALS"); envPath != "" {
		return envPath
	}
	configDirectory := os.Getenv("XDG_CONFIG_HOME")
	if configDirectory == "" {
		homeDirectory, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "ticketdesk-credentials.yaml")
		}
		configDirectory = filepath.Join(homeDirectory, ".config")
	}
	return filepath.Join(configDirectory, "ticketdesk", "credentials.yaml")
}

// Path returns the path of the credentials file
func (store *File) Path() string {
	return store.path
}

// Get retrieves the current token or an empty string if there is none
func (store *File) Get(_ context.Context) (string, error) {
	store.mtx.Lock()
	defer store.mtx.Unlock()

	data, err := os.ReadFile(store.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("reading credentials file %s: %w", store.path, err)
	}
	var creds credentialsFile
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return "", fmt.Errorf("parsing credentials file %s: %w", store.path, err)
	}
	return creds.AccessToken, nil
}

// Set replaces the current token.
// The parent directory is created with mode 0700 and the file written with mode 0600.
func (store *File) Set(_ context.Context, token string) error {
	store.mtx.Lock()
	defer store.mtx.Unlock()

	data, err := yaml.Marshal(&credentialsFile{AccessToken: token})
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	directory := filepath.Dir(store.path)
	if err := os.MkdirAll(directory, 0700); err != nil {
		return fmt.Errorf("creating credentials directory %s: %w", directory, err)
	}
	if err := os.WriteFile(store.path, data, 0600); err != nil {
		return fmt.Errorf("writing credentials file %s: %w", store.path, err)
	}
	return nil
}

// Clear removes the credentials file
func (store *File) Clear(_ context.Context) error {
	store.mtx.Lock()
	defer store.mtx.Unlock()

	if err := os.Remove(store.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing credentials file %s: %w", store.path, err)
	}
	return nil
}
