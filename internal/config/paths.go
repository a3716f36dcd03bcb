package config

import (
	"os"
	"path/filepath"
)

const defaultBaseDir = ".matrix"

// Paths holds resolved filesystem paths for Matrix data.
type Paths struct {
	Base          string // ~/.matrix
	Config        string // ~/.matrix/config.yaml
	Credentials   string // ~/.matrix/credentials
	Conversations string // ~/.matrix/conversations
	Logs          string // ~/.matrix/logs
	Data          string // ~/.matrix/data
}

// ResolvePaths computes all standard paths from the home directory.
// If MATRIX_HOME is set, it overrides the default base directory.
func ResolvePaths() (Paths, error) {
	base := os.Getenv("MATRIX_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, defaultBaseDir)
	}

	return Paths{
		Base:          base,
		Config:        filepath.Join(base, "config.yaml"),
		Credentials:   filepath.Join(base, "credentials"),
		Conversations: filepath.Join(base, "conversations"),
		Logs:          filepath.Join(base, "logs"),
		Data:          filepath.Join(base, "data"),
	}, nil
}

// Database returns the SQLite database path.
func (p Paths) Database() string {
	return filepath.Join(p.Data, "matrix.db")
}

// GoogleCredentials returns the default OAuth client file path.
func (p Paths) GoogleCredentials() string {
	return filepath.Join(p.Credentials, "google-client.json")
}

// GoogleToken returns the default cached OAuth token path.
func (p Paths) GoogleToken() string {
	return filepath.Join(p.Credentials, "google-token.json")
}

// EnsureDirs creates all standard directories if they don't exist.
func (p Paths) EnsureDirs() error {
	dirs := []string{p.Base, p.Credentials, p.Conversations, p.Logs, p.Data}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}
