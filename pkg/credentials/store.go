package credentials

import (
	"fmt"
	"os"
	"strings"

	"github.com/benmeehan/tracking-agent/pkg/file"
)

// Store is the read-only view of persisted tracking credentials.
type Store interface {
	// Read returns nil credentials when nothing has been stored yet.
	Read() (*Credentials, error)
}

// FileStore reads credentials written by the host application to a JSON or YAML file.
// The file is re-read on every call so updates made by the host are picked up.
type FileStore struct {
	filePath       string
	defaultBaseURL string
	fileOps        file.FileOperations
}

// NewFileStore creates a FileStore. defaultBaseURL is used when the file carries no base_url.
func NewFileStore(filePath, defaultBaseURL string, fileOps file.FileOperations) *FileStore {
	return &FileStore{
		filePath:       filePath,
		defaultBaseURL: defaultBaseURL,
		fileOps:        fileOps,
	}
}

// Read loads the credentials file. A missing file yields (nil, nil).
func (s *FileStore) Read() (*Credentials, error) {
	var creds Credentials
	if err := s.fileOps.Decode(s.filePath, &creds); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read credentials from %s: %w", s.filePath, err)
	}

	creds.SessionID = strings.TrimSpace(creds.SessionID)
	creds.BearerToken = strings.TrimSpace(creds.BearerToken)
	creds.BaseURL = strings.TrimRight(strings.TrimSpace(creds.BaseURL), "/")
	if creds.BaseURL == "" {
		creds.BaseURL = strings.TrimRight(s.defaultBaseURL, "/")
	}
	return &creds, nil
}
