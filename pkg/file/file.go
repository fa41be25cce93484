package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned by Decode for extensions it has no codec for.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// FileOperations defines the read-side file helpers the agent relies on.
type FileOperations interface {
	IsFileExists(filePath string) (bool, error)
	ReadFileRaw(filePath string) ([]byte, error)
	Decode(filePath string, v any) error
}

// FileService implements the FileOperations interface using standard file operations.
type FileService struct{}

// NewFileService creates a new instance of FileService.
func NewFileService() *FileService {
	return &FileService{}
}

// IsFileExists checks if the file exists and returns boolean and error
func (fs *FileService) IsFileExists(filePath string) (bool, error) {
	_, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return false, nil
	}

	// checking err == nil because of permission related error
	return err == nil, err
}

// ReadFileRaw reads the contents of the file at filePath and returns it as a byte array.
func (fs *FileService) ReadFileRaw(filePath string) ([]byte, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}

// Decode unmarshals the file into v, choosing JSON or YAML from the extension.
// Errors from os.Open are returned unwrapped so callers can use os.IsNotExist.
func (fs *FileService) Decode(filePath string, v any) error {
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	if ext == ".json" {
		if err := json.NewDecoder(file).Decode(v); err != nil {
			return fmt.Errorf("failed to decode JSON file %s: %w", filePath, err)
		}
		return nil
	}

	if err := yaml.NewDecoder(file).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode YAML file %s: %w", filePath, err)
	}
	return nil
}
