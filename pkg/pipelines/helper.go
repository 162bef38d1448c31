package pipelines

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	DefaultDirMode  = 0o755
	DefaultFileMode = 0o644
)

// OpenOverwrite is a file mode that will:
// 1. Create the file if it doesn't exist
// 2. Overwrite the content if it does
// 3. Write Only
const OpenOverwrite = os.O_CREATE | os.O_WRONLY | os.O_TRUNC

// ArtifactError is returned when a generated file cannot be persisted
type ArtifactError struct {
	Path string
	Err  error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("cannot write %s: %v", e.Path, e.Err)
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}

// MakeDirectoryP will create the directory, creating paths if neccessary with sensible defaults
//
// If the Directory already exists, it will return successfully as nil
func MakeDirectoryP(directoryName string) error {
	slog.Debug("make directory", "path", directoryName)
	return os.MkdirAll(directoryName, DefaultDirMode)
}

// OpenOrCreateFile will create the file or overwrite an existing file
func OpenOrCreateFile(filename string) (*os.File, error) {
	slog.Debug("create or open and overwrite existing file", "path", filename)
	return os.OpenFile(filename, OpenOverwrite, DefaultFileMode)
}

// WriteArtifact replaces destination with content and returns the destination path
//
// The content goes to a temp file in the same directory which is synced and renamed
// over the destination, a reader never observes a partial file.
func WriteArtifact(content string, destination string) (string, error) {
	dir := filepath.Dir(destination)
	if err := MakeDirectoryP(dir); err != nil {
		return "", &ArtifactError{Path: destination, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(destination)+".*.tmp")
	if err != nil {
		return "", &ArtifactError{Path: destination, Err: err}
	}
	tmpName := tmp.Name()

	// no-op after a successful rename
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return "", &ArtifactError{Path: destination, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", &ArtifactError{Path: destination, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return "", &ArtifactError{Path: destination, Err: err}
	}
	if err := os.Chmod(tmpName, DefaultFileMode); err != nil {
		return "", &ArtifactError{Path: destination, Err: err}
	}
	if err := os.Rename(tmpName, destination); err != nil {
		return "", &ArtifactError{Path: destination, Err: err}
	}

	slog.Debug("artifact written", "path", destination, "bytes", len(content))
	return destination, nil
}
