// Package fileops holds the filesystem primitives shared by organize, undo, and export.
package fileops

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// MoveErrorType represents the type of move error.
type MoveErrorType string

const (
	// SourceNotFound indicates the source file does not exist.
	SourceNotFound MoveErrorType = "SOURCE_NOT_FOUND"
	// DestinationExists indicates a file already exists at the destination.
	DestinationExists MoveErrorType = "DESTINATION_EXISTS"
	// PermissionDenied indicates insufficient permissions for the operation.
	PermissionDenied MoveErrorType = "PERMISSION_DENIED"
	// IOFailure covers every other failure while moving.
	IOFailure MoveErrorType = "IO_FAILURE"
)

// MoveError represents an error that occurred during file movement.
type MoveError struct {
	Type MoveErrorType
	Path string
	Err  error
}

func (e *MoveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Path)
}

func (e *MoveError) Unwrap() error {
	return e.Err
}

// Exists reports whether anything (file, directory, or link) is at path.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// Move renames src to dst, refusing to replace an existing dst.
// When rename fails for reasons other than permissions (typically a
// cross-device move) it falls back to copy then delete.
func Move(src, dst string) error {
	if _, err := os.Lstat(src); err != nil {
		return classify(src, err, SourceNotFound)
	}
	if Exists(dst) {
		return &MoveError{Type: DestinationExists, Path: dst}
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if os.IsPermission(err) {
		return &MoveError{Type: PermissionDenied, Path: src, Err: err}
	}
	return copyAndDelete(src, dst)
}

// copyAndDelete streams src into a new dst, keeps mode and mtime, then removes src.
// A failure after dst was created removes the partial copy.
func copyAndDelete(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return classify(src, err, SourceNotFound)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return classify(src, err, IOFailure)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return &MoveError{Type: DestinationExists, Path: dst, Err: err}
		}
		return classify(dst, err, IOFailure)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return &MoveError{Type: IOFailure, Path: dst, Err: err}
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return &MoveError{Type: IOFailure, Path: dst, Err: err}
	}
	_ = os.Chtimes(dst, info.ModTime(), info.ModTime())

	in.Close()
	if err := os.Remove(src); err != nil {
		os.Remove(dst)
		return classify(src, err, IOFailure)
	}
	return nil
}

func classify(path string, err error, fallback MoveErrorType) error {
	switch {
	case os.IsNotExist(err):
		return &MoveError{Type: SourceNotFound, Path: path, Err: err}
	case os.IsPermission(err):
		return &MoveError{Type: PermissionDenied, Path: path, Err: err}
	default:
		return &MoveError{Type: fallback, Path: path, Err: err}
	}
}

// WriteFileAtomic writes data to a temp file beside path, syncs it, and
// renames it over path. Readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
