package fsx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

func PathExists(filePath string) (os.FileInfo, bool) {
	s, err := os.Stat(filePath)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return s, false
	}

	return s, true
}

func CloseFile(file *os.File) {
	if file == nil {
		return
	}

	if err := file.Close(); err != nil {
		fmt.Printf("warning: failed to close file: %v\n", err)
	}
}

func RemoveFile(file string) {
	if err := os.Remove(file); err != nil {
		fmt.Printf("warning: failed to remove file: %v\n", err)
	}
}

// WriteFileAtomic writes data to path via a temporary file in the same
// directory followed by a rename, so a concurrent reader never observes a
// partially written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	name := tmp.Name()
	if _, err = tmp.Write(data); err != nil {
		CloseFile(tmp)
		RemoveFile(name)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	if err = tmp.Sync(); err != nil {
		CloseFile(tmp)
		RemoveFile(name)
		return fmt.Errorf("failed to flush temporary file: %w", err)
	}

	CloseFile(tmp)

	if err = os.Chmod(name, perm); err != nil {
		RemoveFile(name)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err = os.Rename(name, path); err != nil {
		RemoveFile(name)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}
