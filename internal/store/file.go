// Package store persists the last requested target humidity across restarts.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// File stores the target as a JSON document: {"target": 50}
type File struct {
	Path string
}

type document struct {
	Target *float64 `json:"target"`
}

// Load returns the stored target. If the file does not exist, or does not contain a target, Load returns false.
func (f File) Load(_ context.Context) (float64, bool, error) {
	body, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = nil
		}
		return 0, false, err
	}
	var doc document
	if err = json.Unmarshal(body, &doc); err != nil {
		return 0, false, fmt.Errorf("%s: %w", f.Path, err)
	}
	if doc.Target == nil {
		return 0, false, nil
	}
	return *doc.Target, true, nil
}

// Save writes the target. The file is replaced atomically.
func (f File) Save(_ context.Context, target float64) error {
	body, err := json.Marshal(document{Target: &target})
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), filepath.Base(f.Path)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err = tmp.Write(body); err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("%s: %w", f.Path, err)
	}
	return os.Rename(tmp.Name(), f.Path)
}
