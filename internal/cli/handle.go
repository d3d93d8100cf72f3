package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mathesar-foundation/testdb/internal/db"
)

// errNoHandle means no setup has been recorded at the handle path.
var errNoHandle = errors.New("no handle file")

func writeHandle(path string, h *db.Handle) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("encode handle: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create handle dir: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("write handle %s: %w", path, err)
	}
	return nil
}

func readHandle(path string) (*db.Handle, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w at %s (run 'testdb setup' first)", errNoHandle, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read handle %s: %w", path, err)
	}
	var h db.Handle
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode handle %s: %w", path, err)
	}
	return &h, nil
}
