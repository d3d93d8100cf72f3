package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mathesar-foundation/testdb/internal/config"
)

// ErrDataFileNotFound is returned when a data file row does not exist.
var ErrDataFileNotFound = errors.New("data file not found")

// DataFile is an uploaded delimited file awaiting import.
type DataFile struct {
	ID        int64     `json:"id"`
	Path      string    `json:"path"`
	Delimiter string    `json:"delimiter"`
	Header    bool      `json:"header"`
	CreatedAt time.Time `json:"created_at"`
}

// DelimiterFor guesses the field delimiter from the file extension.
func DelimiterFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return "\t"
	}
	return ","
}

// CreateDataFile inserts f and fills in its ID and CreatedAt.
// An empty delimiter is derived from the path.
func (d *DB) CreateDataFile(ctx context.Context, f *DataFile) error {
	if f.Path == "" {
		return fmt.Errorf("path is required")
	}
	if f.Delimiter == "" {
		f.Delimiter = DelimiterFor(f.Path)
	}
	f.CreatedAt = time.Now().UTC()
	created := f.CreatedAt.Format(time.RFC3339Nano)

	const insert = `INSERT INTO data_files (path, delimiter, header, created_at) VALUES (?, ?, ?, ?)`
	if d.engine.Name() == config.EnginePostgres {
		err := d.QueryRowContext(ctx, d.rebind(insert+" RETURNING id"), f.Path, f.Delimiter, f.Header, created).Scan(&f.ID)
		if err != nil {
			return fmt.Errorf("creating data file: %w", err)
		}
		return nil
	}

	res, err := d.ExecContext(ctx, insert, f.Path, f.Delimiter, f.Header, created)
	if err != nil {
		return fmt.Errorf("creating data file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting data file id: %w", err)
	}
	f.ID = id
	return nil
}

// GetDataFile retrieves a data file by ID.
func (d *DB) GetDataFile(ctx context.Context, id int64) (*DataFile, error) {
	row := d.QueryRowContext(ctx, d.rebind(`
		SELECT id, path, delimiter, header, created_at
		FROM data_files WHERE id = ?
	`), id)
	return scanDataFile(row)
}

// ListDataFiles returns all data files, oldest first.
func (d *DB) ListDataFiles(ctx context.Context) ([]*DataFile, error) {
	rows, err := d.QueryContext(ctx, `
		SELECT id, path, delimiter, header, created_at
		FROM data_files ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing data files: %w", err)
	}
	defer rows.Close()

	var files []*DataFile
	for rows.Next() {
		f, err := scanDataFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDataFile(s scanner) (*DataFile, error) {
	var (
		f       DataFile
		created string
	)
	if err := s.Scan(&f.ID, &f.Path, &f.Delimiter, &f.Header, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDataFileNotFound
		}
		return nil, fmt.Errorf("scanning data file: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	f.CreatedAt = t
	return &f, nil
}
