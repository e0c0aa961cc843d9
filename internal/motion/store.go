package motion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const documentExt = ".json"

// Store loads sequences by identifier.
type Store interface {
	// Load returns the validated sequence stored under id.
	// Returns ErrInvalidID, ErrNotFound or ErrMalformedSequence.
	Load(ctx context.Context, id string) (*Sequence, error)

	// List returns the identifiers of every stored sequence, sorted.
	List(ctx context.Context) ([]string, error)
}

// Writer is implemented by stores that accept new or replaced documents.
type Writer interface {
	// Save validates doc and stores it under id, replacing any previous
	// document. Nothing is stored when validation fails.
	Save(ctx context.Context, id string, doc []byte) (*Sequence, error)

	// Delete removes the document stored under id.
	// Returns ErrNotFound if nothing is stored under id.
	Delete(ctx context.Context, id string) error
}

// FileStore reads sequence documents named <id>.json from a directory.
type FileStore struct {
	fsys fs.FS
	dir  string // empty for read-only stores built over an arbitrary fs.FS

	mu sync.Mutex // serialises writes
}

// NewFileStore returns a store over dir. The directory does not need to
// exist until the first Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{fsys: os.DirFS(dir), dir: dir}
}

// NewFSStore returns a read-only store over fsys. Documents are read from
// its root. Save and Delete return ErrReadOnly.
func NewFSStore(fsys fs.FS) *FileStore {
	return &FileStore{fsys: fsys}
}

// Load reads and parses <id>.json.
func (s *FileStore) Load(ctx context.Context, id string) (*Sequence, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := fs.ReadFile(s.fsys, id+documentExt)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("reading sequence %s: %w", id, err)
	}
	return Parse(id, data)
}

// List returns the ids of all valid-looking documents. A missing directory
// yields an empty list.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("listing sequences: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := strings.CutSuffix(e.Name(), documentExt)
		if !ok || ValidateID(id) != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Save validates doc and writes it atomically as <id>.json.
func (s *FileStore) Save(ctx context.Context, id string, doc []byte) (*Sequence, error) {
	if s.dir == "" {
		return nil, ErrReadOnly
	}
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	seq, err := Parse(id, doc)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating sequence directory: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, "."+id+"-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // Gone after a successful rename

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close() //nolint:errcheck // Already failing
		return nil, fmt.Errorf("writing sequence %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("writing sequence %s: %w", id, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, id+documentExt)); err != nil {
		return nil, fmt.Errorf("storing sequence %s: %w", id, err)
	}
	return seq, nil
}

// Delete removes <id>.json.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	if s.dir == "" {
		return ErrReadOnly
	}
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(filepath.Join(s.dir, id+documentExt)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("deleting sequence %s: %w", id, err)
	}
	return nil
}
