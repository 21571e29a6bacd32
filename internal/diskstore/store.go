// Package diskstore implements the store.Store contract on a filesystem
// directory, one file per call key. The directory may be shared between
// processes and machines (e.g. over a network filesystem): writes go to a
// temp file first and are published with an atomic rename, so readers
// never observe a partial result and racing writers of the same key
// harmlessly overwrite each other with an equal value.
//
// File names are the keys' canonical string form, which contains ":" and
// so requires a POSIX filesystem.
package diskstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/loomgo/internal/callid"
	"github.com/vk/loomgo/internal/store"
)

const fileSuffix = ".json"

// Store is the filesystem-backed result cache.
type Store struct {
	dir string
}

// New opens (creating if needed) a disk store rooted at dir.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key callid.Key) string {
	return filepath.Join(s.dir, key.String()+fileSuffix)
}

// Contains reports whether a result exists for the key.
func (s *Store) Contains(ctx context.Context, key callid.Key) (bool, error) {
	_, err := os.Stat(s.path(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, &store.Error{Op: "contains", Key: key, Err: err}
}

// Get loads and decodes the result stored under the key.
func (s *Store) Get(ctx context.Context, key callid.Key) (cty.Value, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return cty.NilVal, &store.Error{Op: "get", Key: key, Err: store.ErrNotFound}
	}
	if err != nil {
		return cty.NilVal, &store.Error{Op: "get", Key: key, Err: err}
	}
	value, err := store.Decode(data)
	if err != nil {
		return cty.NilVal, &store.Error{Op: "get", Key: key, Err: err}
	}
	return value, nil
}

// Set encodes and durably records a result under the key.
func (s *Store) Set(ctx context.Context, key callid.Key, value cty.Value) error {
	data, err := store.Encode(value)
	if err != nil {
		return &store.Error{Op: "set", Key: key, Err: err}
	}
	tmp, err := os.CreateTemp(s.dir, key.String()+".tmp-*")
	if err != nil {
		return &store.Error{Op: "set", Key: key, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &store.Error{Op: "set", Key: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &store.Error{Op: "set", Key: key, Err: err}
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		os.Remove(tmpName)
		return &store.Error{Op: "set", Key: key, Err: err}
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key callid.Key) error {
	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &store.Error{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// Keys lists every stored key by scanning the directory.
func (s *Store) Keys(ctx context.Context) ([]callid.Key, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &store.Error{Op: "keys", Err: err}
	}
	var keys []callid.Key
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		key, err := callid.ParseKey(strings.TrimSuffix(name, fileSuffix))
		if err != nil {
			continue // foreign file in the store directory
		}
		keys = append(keys, key)
	}
	return keys, nil
}
