// Package datastore is a small JSON-file-backed key/value store with
// periodic autosave and atomic writes.
package datastore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

const defaultAutoSaveInterval = 10 * time.Second

var ErrClosed = errors.New("datastore is closed")

type DataStore struct {
	mu           sync.RWMutex
	data         map[string]json.RawMessage
	file         string
	lastChecksum string
	closed       bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    zerolog.Logger
}

// New opens (or creates) the store at filePath and starts the autosave loop.
func New(filePath string) (*DataStore, error) {
	if filePath == "" {
		return nil, errors.New("file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	ds := &DataStore{
		data:   make(map[string]json.RawMessage),
		file:   filePath,
		ctx:    ctx,
		cancel: cancel,
		log:    zlog.With().Str("component", "datastore").Logger(),
	}

	if _, err := os.Stat(filePath); err == nil {
		if err := ds.load(); err != nil {
			cancel()
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		cancel()
		return nil, err
	}

	ds.wg.Add(1)
	go ds.autoSave()
	return ds, nil
}

// Get unmarshals the value stored under key into out. The second return is
// false when the key is absent.
func (ds *DataStore) Get(key string, out any) (bool, error) {
	ds.mu.RLock()
	raw, ok := ds.data[key]
	ds.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

// Set stores value under key.
func (ds *DataStore) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.closed {
		return ErrClosed
	}
	ds.data[key] = raw
	return nil
}

// Delete removes a key. Unknown keys are a no-op.
func (ds *DataStore) Delete(key string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	delete(ds.data, key)
}

// Close stops the autosave loop and flushes to disk.
func (ds *DataStore) Close() error {
	ds.mu.Lock()
	if ds.closed {
		ds.mu.Unlock()
		return nil
	}
	ds.closed = true
	ds.mu.Unlock()

	ds.cancel()
	ds.wg.Wait()
	return ds.save()
}

func (ds *DataStore) autoSave() {
	defer ds.wg.Done()
	ticker := time.NewTicker(defaultAutoSaveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ds.ctx.Done():
			return
		case <-ticker.C:
			if err := ds.save(); err != nil {
				ds.log.Error().Err(err).Msg("autosave failed")
			}
		}
	}
}

func (ds *DataStore) load() error {
	raw, err := os.ReadFile(ds.file)
	if err != nil {
		return err
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return json.Unmarshal(raw, &ds.data)
}

// save writes the store atomically, skipping the write when nothing changed
// since the last save.
func (ds *DataStore) save() error {
	ds.mu.RLock()
	raw, err := json.MarshalIndent(ds.data, "", "  ")
	ds.mu.RUnlock()
	if err != nil {
		return err
	}

	sum := sha256.Sum256(raw)
	checksum := hex.EncodeToString(sum[:])
	ds.mu.Lock()
	unchanged := checksum == ds.lastChecksum
	ds.mu.Unlock()
	if unchanged {
		return nil
	}

	tmp := ds.file + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, ds.file); err != nil {
		return err
	}

	ds.mu.Lock()
	ds.lastChecksum = checksum
	ds.mu.Unlock()
	return nil
}
