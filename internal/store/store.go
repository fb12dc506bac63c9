// Package store persists posts, tags, and users in a Badger key-value
// database.
//
// Key layout:
//
//	posts:<id>      Post record (stringified integer id)
//	tags:<id>       Tag record
//	users:<id>      User record
//	seq:<entity>    monotonic id counter per entity type
//	hash:<digest>   content digest -> post id (dedup index)
package store

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/sambooru/sambooru-server/internal/domain"
)

// seqBandwidth is how many ids a cached sequence leases at a time.
// Leased-but-unused ids are lost on restart; counters are gap-tolerant.
const seqBandwidth = 64

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	seqMu sync.Mutex
	seqs  map[string]*badger.Sequence

	// Typed entities.
	Posts *Entity[domain.Post]
	Tags  *Entity[domain.Tag]
	Users *Entity[domain.User]
}

// New creates a new Store instance with the given database path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Sync writes to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
		seqs:   make(map[string]*badger.Sequence),
	}

	s.Posts = NewEntity[domain.Post](s, "posts:")
	s.Tags = NewEntity[domain.Tag](s, "tags:")
	s.Users = NewEntity[domain.User](s, "users:")

	if logger != nil {
		logger.Info("badger database opened", "path", path)
	}

	return s, nil
}

// Close releases id sequences and closes the database.
func (s *Store) Close() error {
	s.seqMu.Lock()
	for _, seq := range s.seqs {
		_ = seq.Release()
	}
	s.seqs = make(map[string]*badger.Sequence)
	s.seqMu.Unlock()

	if s.logger != nil {
		s.logger.Info("closing database")
	}
	return s.db.Close()
}

// NextID allocates the next id for an entity type ("posts", "tags", ...).
// IDs are strictly increasing, gap-tolerant, and unique under concurrent
// callers — Badger sequences hand out each value exactly once.
func (s *Store) NextID(entity string) (string, error) {
	seq, err := s.sequence(entity)
	if err != nil {
		return "", err
	}

	n, err := seq.Next()
	if err != nil {
		return "", fmt.Errorf("next id for %s: %w", entity, err)
	}

	// Sequences start at zero; record ids are 1-based.
	return strconv.FormatUint(n+1, 10), nil
}

// sequence returns the cached Badger sequence for an entity type.
func (s *Store) sequence(entity string) (*badger.Sequence, error) {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()

	if seq, ok := s.seqs[entity]; ok {
		return seq, nil
	}

	seq, err := s.db.GetSequence([]byte("seq:"+entity), seqBandwidth)
	if err != nil {
		return nil, fmt.Errorf("open sequence for %s: %w", entity, err)
	}
	s.seqs[entity] = seq
	return seq, nil
}
