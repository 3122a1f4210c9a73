// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/recserve/internal/recommend"
)

// snapshotSuffix is the file extension of embedding snapshots.
const snapshotSuffix = ".gob.gz"

// ErrNoSnapshot is returned when no snapshot exists for a model.
var ErrNoSnapshot = errors.New("no snapshot")

// SnapshotMetadata describes one embedding snapshot written by the
// training job.
type SnapshotMetadata struct {
	// ModelType is the model family in the snapshot.
	ModelType recommend.ModelType `json:"model_type"`

	// Sequence increases with every snapshot of the model type.
	Sequence int `json:"sequence"`

	// ModelVersion is the training run label of the active embeddings.
	ModelVersion string `json:"model_version"`

	// TrainedAt is when the embeddings were produced.
	TrainedAt time.Time `json:"trained_at"`

	// SavedAt is when the snapshot was written.
	SavedAt time.Time `json:"saved_at"`

	// EmbeddingCount is the number of embeddings in the snapshot.
	EmbeddingCount int `json:"embedding_count"`

	// Checksum is the SHA-256 of the uncompressed payload.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed payload size.
	SizeBytes int64 `json:"size_bytes"`
}

// snapshotFile is the on-disk format.
type snapshotFile struct {
	Metadata       SnapshotMetadata
	CompressedData []byte
}

// SnapshotStore reads and writes gzip-compressed, gob-encoded embedding
// snapshots named {model}_v{sequence}.gob.gz. The training job saves new
// sequences; the serving process rescans and loads the latest.
type SnapshotStore struct {
	baseDir string
	mu      sync.RWMutex

	// latest sequence per model type
	sequences map[recommend.ModelType]int
}

// NewSnapshotStore opens the snapshot directory, creating it if needed.
func NewSnapshotStore(baseDir string) (*SnapshotStore, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for snapshot storage
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}

	s := &SnapshotStore{
		baseDir:   baseDir,
		sequences: make(map[recommend.ModelType]int),
	}
	if err := s.Rescan(); err != nil {
		return nil, fmt.Errorf("scan existing snapshots: %w", err)
	}
	return s, nil
}

// Rescan refreshes the known sequences from the directory.
func (s *SnapshotStore) Rescan() error {
	found, err := s.scan()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.sequences = make(map[recommend.ModelType]int, len(found))
	for model, seqs := range found {
		s.sequences[model] = seqs[0]
	}
	s.mu.Unlock()
	return nil
}

// scan returns every sequence per model, newest first.
func (s *SnapshotStore) scan() (map[recommend.ModelType][]int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}

	found := make(map[recommend.ModelType][]int)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), snapshotSuffix) {
			continue
		}
		model, seq, ok := parseSnapshotFilename(strings.TrimSuffix(entry.Name(), snapshotSuffix))
		if !ok {
			continue
		}
		found[model] = append(found[model], seq)
	}
	for model := range found {
		sort.Sort(sort.Reverse(sort.IntSlice(found[model])))
	}
	return found, nil
}

// parseSnapshotFilename splits "two_tower_v12" into its model and sequence.
func parseSnapshotFilename(name string) (recommend.ModelType, int, bool) {
	i := strings.LastIndex(name, "_v")
	if i <= 0 {
		return "", 0, false
	}
	model := recommend.ModelType(name[:i])
	if !model.Valid() {
		return "", 0, false
	}
	var seq int
	if _, err := fmt.Sscanf(name[i+2:], "%d", &seq); err != nil || seq <= 0 {
		return "", 0, false
	}
	return model, seq, true
}

// Save writes a snapshot. Metadata fields derived from the payload are
// filled in.
//
//nolint:gocritic // meta passed by value is acceptable for this write operation
func (s *SnapshotStore) Save(_ context.Context, model recommend.ModelType, seq int, embeddings []recommend.Embedding, meta SnapshotMetadata) error {
	if !model.Valid() {
		return fmt.Errorf("unknown model type %q", model)
	}
	if seq <= 0 {
		return fmt.Errorf("snapshot sequence must be positive, got %d", seq)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(embeddings); err != nil {
		return fmt.Errorf("encode embeddings: %w", err)
	}
	rawData := buf.Bytes()

	hash := sha256.Sum256(rawData)
	meta.Checksum = hex.EncodeToString(hash[:])

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(rawData); err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	meta.ModelType = model
	meta.Sequence = seq
	meta.EmbeddingCount = len(embeddings)
	meta.SizeBytes = int64(compressed.Len())
	meta.SavedAt = time.Now()

	// Write to a temp file and rename so readers never see a partial file.
	final := s.snapshotPath(model, seq)
	tmp := final + ".tmp"
	f, err := os.Create(tmp) //nolint:gosec // path is built from a validated model type
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(snapshotFile{Metadata: meta, CompressedData: compressed.Bytes()}); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write snapshot file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close snapshot file: %w", err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return fmt.Errorf("publish snapshot file: %w", err)
	}

	if seq > s.sequences[model] {
		s.sequences[model] = seq
	}
	return nil
}

// Load reads a snapshot and verifies its checksum. A sequence of 0 loads
// the latest.
func (s *SnapshotStore) Load(_ context.Context, model recommend.ModelType, seq int) ([]recommend.Embedding, *SnapshotMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if seq == 0 {
		var ok bool
		seq, ok = s.sequences[model]
		if !ok {
			return nil, nil, fmt.Errorf("%s: %w", model, ErrNoSnapshot)
		}
	}

	f, err := os.Open(s.snapshotPath(model, seq)) //nolint:gosec // path is built from a validated model type
	if err != nil {
		return nil, nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	var sf snapshotFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, nil, fmt.Errorf("read snapshot file: %w", err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	rawData, err := io.ReadAll(gzr)
	if err != nil {
		return nil, nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(rawData)
	if checksum := hex.EncodeToString(hash[:]); checksum != sf.Metadata.Checksum {
		return nil, nil, fmt.Errorf("checksum mismatch: expected %s, got %s", sf.Metadata.Checksum, checksum)
	}

	var embeddings []recommend.Embedding
	if err := gob.NewDecoder(bytes.NewReader(rawData)).Decode(&embeddings); err != nil {
		return nil, nil, fmt.Errorf("decode embeddings: %w", err)
	}
	return embeddings, &sf.Metadata, nil
}

// LatestSequence returns the newest known sequence of a model.
func (s *SnapshotStore) LatestSequence(model recommend.ModelType) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq, ok := s.sequences[model]
	return seq, ok
}

// Prune deletes all but the newest keep snapshots of a model.
func (s *SnapshotStore) Prune(_ context.Context, model recommend.ModelType, keep int) error {
	if keep < 1 {
		keep = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	found, err := s.scan()
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}
	seqs := found[model]
	for i := keep; i < len(seqs); i++ {
		_ = os.Remove(s.snapshotPath(model, seqs[i])) //nolint:errcheck // best-effort cleanup of old snapshots
	}
	return nil
}

func (s *SnapshotStore) snapshotPath(model recommend.ModelType, seq int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d%s", model, seq, snapshotSuffix))
}
