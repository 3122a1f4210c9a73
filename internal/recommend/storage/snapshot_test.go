// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package storage

import (
	"context"
	"encoding/gob"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/recserve/internal/recommend"
)

func snapshotRows(version string) []recommend.Embedding {
	return []recommend.Embedding{
		emb("u1", recommend.EntityUser, recommend.ModelTwoTower, version, true, 1, 0),
		emb("a1", recommend.EntityArticle, recommend.ModelTwoTower, version, true, 0.9, 0.1),
		emb("a2", recommend.EntityArticle, recommend.ModelTwoTower, version, true, 0.1, 0.9),
	}
}

func TestSnapshotStore_SaveLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, err := NewSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSnapshotStore() error = %v", err)
	}

	if _, _, err := s.Load(ctx, recommend.ModelTwoTower, 0); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("Load() on empty dir error = %v, want ErrNoSnapshot", err)
	}

	if err := s.Save(ctx, recommend.ModelTwoTower, 1, snapshotRows("v1"), SnapshotMetadata{ModelVersion: "v1"}); err != nil {
		t.Fatalf("Save(1) error = %v", err)
	}
	if err := s.Save(ctx, recommend.ModelTwoTower, 2, snapshotRows("v2"), SnapshotMetadata{ModelVersion: "v2"}); err != nil {
		t.Fatalf("Save(2) error = %v", err)
	}

	rows, meta, err := s.Load(ctx, recommend.ModelTwoTower, 0)
	if err != nil {
		t.Fatalf("Load(latest) error = %v", err)
	}
	if meta.Sequence != 2 || meta.ModelVersion != "v2" || meta.EmbeddingCount != 3 || meta.Checksum == "" {
		t.Errorf("metadata = %+v", meta)
	}
	if len(rows) != 3 || rows[1].EntityID != "a1" || rows[1].Vector[0] != 0.9 {
		t.Errorf("rows = %+v", rows)
	}

	if _, meta, err := s.Load(ctx, recommend.ModelTwoTower, 1); err != nil || meta.ModelVersion != "v1" {
		t.Errorf("Load(1) = %+v, %v", meta, err)
	}

	if err := s.Save(ctx, "bogus", 1, nil, SnapshotMetadata{}); err == nil {
		t.Error("Save() should reject unknown model types")
	}
	if err := s.Save(ctx, recommend.ModelCNN, 0, nil, SnapshotMetadata{}); err == nil {
		t.Error("Save() should reject non-positive sequences")
	}
}

func TestSnapshotStore_RescanAndPrune(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	writer, err := NewSnapshotStore(dir)
	if err != nil {
		t.Fatalf("NewSnapshotStore() error = %v", err)
	}
	for seq := 1; seq <= 3; seq++ {
		if err := writer.Save(ctx, recommend.ModelHybrid, seq, snapshotRows("v"), SnapshotMetadata{}); err != nil {
			t.Fatalf("Save(%d) error = %v", seq, err)
		}
	}
	// Unrelated files are ignored.
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600)
	_ = os.WriteFile(filepath.Join(dir, "word2vec_v1.gob.gz"), []byte("x"), 0o600)

	reader, err := NewSnapshotStore(dir)
	if err != nil {
		t.Fatalf("NewSnapshotStore() error = %v", err)
	}
	if seq, ok := reader.LatestSequence(recommend.ModelHybrid); !ok || seq != 3 {
		t.Errorf("LatestSequence() = %d, %v; want 3, true", seq, ok)
	}

	if err := reader.Prune(ctx, recommend.ModelHybrid, 1); err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	entries, _ := os.ReadDir(dir)
	var kept []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "hybrid_") {
			kept = append(kept, e.Name())
		}
	}
	if len(kept) != 1 || kept[0] != "hybrid_v3.gob.gz" {
		t.Errorf("kept = %v, want [hybrid_v3.gob.gz]", kept)
	}
}

func TestSnapshotStore_ChecksumMismatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewSnapshotStore(dir)
	if err != nil {
		t.Fatalf("NewSnapshotStore() error = %v", err)
	}
	if err := s.Save(ctx, recommend.ModelCNN, 1, snapshotRows("v1"), SnapshotMetadata{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Rewrite the file with a tampered checksum.
	path := filepath.Join(dir, "cnn_v1.gob.gz")
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var sf snapshotFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		t.Fatalf("decode: %v", err)
	}
	_ = f.Close()
	sf.Metadata.Checksum = "deadbeef"
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := gob.NewEncoder(out).Encode(sf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	_ = out.Close()

	if _, _, err := s.Load(ctx, recommend.ModelCNN, 1); err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("Load() error = %v, want checksum mismatch", err)
	}
}

func TestParseSnapshotFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		model  recommend.ModelType
		seq    int
		wantOK bool
	}{
		{name: "two_tower_v12", model: recommend.ModelTwoTower, seq: 12, wantOK: true},
		{name: "gnn_v1", model: recommend.ModelGNN, seq: 1, wantOK: true},
		{name: "gnn_v0"},
		{name: "gnn_vx"},
		{name: "word2vec_v1"},
		{name: "_v1"},
		{name: "gnn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			model, seq, ok := parseSnapshotFilename(tt.name)
			if ok != tt.wantOK || model != tt.model || seq != tt.seq {
				t.Errorf("parseSnapshotFilename(%q) = %q, %d, %v", tt.name, model, seq, ok)
			}
		})
	}
}

func TestRefresher(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	snapshots, err := NewSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSnapshotStore() error = %v", err)
	}
	store := NewMemoryStore()
	r := NewRefresher(snapshots, store, zerolog.Nop())

	if n, err := r.Refresh(ctx); err != nil || n != 0 {
		t.Fatalf("Refresh() on empty dir = %d, %v", n, err)
	}

	if err := snapshots.Save(ctx, recommend.ModelTwoTower, 1, snapshotRows("v1"), SnapshotMetadata{ModelVersion: "v1"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if n, err := r.Refresh(ctx); err != nil || n != 1 {
		t.Fatalf("Refresh() = %d, %v; want 1 model loaded", n, err)
	}
	if r.LoadedSequence(recommend.ModelTwoTower) != 1 {
		t.Errorf("LoadedSequence() = %d, want 1", r.LoadedSequence(recommend.ModelTwoTower))
	}
	got, err := store.GetEmbedding(ctx, "a1", recommend.EntityArticle, recommend.ModelTwoTower)
	if err != nil || got.ModelVersion != "v1" {
		t.Fatalf("GetEmbedding() = %+v, %v", got, err)
	}

	// Unchanged snapshots are not reloaded.
	if n, _ := r.Refresh(ctx); n != 0 {
		t.Errorf("Refresh() reloaded %d unchanged models", n)
	}

	if err := snapshots.Save(ctx, recommend.ModelTwoTower, 2, snapshotRows("v2"), SnapshotMetadata{ModelVersion: "v2"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if n, err := r.Refresh(ctx); err != nil || n != 1 {
		t.Fatalf("Refresh() = %d, %v; want 1", n, err)
	}
	versions, _ := store.GetActiveModelVersions(ctx, recommend.ModelTwoTower)
	if len(versions) != 1 || versions[0] != "v2" {
		t.Errorf("active versions = %v, want [v2]", versions)
	}
}
