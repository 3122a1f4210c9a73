// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tomtom215/recserve/internal/recommend"
)

// Seed is a YAML fixture describing the initial content of a MemoryStore.
//
//	articles:
//	  - id: a1
//	    status: published
//	    category: tech
//	    tags: [go, databases]
//	    published_at: 2026-01-02T15:04:05Z
//	    trending_score: 12.5
//	embeddings:
//	  - entity_id: u1
//	    entity_type: user
//	    model_type: two_tower
//	    model_version: v1
//	    vector: [0.1, 0.2]
//	    dimension: 2
//	    is_active: true
type Seed struct {
	Articles     []recommend.Article         `yaml:"articles"`
	Embeddings   []recommend.Embedding       `yaml:"embeddings"`
	Preferences  []recommend.UserPreferences `yaml:"preferences"`
	Interactions []recommend.Interaction     `yaml:"interactions"`
}

// LoadSeedFile parses a seed file.
func LoadSeedFile(path string) (*Seed, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from trusted configuration
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // read-only file

	return DecodeSeed(f)
}

// DecodeSeed parses a seed document. Unknown fields are rejected.
func DecodeSeed(r io.Reader) (*Seed, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var seed Seed
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return &seed, nil
}

// Apply loads the seed into the store. Every invalid row is reported; valid
// rows are kept.
func (s *MemoryStore) Apply(seed *Seed) error {
	var errs []error
	for i := range seed.Articles {
		if err := s.PutArticle(seed.Articles[i]); err != nil {
			errs = append(errs, fmt.Errorf("articles[%d]: %w", i, err))
		}
	}
	for i := range seed.Embeddings {
		if err := s.PutEmbedding(seed.Embeddings[i]); err != nil {
			errs = append(errs, fmt.Errorf("embeddings[%d]: %w", i, err))
		}
	}
	for i := range seed.Preferences {
		if err := s.PutPreferences(seed.Preferences[i]); err != nil {
			errs = append(errs, fmt.Errorf("preferences[%d]: %w", i, err))
		}
	}
	for i := range seed.Interactions {
		if err := s.RecordInteraction(context.Background(), seed.Interactions[i]); err != nil {
			errs = append(errs, fmt.Errorf("interactions[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
