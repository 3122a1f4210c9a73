// Recserve - Article Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recserve

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/recserve/internal/recommend"
)

// BadgerStore persists results in BadgerDB. Entries carry a native TTL so
// expired results disappear without a sweeper; Get also checks ExpiresAt
// because badger expiry has one-second granularity.
type BadgerStore struct {
	db  *badger.DB
	now func() time.Time
}

// OpenBadgerStore opens (or creates) a BadgerDB at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Disable badger's internal logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for recommendations: %w", err)
	}
	return &BadgerStore{db: db, now: time.Now}, nil
}

// Name returns the backend name.
func (s *BadgerStore) Name() string { return string(BackendBadger) }

// Get retrieves a user's result while it is fresh.
func (s *BadgerStore) Get(_ context.Context, userID string) (*recommend.RecommendationResult, bool, error) {
	var result *recommend.RecommendationResult

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(Key(userID)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get recommendations: %w", err)
		}
		return item.Value(func(val []byte) error {
			decoded, err := decodeResult(val)
			if err != nil {
				return err
			}
			result = decoded
			return nil
		})
	})
	if err != nil {
		return nil, false, err
	}
	if result == nil || !s.now().Before(result.ExpiresAt) {
		return nil, false, nil
	}
	return result, true, nil
}

// Put stores the result with a TTL matching its ExpiresAt. Already expired
// results are not written.
func (s *BadgerStore) Put(_ context.Context, userID string, result *recommend.RecommendationResult) error {
	if result == nil {
		return errors.New("cache: nil result")
	}
	ttl := result.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	data, err := encodeResult(result)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(Key(userID)), data).WithTTL(ttl)
		if err := txn.SetEntry(entry); err != nil {
			return fmt.Errorf("set recommendations: %w", err)
		}
		return nil
	})
}

// Invalidate deletes the user's entry.
func (s *BadgerStore) Invalidate(_ context.Context, userID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(Key(userID))); err != nil {
			return fmt.Errorf("delete recommendations: %w", err)
		}
		return nil
	})
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

var _ Store = (*BadgerStore)(nil)
