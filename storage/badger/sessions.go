// Copyright 2025 Ragware Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/ragware/ragloop/core"
	"github.com/ragware/ragloop/storage"
)

// SessionRepository implements storage.SessionRepository for BadgerDB.
type SessionRepository struct {
	backend *Backend
	logger  *slog.Logger
}

var _ storage.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a session repository bound to the given backend.
//
// Returns storage.SessionRepository interface to enforce abstraction.
func NewSessionRepository(backend *Backend) storage.SessionRepository {
	return &SessionRepository{
		backend: backend,
		logger:  slog.Default().With("component", "badger-sessions"),
	}
}

// Save stores a session log, overwriting any existing log with the same Id.
func (r *SessionRepository) Save(ctx context.Context, log *core.SessionLog) error {
	value, err := storage.MarshalSessionLog(log)
	if err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeSessionKey(log.Id), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Get retrieves a session log by its Id.
func (r *SessionRepository) Get(ctx context.Context, id string) (*core.SessionLog, error) {
	var result *core.SessionLog
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeSessionKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = storage.UnmarshalSessionLog(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}

// FindSimilar finds successful sessions whose query shares words with the
// given query. Matching is lexical word overlap, not vector similarity, so
// it stays available when the embedding service is down.
func (r *SessionRepository) FindSimilar(ctx context.Context, query string, limit int) ([]*core.SessionLog, error) {
	queryWords := tokenizeAndFilter(query)
	if len(queryWords) == 0 {
		return nil, nil
	}
	querySet := make(map[string]bool, len(queryWords))
	for _, w := range queryWords {
		querySet[w] = true
	}

	type scored struct {
		log   *core.SessionLog
		score float64
	}
	var candidates []scored

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = sessionPrefix()
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var log *core.SessionLog
			err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				log, unmarshalErr = storage.UnmarshalSessionLog(val)
				return unmarshalErr
			})
			if err != nil {
				return err
			}
			if log == nil || !log.Succeeded {
				continue
			}

			overlap := 0
			for _, w := range tokenizeAndFilter(log.Query) {
				if querySet[w] {
					overlap++
				}
			}
			if overlap == 0 {
				continue
			}
			candidates = append(candidates, scored{
				log:   log,
				score: float64(overlap) / float64(len(querySet)),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Sort by overlap descending
	slices.SortStableFunc(candidates, func(a, b scored) int {
		if a.score > b.score {
			return -1
		}
		if a.score < b.score {
			return 1
		}
		return 0
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	results := make([]*core.SessionLog, len(candidates))
	for i, c := range candidates {
		results[i] = c.log
	}
	return results, nil
}

// Close releases resources held by the repository.
// The shared backend is closed by its owner, not here.
func (r *SessionRepository) Close() error {
	return nil
}

// Stop words to filter out when scoring query overlap
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
}

// tokenizeAndFilter splits text into words, lowercases, trims punctuation, and removes stop words
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}
