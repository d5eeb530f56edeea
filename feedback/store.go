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

package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ragware/ragloop/ai"
	"github.com/ragware/ragloop/core"
	"github.com/ragware/ragloop/storage"
)

// Store keeps an append-only history of answered queries and the feedback
// they received. Records are never updated in place; corrections create
// new records referencing the original.
type Store interface {
	// RecordResponse logs an answered query with its automatic evaluation.
	RecordResponse(ctx context.Context, query, response string, usedTools []string, successful bool) (*core.FeedbackRecord, error)

	// RecordFeedback logs a user's score and comment for a response.
	// The score must be in [1,5].
	RecordFeedback(ctx context.Context, query, response string, userScore int, feedbackText string) (*core.FeedbackRecord, error)

	// RecordCorrection logs a corrected response as a new record linked
	// to the original via metadata. The original is left untouched.
	RecordCorrection(ctx context.Context, originalId, correctedResponse string) (*core.FeedbackRecord, error)

	// SimilarFeedback finds feedback records for queries similar to the
	// given one, ordered by similarity.
	SimilarFeedback(ctx context.Context, query string, limit int) ([]*core.FeedbackRecord, error)

	// SimilarResponses finds past responses for queries similar to the
	// given one, ordered by similarity.
	SimilarResponses(ctx context.Context, query string, limit int) ([]*core.FeedbackRecord, error)

	// Stats reports aggregate statistics over user feedback records.
	Stats(ctx context.Context) (*core.FeedbackStats, error)
}

type feedbackStore struct {
	collection storage.Collection
	embedder   ai.Embedder
	evaluator  Evaluator
	logger     *slog.Logger
}

// NewStore creates a feedback store backed by the given collection.
//
// Returns the Store interface to enforce abstraction.
func NewStore(collection storage.Collection, embedder ai.Embedder, evaluator Evaluator) Store {
	return &feedbackStore{
		collection: collection,
		embedder:   embedder,
		evaluator:  evaluator,
		logger:     slog.Default().With("component", "feedback"),
	}
}

// RecordResponse logs an answered query with its automatic evaluation.
func (s *feedbackStore) RecordResponse(ctx context.Context, query, response string, usedTools []string, successful bool) (*core.FeedbackRecord, error) {
	if query == "" {
		return nil, core.ErrEmptyQuery
	}

	record := &core.FeedbackRecord{
		Id:            uuid.NewString(),
		Kind:          core.KindResponse,
		Query:         query,
		Response:      response,
		AutoEval:      s.evaluator.Evaluate(ctx, query, response),
		UsedTools:     usedTools,
		WasSuccessful: successful,
		Timestamp:     time.Now().UTC(),
	}
	if err := core.ValidateFeedbackRecord(record); err != nil {
		return nil, err
	}
	if err := s.save(ctx, record, nil); err != nil {
		return nil, err
	}
	return record, nil
}

// RecordFeedback logs a user's score and comment for a response.
func (s *feedbackStore) RecordFeedback(ctx context.Context, query, response string, userScore int, feedbackText string) (*core.FeedbackRecord, error) {
	if query == "" {
		return nil, core.ErrEmptyQuery
	}
	if err := core.ValidateScore(userScore); err != nil {
		return nil, err
	}

	record := &core.FeedbackRecord{
		Id:            uuid.NewString(),
		Kind:          core.KindFeedback,
		Query:         query,
		Response:      response,
		UserScore:     userScore,
		FeedbackText:  feedbackText,
		AutoEval:      s.evaluator.Evaluate(ctx, query, response),
		WasSuccessful: userScore >= 3,
		Timestamp:     time.Now().UTC(),
	}
	if err := core.ValidateFeedbackRecord(record); err != nil {
		return nil, err
	}
	if err := s.save(ctx, record, nil); err != nil {
		return nil, err
	}
	return record, nil
}

// RecordCorrection logs a corrected response as a new record.
func (s *feedbackStore) RecordCorrection(ctx context.Context, originalId, correctedResponse string) (*core.FeedbackRecord, error) {
	if correctedResponse == "" {
		return nil, core.ErrEmptyResponse
	}

	original, err := s.load(ctx, originalId)
	if err != nil {
		return nil, err
	}

	record := &core.FeedbackRecord{
		Id:            uuid.NewString(),
		Kind:          core.KindCorrection,
		Query:         original.Query,
		Response:      correctedResponse,
		AutoEval:      s.evaluator.Evaluate(ctx, original.Query, correctedResponse),
		WasSuccessful: true,
		Timestamp:     time.Now().UTC(),
	}
	extra := map[string]string{"corrects": originalId}
	if err := s.save(ctx, record, extra); err != nil {
		return nil, err
	}
	return record, nil
}

// SimilarFeedback finds feedback records for similar queries.
func (s *feedbackStore) SimilarFeedback(ctx context.Context, query string, limit int) ([]*core.FeedbackRecord, error) {
	return s.similar(ctx, query, limit, core.KindFeedback)
}

// SimilarResponses finds past responses for similar queries.
func (s *feedbackStore) SimilarResponses(ctx context.Context, query string, limit int) ([]*core.FeedbackRecord, error) {
	return s.similar(ctx, query, limit, core.KindResponse)
}

// Stats reports aggregate statistics over user feedback records.
func (s *feedbackStore) Stats(ctx context.Context) (*core.FeedbackStats, error) {
	records, err := s.collection.Get(ctx, map[string]string{"kind": string(core.KindFeedback)})
	if err != nil {
		return nil, err
	}

	stats := &core.FeedbackStats{TotalFeedback: len(records)}
	total := 0
	for _, r := range records {
		record, err := decodeRecord(r)
		if err != nil {
			s.logger.Warn("skipping unreadable feedback record", "id", r.Id, "err", err)
			stats.TotalFeedback--
			continue
		}
		total += record.UserScore
	}
	if stats.TotalFeedback > 0 {
		stats.AverageScore = float64(total) / float64(stats.TotalFeedback)
	}
	return stats, nil
}

// similar runs an ANN query restricted to one record kind.
func (s *feedbackStore) similar(ctx context.Context, query string, limit int, kind core.RecordKind) ([]*core.FeedbackRecord, error) {
	if query == "" {
		return nil, core.ErrEmptyQuery
	}

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := s.collection.Query(ctx, vector, limit, map[string]string{"kind": string(kind)})
	if err != nil {
		return nil, err
	}

	records := make([]*core.FeedbackRecord, 0, len(matches))
	for _, m := range matches {
		record, err := decodeRecord(m.Record)
		if err != nil {
			s.logger.Warn("skipping unreadable record", "id", m.Record.Id, "err", err)
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// save embeds the record's query and persists it.
func (s *feedbackStore) save(ctx context.Context, record *core.FeedbackRecord, extra map[string]string) error {
	vector, err := s.embedder.EmbedText(ctx, record.Query)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrSerializationFailed, err)
	}

	metadata := map[string]string{
		"kind":    string(record.Kind),
		"payload": string(payload),
	}
	for k, v := range extra {
		metadata[k] = v
	}

	return s.collection.Add(ctx, &storage.Record{
		Id:       record.Id,
		Document: record.Query,
		Vector:   vector,
		Metadata: metadata,
	})
}

// load fetches and decodes a stored feedback record by id.
func (s *feedbackStore) load(ctx context.Context, id string) (*core.FeedbackRecord, error) {
	stored, err := s.collection.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return decodeRecord(stored)
}

// decodeRecord unpacks the feedback payload carried in record metadata.
func decodeRecord(r *storage.Record) (*core.FeedbackRecord, error) {
	var record core.FeedbackRecord
	if err := json.Unmarshal([]byte(r.Metadata["payload"]), &record); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrSerializationFailed, err)
	}
	return &record, nil
}
