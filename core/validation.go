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


package core

import (
	"fmt"
	"time"
)

// ValidateFeedbackRecord validates a FeedbackRecord according to domain rules.
//
// Validation rules:
//   - Query must not be empty
//   - Kind must be a feedback-family kind
//   - UserScore, when present (non-zero), must be in [1,5]
//   - Timestamp must not be in the future
//
// NOT validated:
//   - AutoEval (a degraded {1,1,1,comment} evaluation is legitimate)
//   - Response (correction records carry no response)
func ValidateFeedbackRecord(record *FeedbackRecord) error {
	if record == nil {
		return fmt.Errorf("feedback record is nil")
	}

	if record.Query == "" {
		return ErrEmptyQuery
	}

	switch record.Kind {
	case KindFeedback, KindResponse, KindCorrection:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRecordKind, record.Kind)
	}

	if record.UserScore != 0 {
		if err := ValidateScore(record.UserScore); err != nil {
			return err
		}
	}

	if !IsValidTimestamp(record.Timestamp) {
		return ErrInvalidTimestamp
	}

	return nil
}

// ValidateScore validates that a user score is in [1,5].
func ValidateScore(score int) error {
	if score < 1 || score > 5 {
		return fmt.Errorf("%w: got %d", ErrScoreOutOfRange, score)
	}
	return nil
}

// ClampScore forces an evaluation score into [1,5]. Values below the range
// (including the zero value from a failed parse) become 1.
func ClampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 5 {
		return 5
	}
	return score
}

// IsValidTimestamp checks if a timestamp is valid (not in the future).
func IsValidTimestamp(ts time.Time) bool {
	return !ts.After(time.Now())
}
