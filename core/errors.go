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

import "errors"

// Domain validation errors
var (
	// ErrEmptyQuery indicates an empty query string.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrEmptyResponse indicates an empty response string.
	ErrEmptyResponse = errors.New("response cannot be empty")

	// ErrScoreOutOfRange indicates a user score outside [1,5].
	ErrScoreOutOfRange = errors.New("score must be between 1 and 5")

	// ErrInvalidTimestamp indicates a timestamp in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrInvalidRecordKind indicates an unknown record kind.
	ErrInvalidRecordKind = errors.New("invalid record kind")
)
