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

// Package storage provides the storage abstraction layer for ragloop.
//
// This package defines the Collection and SessionRepository interfaces that
// decouple storage implementation from the retrieval pipeline. It allows for
// different storage backends (BadgerDB, in-memory, etc.) to be used
// interchangeably.
//
// # Constructor Return Type Pattern
//
// This package follows a strict "return interface" pattern for all public
// constructors to enforce abstraction and enable multiple storage backend
// implementations:
//
//	col, err := badger.NewCollection(backend, "knowledge")  // returns storage.Collection
//
// This design decision prioritizes:
//   - Abstraction: Prevents accidental coupling to BadgerDB specifics
//   - Swappability: Easy to add alternative backends (PostgreSQL, in-memory, etc.)
//   - Testing: Consumers can use mock implementations without modification
//
// # Architecture
//
// The storage layer holds three kinds of data:
//
//   - Collection "knowledge": retrievable passages with embeddings
//   - Collection "memory": cached queries, expansions, feedback and responses,
//     discriminated by the "kind" metadata key
//   - SessionRepository: reasoning session logs used for fallback replay
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access from
// multiple goroutines.
//
// # Context Support
//
// All methods accept context.Context for cancellation and timeout support.
// Pass context.Background() for operations without specific timeout
// requirements.
package storage
