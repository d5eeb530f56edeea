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

package storage

import (
	"encoding/json"
	"fmt"

	"github.com/ragware/ragloop/core"
)

// storedRecord is the on-disk shape of a Record.
type storedRecord struct {
	Id       string            `json:"id"`
	Document string            `json:"document"`
	Vector   []float32         `json:"vector,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// MarshalRecord serializes a Record to bytes.
func MarshalRecord(record *Record) ([]byte, error) {
	data, err := json.Marshal(storedRecord(*record))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalRecord deserializes a Record from bytes.
func UnmarshalRecord(data []byte) (*Record, error) {
	var stored storedRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	record := Record(stored)
	return &record, nil
}

// MarshalSessionLog serializes a SessionLog to bytes.
func MarshalSessionLog(log *core.SessionLog) ([]byte, error) {
	data, err := json.Marshal(log)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalSessionLog deserializes a SessionLog from bytes.
func UnmarshalSessionLog(data []byte) (*core.SessionLog, error) {
	var log core.SessionLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerializationFailed, err)
	}
	return &log, nil
}
