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

package tools

import (
	"context"
	"strings"

	"github.com/ragware/ragloop/agent"
	"github.com/ragware/ragloop/core"
)

// Retriever answers a question from stored knowledge. Implemented by
// the engine's retrieval pipeline.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (string, error)
}

// knowledgeSearch is an agent tool that answers a question through the
// retrieval pipeline: cache, expansion, reranking and synthesis.
type knowledgeSearch struct {
	retriever Retriever
}

// NewKnowledgeSearch creates the knowledge lookup tool.
func NewKnowledgeSearch(retriever Retriever) agent.Tool {
	return &knowledgeSearch{retriever: retriever}
}

func (t *knowledgeSearch) Name() string {
	return "knowledge_search"
}

func (t *knowledgeSearch) Description() string {
	return "answers a question from the stored knowledge base; input is the question"
}

// Invoke runs the retrieval pipeline on the input.
func (t *knowledgeSearch) Invoke(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", core.ErrEmptyQuery
	}
	return t.retriever.Retrieve(ctx, input)
}
