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

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ragware/ragloop/ai"
	"github.com/ragware/ragloop/core"
	"github.com/ragware/ragloop/storage"
)

const (
	// DefaultMaxIterations bounds the reasoning loop.
	DefaultMaxIterations = 10

	// fallbackSessionCount is how many similar sessions feed the replay.
	fallbackSessionCount = 2
)

// Result is the outcome of one reasoning session.
type Result struct {
	Answer    string
	UsedTools []string
	Succeeded bool
	SessionId string
}

// Agent runs a bounded think/act/observe loop over a tool registry.
// Provider failures never surface as errors: the agent degrades through
// session replay down to a canned refusal.
type Agent struct {
	generator     ai.Generator
	tools         *Registry
	sessions      storage.SessionRepository
	maxIterations int
	logger        *slog.Logger
}

// Option configures an Agent.
type Option func(*Agent) error

// WithMaxIterations bounds the reasoning loop. Default is 10.
func WithMaxIterations(n int) Option {
	return func(a *Agent) error {
		if n < 1 {
			return fmt.Errorf("agent: max iterations must be positive, got %d", n)
		}
		a.maxIterations = n
		return nil
	}
}

// New creates an agent over the given tools.
func New(generator ai.Generator, tools *Registry, sessions storage.SessionRepository, opts ...Option) (*Agent, error) {
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	if sessions == nil {
		return nil, ErrSessionsRequired
	}
	if tools == nil {
		tools = NewRegistry()
	}

	a := &Agent{
		generator:     generator,
		tools:         tools,
		sessions:      sessions,
		maxIterations: DefaultMaxIterations,
		logger:        slog.Default().With("component", "agent"),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Run answers the query with a bounded reasoning loop.
// The returned error covers structural problems only (empty query);
// every provider failure degrades to a fallback answer instead.
func (a *Agent) Run(ctx context.Context, query string) (*Result, error) {
	if query == "" {
		return nil, core.ErrEmptyQuery
	}

	started := time.Now().UTC()
	session := &core.SessionLog{
		Id:        makeSessionId(started, query),
		Query:     query,
		StartedAt: started,
	}

	systemPrompt := buildSystemPrompt(a.tools)
	transcript := []string{fmt.Sprintf("Question: %s", query)}
	var usedTools []string
	seenTools := map[string]bool{}

	for i := 0; i < a.maxIterations; i++ {
		response, err := a.generator.Generate(ctx, []string{systemPrompt}, transcript,
			ai.WithTemperature(0.0))
		if err != nil {
			a.logger.Warn("generation failed, entering fallback", "iteration", i, "err", err)
			a.finish(ctx, session, "", false)
			return &Result{
				Answer:    a.fallback(ctx, query),
				UsedTools: usedTools,
				SessionId: session.Id,
			}, nil
		}

		st := parseStep(response)

		if st.isFinal() {
			session.Steps = append(session.Steps, core.AgentStep{
				Thought:     st.thought,
				FinalAnswer: st.finalAnswer,
				At:          time.Now().UTC(),
			})
			a.finish(ctx, session, st.finalAnswer, true)
			a.logger.Info("reasoning finished", "session", session.Id, "iterations", i+1)
			return &Result{
				Answer:    st.finalAnswer,
				UsedTools: usedTools,
				Succeeded: true,
				SessionId: session.Id,
			}, nil
		}

		observation := a.act(ctx, st)
		if tool, ok := a.tools.Get(st.action); ok && !seenTools[tool.Name()] {
			seenTools[tool.Name()] = true
			usedTools = append(usedTools, tool.Name())
		}

		session.Steps = append(session.Steps, core.AgentStep{
			Thought:     st.thought,
			Action:      st.action,
			ActionInput: st.actionInput,
			Observation: observation,
			At:          time.Now().UTC(),
		})
		a.save(ctx, session)

		transcript = append(transcript, response, fmt.Sprintf("Observation: %s", observation))
	}

	a.logger.Warn("reasoning loop exhausted", "session", session.Id, "iterations", a.maxIterations)
	a.finish(ctx, session, "", false)
	return &Result{
		Answer:    fmt.Sprintf("I need more information to answer: %s", query),
		UsedTools: usedTools,
		SessionId: session.Id,
	}, nil
}

// act executes the selected tool. Tool trouble becomes an observation so
// the loop can route around it instead of aborting.
func (a *Agent) act(ctx context.Context, st step) string {
	tool, ok := a.tools.Get(st.action)
	if !ok {
		return fmt.Sprintf("unknown tool %q; available tools: %s",
			st.action, strings.Join(a.tools.Names(), ", "))
	}

	output, err := tool.Invoke(ctx, st.actionInput)
	if err != nil {
		a.logger.Warn("tool failed", "tool", st.action, "err", err)
		return fmt.Sprintf("tool %q failed: %s", st.action, err)
	}
	return output
}

// fallback answers from past sessions when generation is unavailable.
// Tier one replays similar successful sessions through the model; tier
// two is a canned refusal.
func (a *Agent) fallback(ctx context.Context, query string) string {
	similar, err := a.sessions.FindSimilar(ctx, query, fallbackSessionCount)
	if err != nil {
		a.logger.Warn("session lookup failed during fallback", "err", err)
	}
	if len(similar) == 0 {
		return fmt.Sprintf("I need more information to answer: %s", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", query)
	b.WriteString("\nTranscripts of similar questions:\n")
	for _, session := range similar {
		fmt.Fprintf(&b, "\nQ: %s\n", session.Query)
		for _, step := range session.Steps {
			if step.Action != "" {
				fmt.Fprintf(&b, "- used %s(%s): %s\n", step.Action, step.ActionInput, step.Observation)
			}
		}
		fmt.Fprintf(&b, "A: %s\n", session.Result)
	}

	answer, err := a.generator.Generate(ctx, []string{replaySystemPrompt}, []string{b.String()},
		ai.WithTemperature(0.0))
	if err != nil {
		a.logger.Warn("replay generation failed", "err", err)
		return fmt.Sprintf("Sorry, I cannot answer: %s", query)
	}
	return strings.TrimSpace(answer)
}

// finish closes out and persists the session log.
func (a *Agent) finish(ctx context.Context, session *core.SessionLog, result string, succeeded bool) {
	session.Result = result
	session.Succeeded = succeeded
	session.EndedAt = time.Now().UTC()
	a.save(ctx, session)
}

// save persists the session log; failures are logged, not fatal.
func (a *Agent) save(ctx context.Context, session *core.SessionLog) {
	if err := a.sessions.Save(ctx, session); err != nil {
		a.logger.Warn("failed to persist session log", "session", session.Id, "err", err)
	}
}
