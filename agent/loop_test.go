package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ragware/ragloop/ai"
	"github.com/ragware/ragloop/ai/mock"
	"github.com/ragware/ragloop/core"
	"github.com/ragware/ragloop/storage"
	badgerstore "github.com/ragware/ragloop/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(t *testing.T) storage.SessionRepository {
	t.Helper()
	backend, err := badgerstore.NewMemoryBackend()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return badgerstore.NewSessionRepository(backend)
}

func searchRegistry(t *testing.T, fn func(ctx context.Context, input string) (string, error)) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.Register(&fakeTool{name: "search", desc: "finds documents", fn: fn}))
	return r
}

func TestRun_EmptyQuery(t *testing.T) {
	a, err := New(mock.NewMockGenerator(), NewRegistry(), newTestSessions(t))
	require.NoError(t, err)

	_, err = a.Run(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrEmptyQuery)
}

func TestRun_DirectAnswer(t *testing.T) {
	gen := mock.NewMockGenerator()
	gen.Enqueue("Thought: no tool needed\nFinal Answer: Paris is the capital of France.")

	a, err := New(gen, NewRegistry(), newTestSessions(t))
	require.NoError(t, err)

	result, err := a.Run(context.Background(), "what is the capital of france")
	require.NoError(t, err)
	assert.True(t, result.Succeeded)
	assert.Equal(t, "Paris is the capital of France.", result.Answer)
	assert.Empty(t, result.UsedTools)
}

func TestRun_ToolRoundTrip(t *testing.T) {
	var toolInput string
	tools := searchRegistry(t, func(ctx context.Context, input string) (string, error) {
		toolInput = input
		return "the euro trades at 1.08 dollars", nil
	})

	gen := mock.NewMockGenerator()
	gen.Enqueue("Thought: I need the current rate\nAction: search\nAction Input: euro dollar rate")
	gen.Enqueue("Thought: the observation has it\nFinal Answer: The euro trades at 1.08 USD.")

	sessions := newTestSessions(t)
	a, err := New(gen, tools, sessions)
	require.NoError(t, err)

	result, err := a.Run(context.Background(), "what is the euro rate")
	require.NoError(t, err)

	assert.True(t, result.Succeeded)
	assert.Equal(t, "The euro trades at 1.08 USD.", result.Answer)
	assert.Equal(t, []string{"search"}, result.UsedTools)
	assert.Equal(t, "euro dollar rate", toolInput)

	t.Run("session log records the steps", func(t *testing.T) {
		log, err := sessions.Get(context.Background(), result.SessionId)
		require.NoError(t, err)
		require.Len(t, log.Steps, 2)
		assert.Equal(t, "search", log.Steps[0].Action)
		assert.Equal(t, "the euro trades at 1.08 dollars", log.Steps[0].Observation)
		assert.Equal(t, "The euro trades at 1.08 USD.", log.Steps[1].FinalAnswer)
		assert.True(t, log.Succeeded)
	})
}

func TestRun_ObservationReachesModel(t *testing.T) {
	tools := searchRegistry(t, func(ctx context.Context, input string) (string, error) {
		return "rate is 1.08", nil
	})

	gen := mock.NewMockGenerator()
	turn := 0
	var secondTurnInput string
	gen.GenerateFunc = func(ctx context.Context, system []string, user []string, opts ...ai.GenerateOption) (string, error) {
		turn++
		if turn == 1 {
			return "Action: search\nAction Input: rate", nil
		}
		secondTurnInput = strings.Join(user, "\n")
		return "Final Answer: done", nil
	}

	a, err := New(gen, tools, newTestSessions(t))
	require.NoError(t, err)

	result, err := a.Run(context.Background(), "query")
	require.NoError(t, err)
	assert.True(t, result.Succeeded)
	assert.Contains(t, secondTurnInput, "Observation: rate is 1.08")
}

func TestRun_UnknownToolBecomesObservation(t *testing.T) {
	gen := mock.NewMockGenerator()
	gen.Enqueue("Action: oracle\nAction Input: anything")
	gen.Enqueue("Final Answer: recovered")

	a, err := New(gen, searchRegistry(t, nil), newTestSessions(t))
	require.NoError(t, err)

	result, err := a.Run(context.Background(), "query")
	require.NoError(t, err)
	assert.True(t, result.Succeeded)
	assert.Equal(t, "recovered", result.Answer)
	assert.Empty(t, result.UsedTools, "unknown tool is not recorded as used")
}

func TestRun_ToolFailureBecomesObservation(t *testing.T) {
	tools := searchRegistry(t, func(ctx context.Context, input string) (string, error) {
		return "", errors.New("search backend down")
	})

	gen := mock.NewMockGenerator()
	gen.Enqueue("Action: search\nAction Input: x")
	gen.Enqueue("Final Answer: could not search, but here is what I know")

	sessions := newTestSessions(t)
	a, err := New(gen, tools, sessions)
	require.NoError(t, err)

	result, err := a.Run(context.Background(), "query")
	require.NoError(t, err)
	assert.True(t, result.Succeeded)

	log, err := sessions.Get(context.Background(), result.SessionId)
	require.NoError(t, err)
	assert.Contains(t, log.Steps[0].Observation, "search backend down")
}

func TestRun_IterationBound(t *testing.T) {
	gen := mock.NewMockGenerator()
	gen.DefaultResponse = "Thought: still thinking\nAction: search\nAction Input: more"

	calls := 0
	tools := searchRegistry(t, func(ctx context.Context, input string) (string, error) {
		calls++
		return "nothing useful", nil
	})

	a, err := New(gen, tools, newTestSessions(t), WithMaxIterations(3))
	require.NoError(t, err)

	result, err := a.Run(context.Background(), "unanswerable query")
	require.NoError(t, err)

	assert.False(t, result.Succeeded)
	assert.Equal(t, "I need more information to answer: unanswerable query", result.Answer)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, gen.CallCount())
}

func TestRun_FallbackWithoutSessions(t *testing.T) {
	gen := mock.NewMockGenerator()
	gen.EnqueueError(errors.New("model down"))

	a, err := New(gen, NewRegistry(), newTestSessions(t))
	require.NoError(t, err)

	result, err := a.Run(context.Background(), "what is the euro rate")
	require.NoError(t, err, "provider failures never surface as errors")

	assert.False(t, result.Succeeded)
	assert.Equal(t, "I need more information to answer: what is the euro rate", result.Answer)
}

func TestRun_FallbackReplaysSimilarSession(t *testing.T) {
	sessions := newTestSessions(t)
	require.NoError(t, sessions.Save(context.Background(), &core.SessionLog{
		Id:    "s1",
		Query: "current euro exchange rate",
		Steps: []core.AgentStep{
			{Action: "search", ActionInput: "euro rate", Observation: "1.08"},
		},
		Result:    "The rate is 1.08",
		Succeeded: true,
	}))

	gen := mock.NewMockGenerator()
	gen.EnqueueError(errors.New("model down"))
	gen.Enqueue("Based on past answers, the rate is about 1.08.")

	a, err := New(gen, NewRegistry(), sessions)
	require.NoError(t, err)

	result, err := a.Run(context.Background(), "euro exchange rate today")
	require.NoError(t, err)

	assert.False(t, result.Succeeded)
	assert.Equal(t, "Based on past answers, the rate is about 1.08.", result.Answer)
}

func TestRun_FallbackReplayFailureYieldsApology(t *testing.T) {
	sessions := newTestSessions(t)
	require.NoError(t, sessions.Save(context.Background(), &core.SessionLog{
		Id:        "s1",
		Query:     "euro exchange rate",
		Result:    "1.08",
		Succeeded: true,
	}))

	gen := mock.NewMockGenerator()
	gen.EnqueueError(errors.New("model down"))
	gen.EnqueueError(errors.New("still down"))

	a, err := New(gen, NewRegistry(), sessions)
	require.NoError(t, err)

	result, err := a.Run(context.Background(), "euro exchange rate now")
	require.NoError(t, err)

	assert.False(t, result.Succeeded)
	assert.Equal(t, "Sorry, I cannot answer: euro exchange rate now", result.Answer)
}

func TestRun_ReplayPromptCarriesTranscript(t *testing.T) {
	sessions := newTestSessions(t)
	require.NoError(t, sessions.Save(context.Background(), &core.SessionLog{
		Id:    "s1",
		Query: "euro exchange rate",
		Steps: []core.AgentStep{
			{Action: "search", ActionInput: "euro", Observation: "1.08"},
		},
		Result:    "The rate is 1.08",
		Succeeded: true,
	}))

	gen := mock.NewMockGenerator()
	failed := false
	var replayPrompt string
	gen.GenerateFunc = func(ctx context.Context, system []string, user []string, opts ...ai.GenerateOption) (string, error) {
		if !failed {
			failed = true
			return "", errors.New("model down")
		}
		replayPrompt = user[0]
		return "replayed answer", nil
	}

	a, err := New(gen, NewRegistry(), sessions)
	require.NoError(t, err)

	result, err := a.Run(context.Background(), "euro exchange rate today")
	require.NoError(t, err)
	assert.Equal(t, "replayed answer", result.Answer)
	assert.Contains(t, replayPrompt, "search(euro): 1.08")
	assert.Contains(t, replayPrompt, "The rate is 1.08")
}

func TestNew_Validation(t *testing.T) {
	sessions := newTestSessions(t)

	_, err := New(nil, NewRegistry(), sessions)
	assert.ErrorIs(t, err, ErrGeneratorRequired)

	_, err = New(mock.NewMockGenerator(), NewRegistry(), nil)
	assert.ErrorIs(t, err, ErrSessionsRequired)

	_, err = New(mock.NewMockGenerator(), NewRegistry(), sessions, WithMaxIterations(0))
	assert.Error(t, err)
}
