package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"learnhub_backend/internal/llm"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/security"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func turnJSON(reply string, statuses map[string]string) llm.MockResponse {
	type objective struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	body := struct {
		Reply      string      `json:"reply"`
		Objectives []objective `json:"objectives"`
	}{Reply: reply, Objectives: []objective{}}
	for id, s := range statuses {
		body.Objectives = append(body.Objectives, objective{ID: id, Status: s})
	}
	raw, _ := json.Marshal(body)
	return llm.MockResponse{Content: raw}
}

func newCopilotFixture(t *testing.T, provider llm.Provider, limiter *security.KeyedLimiter) (*CopilotService, *serviceFixture) {
	t.Helper()
	f := newServiceFixture(t)
	svc := NewCopilotService(repository.NewCopilotRepository(f.db), f.content, f.progress, provider, limiter, CopilotOptions{})

	clock := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return svc, f
}

func chatRequest(message string) ChatRequest {
	return ChatRequest{Topic: "go", Subtopic: "types", NestedTopic: "slices", Message: message}
}

func TestCopilotService_ChatMapsObjectivesByID(t *testing.T) {
	mock := llm.NewMockProvider(turnJSON("Slices share arrays.", map[string]string{
		"o3":      "achieved",
		"o1":      "in_progress",
		"missing": "achieved",
	}))
	svc, _ := newCopilotFixture(t, mock, nil)

	res, err := svc.Chat(context.Background(), 1, chatRequest("how do slices alias?"))
	require.NoError(t, err)

	assert.Equal(t, "Slices share arrays.", res.Reply)
	assert.Equal(t, "mock", res.Model)
	_, err = uuid.Parse(res.SessionID)
	assert.NoError(t, err)

	require.NotNil(t, res.Progress)
	assert.Equal(t, vec(I, N, A), res.Progress.Vector)
	assert.Equal(t, model.SourceCopilot, res.Progress.Source)

	call, ok := mock.LastCall()
	require.True(t, ok)
	assert.Contains(t, call.System, "id=o1 status=not_achieved")
	assert.Contains(t, call.System, "Slices wrap arrays.")
	require.Len(t, call.Messages, 1)
	assert.Equal(t, llm.RoleUser, call.Messages[0].Role)
}

func TestCopilotService_ChatContinuesSession(t *testing.T) {
	mock := llm.NewMockProvider(
		turnJSON("first", map[string]string{"o1": "achieved"}),
		turnJSON("second", map[string]string{"o2": "in_progress"}),
	)
	svc, _ := newCopilotFixture(t, mock, nil)
	ctx := context.Background()

	first, err := svc.Chat(ctx, 1, chatRequest("q1"))
	require.NoError(t, err)

	req := chatRequest("q2")
	req.SessionID = first.SessionID
	second, err := svc.Chat(ctx, 1, req)
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, vec(A, I, N), second.Progress.Vector)

	call, _ := mock.LastCall()
	require.Len(t, call.Messages, 3)
	assert.Equal(t, "q1", call.Messages[0].Content)
	assert.Equal(t, llm.RoleAssistant, call.Messages[1].Role)
	assert.Equal(t, "first", call.Messages[1].Content)
	assert.Equal(t, "q2", call.Messages[2].Content)

	history, err := svc.Session(ctx, 1, first.SessionID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, model.CopilotRoleUser, history[0].Role)
	assert.Equal(t, "second", history[3].Content)

	// 其他学生看不到该会话
	_, err = svc.Session(ctx, 2, first.SessionID)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestCopilotService_ProviderErrorLeavesProgressUntouched(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrRateLimit{Err: errors.New("slow down")}})
	svc, f := newCopilotFixture(t, mock, nil)
	ctx := context.Background()

	_, err := f.progress.Apply(ctx, 1, slicesKey, vec(I, N, N), model.SourceClient)
	require.NoError(t, err)

	_, err = svc.Chat(ctx, 1, chatRequest("hello"))
	require.Error(t, err)
	var rl *llm.ErrRateLimit
	assert.ErrorAs(t, err, &rl)

	got, err := f.progress.Load(ctx, 1, slicesKey)
	require.NoError(t, err)
	assert.Equal(t, vec(I, N, N), got.Vector)
	assert.Equal(t, model.SourceClient, got.Source)

	var count int64
	require.NoError(t, f.db.Model(&model.CopilotMessage{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCopilotService_InvalidResponse(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`{"reply": 3}`)})
	svc, _ := newCopilotFixture(t, mock, nil)

	_, err := svc.Chat(context.Background(), 1, chatRequest("hello"))
	var inv *llm.ErrInvalidResponse
	assert.ErrorAs(t, err, &inv)
}

func TestCopilotService_Unavailable(t *testing.T) {
	svc, _ := newCopilotFixture(t, nil, nil)

	_, err := svc.Chat(context.Background(), 1, chatRequest("hello"))
	assert.ErrorIs(t, err, util.ErrCopilotUnavailable)
}

func TestCopilotService_RateLimited(t *testing.T) {
	limiter := security.NewKeyedLimiter(rate.Every(time.Hour), 1, time.Minute)
	t.Cleanup(limiter.Stop)

	mock := llm.NewMockProvider(turnJSON("ok", nil), turnJSON("ok", nil))
	svc, _ := newCopilotFixture(t, mock, limiter)
	ctx := context.Background()

	_, err := svc.Chat(ctx, 1, chatRequest("one"))
	require.NoError(t, err)

	_, err = svc.Chat(ctx, 1, chatRequest("two"))
	assert.ErrorIs(t, err, util.ErrTooManyRequests)

	// 按学生分别限流
	_, err = svc.Chat(ctx, 2, chatRequest("three"))
	assert.NoError(t, err)
}

func TestCopilotService_UnknownSession(t *testing.T) {
	svc, _ := newCopilotFixture(t, llm.NewMockProvider(), nil)

	req := chatRequest("hello")
	req.SessionID = "not-a-uuid"
	_, err := svc.Chat(context.Background(), 1, req)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)

	req.SessionID = uuid.NewString()
	_, err = svc.Chat(context.Background(), 1, req)
	assert.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestBuildCopilotPromptTruncatesBody(t *testing.T) {
	n := &model.NestedTopic{
		Title:      "Long",
		Body:       strings.Repeat("界", maxBodyInPrompt+50),
		Objectives: []model.Objective{{ID: "a", Text: "first"}},
	}
	prompt := buildCopilotPrompt(n, vec(A))
	assert.Equal(t, maxBodyInPrompt, strings.Count(prompt, "界"))
	assert.Contains(t, prompt, "id=a status=achieved: first")
}
