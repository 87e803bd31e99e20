package service

import (
	"context"
	"encoding/json"
	"fmt"
	"learnhub_backend/internal/llm"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"learnhub_backend/pkg/security"
	"learnhub_backend/pkg/tracing"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	maxBodyInPrompt     = 6000
)

// copilotSchema 约束模型返回回复正文与逐目标的掌握判断
var copilotSchema = &llm.Schema{
	Name:        "copilot_turn",
	Description: "Tutor reply plus the student's mastery of each learning objective",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"reply": map[string]any{"type": "string"},
			"objectives": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id": map[string]any{"type": "string"},
						"status": map[string]any{
							"type": "string",
							"enum": []any{string(model.Achieved), string(model.InProgress), string(model.NotAchieved)},
						},
					},
					"required":             []any{"id", "status"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"reply", "objectives"},
		"additionalProperties": false,
	},
}

// ChatRequest 学习助手的一轮对话
// swagger:model ChatRequest
type ChatRequest struct {
	SessionID   string `json:"sessionId"`
	Topic       string `json:"topic" binding:"required"`
	Subtopic    string `json:"subtopic" binding:"required"`
	NestedTopic string `json:"nestedTopic" binding:"required"`
	Message     string `json:"message" binding:"required,max=4000"`
}

func (r ChatRequest) Key() model.ContentKey {
	return model.ContentKey{Topic: r.Topic, Subtopic: r.Subtopic, NestedTopic: r.NestedTopic}
}

// ChatResult 助手回复与合并后的页面进度
// swagger:model ChatResult
type ChatResult struct {
	SessionID string          `json:"sessionId"`
	Reply     string          `json:"reply"`
	Model     string          `json:"model"`
	Progress  *ProgressUpdate `json:"progress"`
}

type copilotTurn struct {
	Reply      string `json:"reply"`
	Objectives []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"objectives"`
}

type CopilotOptions struct {
	HistoryLimit int
	MaxTokens    int
	Temperature  float64
	Timeout      time.Duration
}

type CopilotService struct {
	Repo     *repository.CopilotRepository
	Content  *ContentService
	Progress *ProgressService
	Provider llm.Provider
	Limiter  *security.KeyedLimiter
	Options  CopilotOptions

	now func() time.Time
}

func NewCopilotService(repo *repository.CopilotRepository, content *ContentService, progress *ProgressService,
	provider llm.Provider, limiter *security.KeyedLimiter, opts CopilotOptions) *CopilotService {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	return &CopilotService{
		Repo:     repo,
		Content:  content,
		Progress: progress,
		Provider: provider,
		Limiter:  limiter,
		Options:  opts,
		now:      time.Now,
	}
}

// Chat 发送一轮对话，并把模型推断的目标进度合并进页面进度
// 模型调用失败时不改动进度
func (s *CopilotService) Chat(ctx context.Context, studentID uint, req ChatRequest) (*ChatResult, error) {
	if s.Provider == nil {
		monitoring.CopilotRequestCounter.WithLabelValues("unavailable").Inc()
		return nil, util.ErrCopilotUnavailable
	}
	if s.Limiter != nil && !s.Limiter.Allow(strconv.FormatUint(uint64(studentID), 10)) {
		monitoring.CopilotRequestCounter.WithLabelValues("throttled").Inc()
		return nil, util.ErrTooManyRequests
	}

	key := req.Key()
	ctx, span := tracing.StartSpan(ctx, "copilot.chat",
		attribute.Int64("student.id", int64(studentID)),
		attribute.String("content.key", key.String()),
	)
	defer span.End()

	n, err := s.Content.NestedTopic(key)
	if err != nil {
		return nil, err
	}

	sessionID, history, err := s.loadSession(ctx, studentID, req.SessionID)
	if err != nil {
		return nil, err
	}

	current, err := s.Progress.Load(ctx, studentID, key)
	if err != nil {
		return nil, err
	}

	messages := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: req.Message})

	genCtx := ctx
	if s.Options.Timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.Options.Timeout)
		defer cancel()
	}

	resp, err := s.Provider.Generate(genCtx, llm.Request{
		System:      buildCopilotPrompt(n, current.Vector),
		Messages:    messages,
		Schema:      copilotSchema,
		MaxTokens:   s.Options.MaxTokens,
		Temperature: s.Options.Temperature,
	})
	if err != nil {
		monitoring.CopilotRequestCounter.WithLabelValues(llm.Classify(err)).Inc()
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("copilot: %w", err)
	}

	var turn copilotTurn
	if err := json.Unmarshal(resp.Content, &turn); err != nil {
		err = &llm.ErrInvalidResponse{Content: resp.Content, Err: err}
		monitoring.CopilotRequestCounter.WithLabelValues(llm.Classify(err)).Inc()
		return nil, fmt.Errorf("copilot: %w", err)
	}

	incoming := model.NewProgressVector(len(n.Objectives))
	for _, o := range turn.Objectives {
		i := n.ObjectiveIndex(o.ID)
		if i < 0 {
			continue
		}
		status, err := model.ParseObjectiveStatus(o.Status)
		if err != nil {
			continue
		}
		incoming[i] = status
	}

	progress, err := s.Progress.Apply(ctx, studentID, key, incoming, model.SourceCopilot)
	if err != nil {
		return nil, err
	}

	s.saveTurn(ctx, studentID, sessionID, key, req.Message, turn.Reply)
	monitoring.CopilotRequestCounter.WithLabelValues("ok").Inc()

	return &ChatResult{
		SessionID: sessionID,
		Reply:     turn.Reply,
		Model:     resp.Model,
		Progress:  progress,
	}, nil
}

func (s *CopilotService) loadSession(ctx context.Context, studentID uint, sessionID string) (string, []model.CopilotMessage, error) {
	if sessionID == "" {
		return uuid.NewString(), nil, nil
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return "", nil, fmt.Errorf("%w: %s", util.ErrSessionNotFound, sessionID)
	}

	history, err := s.Repo.History(ctx, sessionID, studentID, s.Options.HistoryLimit)
	if err != nil {
		return "", nil, err
	}
	if len(history) == 0 {
		return "", nil, fmt.Errorf("%w: %s", util.ErrSessionNotFound, sessionID)
	}
	return sessionID, history, nil
}

// saveTurn 助手消息比学生消息晚 1ms，保证按 created_at 排序稳定
func (s *CopilotService) saveTurn(ctx context.Context, studentID uint, sessionID string, key model.ContentKey, question, reply string) {
	at := s.now()
	userMsg := &model.CopilotMessage{SessionID: sessionID, StudentID: studentID, Role: model.CopilotRoleUser, Content: question}
	userMsg.CreatedAt = at
	userMsg.SetKey(key)

	assistantMsg := &model.CopilotMessage{SessionID: sessionID, StudentID: studentID, Role: model.CopilotRoleAssistant, Content: reply}
	assistantMsg.CreatedAt = at.Add(time.Millisecond)
	assistantMsg.SetKey(key)

	if err := s.Repo.AppendTurn(ctx, userMsg, assistantMsg); err != nil {
		logger.Log.Warn("Save copilot turn failed",
			zap.Uint("studentId", studentID),
			zap.String("sessionId", sessionID),
			zap.Error(err),
		)
	}
}

// Session 会话历史，只能查看自己的会话
func (s *CopilotService) Session(ctx context.Context, studentID uint, sessionID string) ([]model.CopilotMessage, error) {
	_, history, err := s.loadSession(ctx, studentID, sessionID)
	if err != nil {
		return nil, err
	}
	return history, nil
}

func buildCopilotPrompt(n *model.NestedTopic, current model.ProgressVector) string {
	var b strings.Builder
	b.WriteString("You are a patient programming tutor helping a student with the lesson \"")
	b.WriteString(n.Title)
	b.WriteString("\". Answer the student's message, stay on the lesson's subject, and keep replies short.\n\n")

	body := n.Body
	if runes := []rune(body); len(runes) > maxBodyInPrompt {
		body = string(runes[:maxBodyInPrompt])
	}
	if body != "" {
		b.WriteString("Lesson content:\n")
		b.WriteString(body)
		b.WriteString("\n\n")
	}

	b.WriteString("Learning objectives with the student's current status:\n")
	for i, o := range n.Objectives {
		fmt.Fprintf(&b, "- id=%s status=%s: %s\n", o.ID, current.At(i), o.Text)
	}

	b.WriteString("\nReturn JSON with \"reply\" (your answer) and \"objectives\": one entry per objective id above with ")
	b.WriteString("\"achieved\" when the conversation shows the student has mastered it, \"in_progress\" when they show partial ")
	b.WriteString("understanding, and \"not_achieved\" otherwise. Statuses never need to go down; judge only from this conversation.")
	return b.String()
}
