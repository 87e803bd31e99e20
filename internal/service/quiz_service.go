package service

import (
	"context"
	"fmt"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"sort"

	"go.uber.org/zap"
)

const defaultAttemptLimit = 20

// QuestionResult 单题判分结果
// swagger:model QuestionResult
type QuestionResult struct {
	ID            string `json:"id"`
	Objective     string `json:"objective"`
	Selected      *int   `json:"selected"`
	CorrectAnswer int    `json:"correctAnswer"`
	Correct       bool   `json:"correct"`
}

// QuizResult 一次提交的结果，Progress 为合并后的页面进度
// swagger:model QuizResult
type QuizResult struct {
	AttemptID uint                 `json:"attemptId,omitempty"`
	Correct   int                  `json:"correct"`
	Total     int                  `json:"total"`
	Score     int                  `json:"score"`
	BestScore int                  `json:"bestScore"`
	Questions []QuestionResult     `json:"questions"`
	Derived   model.ProgressVector `json:"derived"`
	Progress  *ProgressUpdate      `json:"progress"`
}

type QuizService struct {
	Repo     *repository.QuizRepository
	Content  *ContentService
	Progress *ProgressService
}

func NewQuizService(repo *repository.QuizRepository, content *ContentService, progress *ProgressService) *QuizService {
	return &QuizService{Repo: repo, Content: content, Progress: progress}
}

// Quiz 返回页面题目（不含答案）
func (s *QuizService) Quiz(key model.ContentKey) ([]model.QuizQuestionView, error) {
	n, err := s.Content.NestedTopic(key)
	if err != nil {
		return nil, err
	}
	if len(n.Quiz) == 0 {
		return nil, fmt.Errorf("%w: %s", util.ErrNoQuiz, key)
	}

	views := make([]model.QuizQuestionView, len(n.Quiz))
	for i, q := range n.Quiz {
		views[i] = q.View()
	}
	return views, nil
}

// Submit 判分、保存提交记录，并把推导出的目标进度合并进页面进度
func (s *QuizService) Submit(ctx context.Context, studentID uint, key model.ContentKey, answers map[string]int) (*QuizResult, error) {
	n, err := s.Content.NestedTopic(key)
	if err != nil {
		return nil, err
	}
	if len(n.Quiz) == 0 {
		return nil, fmt.Errorf("%w: %s", util.ErrNoQuiz, key)
	}

	known := make(map[string]bool, len(n.Quiz))
	for _, q := range n.Quiz {
		known[q.ID] = true
	}
	var unknown []string
	for id := range answers {
		if !known[id] {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %v", util.ErrUnknownQuestion, unknown)
	}

	questions, correct := GradeQuiz(n, answers)
	derived := DeriveQuizProgress(n, questions)
	score := percentHalfUp(correct, len(n.Quiz))

	previousBest, err := s.Repo.BestScore(ctx, studentID, key)
	if err != nil {
		logger.Log.Warn("Load best quiz score failed", zap.Uint("studentId", studentID), zap.Error(err))
	}

	attempt := &model.QuizAttempt{
		StudentID:  studentID,
		Correct:    correct,
		Total:      len(n.Quiz),
		Score:      score,
		Objectives: append([]model.ObjectiveStatus(nil), derived...),
	}
	attempt.SetKey(key)
	if err := s.Repo.CreateAttempt(ctx, attempt); err != nil {
		logger.Log.Warn("Save quiz attempt failed", zap.Uint("studentId", studentID), zap.String("key", key.String()), zap.Error(err))
	}
	monitoring.QuizSubmissionCounter.WithLabelValues(key.Topic).Inc()

	progress, err := s.Progress.Apply(ctx, studentID, key, derived, model.SourceQuiz)
	if err != nil {
		return nil, err
	}

	return &QuizResult{
		AttemptID: attempt.ID,
		Correct:   correct,
		Total:     len(n.Quiz),
		Score:     score,
		BestScore: BestScore(previousBest, score),
		Questions: questions,
		Derived:   derived,
		Progress:  progress,
	}, nil
}

// Attempts 提交历史，最新的在前
func (s *QuizService) Attempts(ctx context.Context, studentID uint, key model.ContentKey, limit int) ([]model.QuizAttempt, error) {
	if _, err := s.Content.NestedTopic(key); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > util.MaxPageSize {
		limit = defaultAttemptLimit
	}
	return s.Repo.ListAttempts(ctx, studentID, key, limit)
}

// GradeQuiz 逐题判分，未作答或选项越界都算错
func GradeQuiz(n *model.NestedTopic, answers map[string]int) ([]QuestionResult, int) {
	results := make([]QuestionResult, len(n.Quiz))
	correct := 0
	for i, q := range n.Quiz {
		r := QuestionResult{ID: q.ID, Objective: q.Objective, CorrectAnswer: q.Answer}
		if a, ok := answers[q.ID]; ok {
			selected := a
			r.Selected = &selected
			r.Correct = a == q.Answer
		}
		if r.Correct {
			correct++
		}
		results[i] = r
	}
	return results, correct
}

// DeriveQuizProgress 按学习目标汇总：全对为 Achieved，部分对为 InProgress，
// 全错或没有题目为 NotAchieved
func DeriveQuizProgress(n *model.NestedTopic, results []QuestionResult) model.ProgressVector {
	total := make([]int, len(n.Objectives))
	right := make([]int, len(n.Objectives))
	for _, r := range results {
		i := n.ObjectiveIndex(r.Objective)
		if i < 0 {
			continue
		}
		total[i]++
		if r.Correct {
			right[i]++
		}
	}

	v := model.NewProgressVector(len(n.Objectives))
	for i := range v {
		switch {
		case total[i] > 0 && right[i] == total[i]:
			v[i] = model.Achieved
		case right[i] > 0:
			v[i] = model.InProgress
		}
	}
	return v
}

// percentHalfUp 计算 round_half_up(100*part/whole)
func percentHalfUp(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return (200*part + whole) / (2 * whole)
}
