package service

import (
	"context"
	"testing"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQuizFixture(t *testing.T) (*QuizService, *serviceFixture) {
	t.Helper()
	f := newServiceFixture(t)
	return NewQuizService(repository.NewQuizRepository(f.db), f.content, f.progress), f
}

func TestDeriveQuizProgress(t *testing.T) {
	content := newTestContent(t)
	n, err := content.NestedTopic(slicesKey)
	require.NoError(t, err)

	tests := []struct {
		name    string
		answers map[string]int
		want    model.ProgressVector
		correct int
	}{
		{"all correct", map[string]int{"q1": 1, "q2": 0, "q3": 0, "q4": 1}, vec(A, A, A), 4},
		{"partial objective", map[string]int{"q1": 1, "q2": 0, "q3": 0, "q4": 0}, vec(A, A, I), 3},
		{"nothing answered", map[string]int{}, vec(N, N, N), 0},
		{"out of range answer is wrong", map[string]int{"q1": 5, "q2": -1}, vec(N, N, N), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, correct := GradeQuiz(n, tt.answers)
			assert.Equal(t, tt.correct, correct)
			assert.Equal(t, tt.want, DeriveQuizProgress(n, results))
		})
	}
}

func TestDeriveQuizProgress_ObjectiveWithoutQuestions(t *testing.T) {
	n := &model.NestedTopic{
		Objectives: []model.Objective{{ID: "a"}, {ID: "b"}},
		Quiz:       []model.QuizQuestion{{ID: "q", Options: []string{"x", "y"}, Answer: 0, Objective: "a"}},
	}
	results, _ := GradeQuiz(n, map[string]int{"q": 0})
	assert.Equal(t, vec(A, N), DeriveQuizProgress(n, results))
}

func TestPercentHalfUp(t *testing.T) {
	assert.Equal(t, 25, percentHalfUp(1, 4))
	assert.Equal(t, 67, percentHalfUp(2, 3))
	assert.Equal(t, 33, percentHalfUp(1, 3))
	assert.Equal(t, 13, percentHalfUp(1, 8))
	assert.Equal(t, 0, percentHalfUp(0, 0))
}

func TestQuizService_QuizHidesAnswers(t *testing.T) {
	svc, _ := newQuizFixture(t)

	views, err := svc.Quiz(slicesKey)
	require.NoError(t, err)
	require.Len(t, views, 4)
	assert.Equal(t, "q1", views[0].ID)
	assert.Equal(t, "o1", views[0].Objective)

	_, err = svc.Quiz(mapsKey)
	assert.ErrorIs(t, err, util.ErrNoQuiz)
}

func TestQuizService_SubmitMergesIntoProgress(t *testing.T) {
	svc, f := newQuizFixture(t)
	ctx := context.Background()

	_, err := f.progress.Apply(ctx, 5, slicesKey, vec(A, N, I), model.SourceClient)
	require.NoError(t, err)

	res, err := svc.Submit(ctx, 5, slicesKey, map[string]int{"q1": 0, "q2": 0, "q3": 1, "q4": 0})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Correct)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 25, res.Score)
	assert.Equal(t, 25, res.BestScore)
	assert.Equal(t, vec(N, A, N), res.Derived)
	assert.NotZero(t, res.AttemptID)

	require.NotNil(t, res.Progress)
	assert.Equal(t, vec(A, A, I), res.Progress.Vector)
	assert.Equal(t, 83, res.Progress.Grade)
	assert.Equal(t, model.SourceQuiz, res.Progress.Source)
}

func TestQuizService_BestScoreAcrossAttempts(t *testing.T) {
	svc, _ := newQuizFixture(t)
	ctx := context.Background()

	first, err := svc.Submit(ctx, 1, slicesKey, map[string]int{"q1": 1, "q2": 0, "q3": 0, "q4": 1})
	require.NoError(t, err)
	assert.Equal(t, 100, first.Score)

	second, err := svc.Submit(ctx, 1, slicesKey, map[string]int{"q1": 0})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Score)
	assert.Equal(t, 100, second.BestScore)
	assert.Equal(t, vec(A, A, A), second.Progress.Vector)

	attempts, err := svc.Attempts(ctx, 1, slicesKey, 0)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, 0, attempts[0].Score)
	assert.Equal(t, 100, attempts[1].Score)
}

func TestQuizService_SubmitRejectsUnknownQuestions(t *testing.T) {
	svc, f := newQuizFixture(t)

	_, err := svc.Submit(context.Background(), 1, slicesKey, map[string]int{"q1": 1, "zz": 0, "aa": 1})
	require.ErrorIs(t, err, util.ErrUnknownQuestion)
	assert.Contains(t, err.Error(), "[aa zz]")

	var count int64
	require.NoError(t, f.db.Model(&model.QuizAttempt{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestQuizService_SubmitUnknownPage(t *testing.T) {
	svc, _ := newQuizFixture(t)

	_, err := svc.Submit(context.Background(), 1, model.ContentKey{Topic: "x", Subtopic: "y", NestedTopic: "z"}, nil)
	assert.ErrorIs(t, err, util.ErrUnknownTopic)
}
