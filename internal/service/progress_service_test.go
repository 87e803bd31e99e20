package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressService_LoadInitializesRecord(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	got, err := f.progress.Load(ctx, 1, slicesKey)
	require.NoError(t, err)
	assert.Equal(t, vec(N, N, N), got.Vector)
	assert.Equal(t, 0, got.Grade)
	assert.True(t, got.Persisted)
	assert.NotZero(t, got.RecordID)
	require.Len(t, got.Objectives, 3)
	assert.Equal(t, "o2", got.Objectives[1].ID)

	// 初始化不推送
	assert.Empty(t, f.publisher.messages)

	again, err := f.progress.Load(ctx, 1, slicesKey)
	require.NoError(t, err)
	assert.Equal(t, got.RecordID, again.RecordID)
}

func TestProgressService_LoadUnknownTopic(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.progress.Load(context.Background(), 1, model.ContentKey{Topic: "go", Subtopic: "types", NestedTopic: "nope"})
	assert.ErrorIs(t, err, util.ErrUnknownTopic)
}

func TestProgressService_ApplyEndToEnd(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.progress.Apply(ctx, 7, slicesKey, vec(A, N, I), model.SourceClient)
	require.NoError(t, err)

	got, err := f.progress.Apply(ctx, 7, slicesKey, vec(N, A, N), model.SourceQuiz)
	require.NoError(t, err)
	assert.Equal(t, vec(A, A, I), got.Vector)
	assert.Equal(t, 83, got.Grade)
	assert.Equal(t, 83, got.BestGrade)
	assert.Equal(t, model.SourceQuiz, got.Source)
	assert.True(t, got.Persisted)

	require.Len(t, f.publisher.messages, 2)
	assert.Equal(t, "progress", f.publisher.messages[1].Type)
	assert.Equal(t, []uint{7, 7}, f.publisher.students)
}

func TestProgressService_ApplyNeverRegresses(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.progress.Apply(ctx, 1, slicesKey, vec(A, A, A), model.SourceQuiz)
	require.NoError(t, err)

	got, err := f.progress.Apply(ctx, 1, slicesKey, vec(N, N, N), model.SourceCopilot)
	require.NoError(t, err)
	assert.Equal(t, vec(A, A, A), got.Vector)
	assert.Equal(t, 100, got.Grade)
}

func TestProgressService_ApplyTruncatesAndPads(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	got, err := f.progress.Apply(ctx, 1, slicesKey, vec(A, A, A, A, A), model.SourceClient)
	require.NoError(t, err)
	assert.Equal(t, vec(A, A, A), got.Vector)

	short, err := f.progress.Apply(ctx, 2, slicesKey, vec(I), model.SourceClient)
	require.NoError(t, err)
	assert.Equal(t, vec(I, N, N), short.Vector)
	assert.Equal(t, 17, short.Grade)
}

func TestProgressService_ApplyOrderIndependent(t *testing.T) {
	updates := []model.ProgressVector{vec(A, N, N), vec(N, I, N), vec(I, A, I), vec(N, N, A)}

	forward := newServiceFixture(t)
	backward := newServiceFixture(t)
	ctx := context.Background()

	var a, b *ProgressUpdate
	var err error
	for i := range updates {
		a, err = forward.progress.Apply(ctx, 1, slicesKey, updates[i], model.SourceClient)
		require.NoError(t, err)
		b, err = backward.progress.Apply(ctx, 1, slicesKey, updates[len(updates)-1-i], model.SourceClient)
		require.NoError(t, err)
	}
	assert.Equal(t, a.Vector, b.Vector)
	assert.Equal(t, vec(A, A, A), a.Vector)
}

func TestProgressService_ConcurrentApplyKeepsEveryUpdate(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	updates := []model.ProgressVector{vec(A, N, N), vec(N, A, N), vec(N, N, I), vec(I, I, N)}
	var wg sync.WaitGroup
	for _, u := range updates {
		wg.Add(1)
		go func(u model.ProgressVector) {
			defer wg.Done()
			_, err := f.progress.Apply(ctx, 3, slicesKey, u, model.SourceClient)
			assert.NoError(t, err)
		}(u)
	}
	wg.Wait()

	got, err := f.progress.Load(ctx, 3, slicesKey)
	require.NoError(t, err)
	assert.Equal(t, vec(A, A, I), got.Vector)

	var count int64
	require.NoError(t, f.db.Model(&model.ProgressRecord{}).Where("student_id = ?", 3).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestProgressService_ApplyReturnsOptimisticResultWhenStoreFails(t *testing.T) {
	f := newServiceFixture(t)
	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	got, err := f.progress.Apply(context.Background(), 1, slicesKey, vec(A, I, N), model.SourceCopilot)
	require.NoError(t, err)
	assert.False(t, got.Persisted)
	assert.NotEmpty(t, got.Warning)
	assert.Equal(t, vec(A, I, N), got.Vector)
	assert.Equal(t, 50, got.Grade)
	assert.Empty(t, f.publisher.messages)
}

func TestProgressService_Evaluate(t *testing.T) {
	f := newServiceFixture(t)

	best := 90
	got := f.progress.Evaluate(vec(A, N, I), vec(N, A, N), &best)
	assert.Equal(t, vec(A, A, I), got.Vector)
	assert.Equal(t, 83, got.Grade)
	assert.Equal(t, 90, got.BestGrade)

	fresh := f.progress.Evaluate(nil, vec(I, I), nil)
	assert.Equal(t, 50, fresh.Grade)
	assert.Equal(t, 50, fresh.BestGrade)
}

func TestProgressService_OverrideKeepsBestGrade(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	applied, err := f.progress.Apply(ctx, 1, slicesKey, vec(A, A, A), model.SourceQuiz)
	require.NoError(t, err)

	rec, err := f.progress.Override(ctx, applied.RecordID, vec(N, I))
	require.NoError(t, err)
	assert.Equal(t, vec(N, I, N), rec.Vector())
	assert.Equal(t, 17, rec.Grade)
	assert.Equal(t, 100, rec.BestGrade)
	assert.Equal(t, model.SourceAdmin, rec.LastSource)

	// 覆盖允许下调
	loaded, err := f.progress.Load(ctx, 1, slicesKey)
	require.NoError(t, err)
	assert.Equal(t, vec(N, I, N), loaded.Vector)

	_, err = f.progress.Override(ctx, applied.RecordID, vec(A, A, A, A))
	assert.ErrorIs(t, err, util.ErrInvalidVector)

	_, err = f.progress.Override(ctx, 9999, vec(A))
	assert.ErrorIs(t, err, util.ErrRecordNotFound)
}

func TestProgressService_OverrideAfterConcurrentApply(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	applied, err := f.progress.Apply(ctx, 1, slicesKey, vec(N, I), model.SourceClient)
	require.NoError(t, err)
	require.Equal(t, 17, applied.BestGrade)

	// 占住该键的锁，让覆盖操作在读取记录后等待
	mu := f.progress.lockFor(1, slicesKey)
	mu.Lock()

	var wg sync.WaitGroup
	var overridden *model.ProgressRecord
	var overrideErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		overridden, overrideErr = f.progress.Override(ctx, applied.RecordID, vec(N, I))
	}()
	time.Sleep(50 * time.Millisecond)

	// 等待期间另一次更新提交了更高的最佳成绩
	_, err = f.progress.Repo.Upsert(ctx, 1, slicesKey, func(existing *model.ProgressRecord) (*model.ProgressRecord, error) {
		existing.SetVector(vec(A, A, A))
		existing.Grade = 100
		existing.BestGrade = 100
		return existing, nil
	})
	require.NoError(t, err)
	mu.Unlock()
	wg.Wait()

	require.NoError(t, overrideErr)
	assert.Equal(t, 17, overridden.Grade)
	assert.Equal(t, 100, overridden.BestGrade)

	stored, err := f.progress.Get(ctx, applied.RecordID)
	require.NoError(t, err)
	assert.Equal(t, vec(N, I, N), stored.Vector())
	assert.Equal(t, 17, stored.Grade)
	assert.Equal(t, 100, stored.BestGrade)
}

func TestProgressService_OverrideOrphanedRecord(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	gone := model.ContentKey{Topic: "go", Subtopic: "types", NestedTopic: "removed"}
	rec, err := f.progress.Repo.Upsert(ctx, 1, gone, func(*model.ProgressRecord) (*model.ProgressRecord, error) {
		r := &model.ProgressRecord{}
		r.SetVector(vec(I))
		r.Grade = 50
		r.BestGrade = 50
		return r, nil
	})
	require.NoError(t, err)

	_, err = f.progress.Override(ctx, rec.ID, vec(A, A, A, A, A))
	assert.ErrorIs(t, err, util.ErrUnknownTopic)

	stored, err := f.progress.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, vec(I), stored.Vector())
}

func TestProgressService_Reset(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	applied, err := f.progress.Apply(ctx, 1, slicesKey, vec(A, A, A), model.SourceQuiz)
	require.NoError(t, err)
	require.NoError(t, f.progress.Reset(ctx, applied.RecordID))

	loaded, err := f.progress.Load(ctx, 1, slicesKey)
	require.NoError(t, err)
	assert.Equal(t, vec(N, N, N), loaded.Vector)
	assert.Equal(t, 0, loaded.BestGrade)

	last := f.publisher.messages[len(f.publisher.messages)-1]
	assert.Equal(t, "progress_reset", last.Type)

	assert.ErrorIs(t, f.progress.Reset(ctx, 9999), util.ErrRecordNotFound)
}

func TestProgressService_List(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.progress.Apply(ctx, 1, slicesKey, vec(A), model.SourceClient)
	require.NoError(t, err)
	_, err = f.progress.Apply(ctx, 1, mapsKey, vec(I), model.SourceClient)
	require.NoError(t, err)
	_, err = f.progress.Apply(ctx, 2, mapsKey, vec(A), model.SourceClient)
	require.NoError(t, err)

	mine, err := f.progress.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}
