package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"learnhub_backend/pkg/tracing"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	progressLockStripes = 64
	persistWarning      = "progress could not be saved; it will be saved with your next update"
)

// ProgressPublisher 进度更新的推送出口，通常是 ProgressHub
type ProgressPublisher interface {
	Publish(studentID uint, msg WSMessage)
}

// ProgressUpdate 一次加载或合并后的进度视图
// swagger:model ProgressUpdate
type ProgressUpdate struct {
	RecordID    uint                      `json:"recordId,omitempty"`
	Topic       string                    `json:"topic"`
	Subtopic    string                    `json:"subtopic"`
	NestedTopic string                    `json:"nestedTopic"`
	Objectives  []model.ObjectiveProgress `json:"objectives"`
	Vector      model.ProgressVector      `json:"vector"`
	Grade       int                       `json:"grade"`
	BestGrade   int                       `json:"bestGrade"`
	Source      model.ProgressSource      `json:"source,omitempty"`
	Persisted   bool                      `json:"persisted"`
	Warning     string                    `json:"warning,omitempty"`
	UpdatedAt   *time.Time                `json:"updatedAt,omitempty"`
}

// EvaluateResult 纯计算结果，不落库
// swagger:model EvaluateResult
type EvaluateResult struct {
	Vector    model.ProgressVector `json:"vector"`
	Grade     int                  `json:"grade"`
	BestGrade int                  `json:"bestGrade"`
}

type ProgressService struct {
	Repo      *repository.ProgressRepository
	Content   *ContentService
	Publisher ProgressPublisher

	locks [progressLockStripes]sync.Mutex
}

func NewProgressService(repo *repository.ProgressRepository, content *ContentService, publisher ProgressPublisher) *ProgressService {
	return &ProgressService{Repo: repo, Content: content, Publisher: publisher}
}

func (s *ProgressService) lockFor(studentID uint, key model.ContentKey) *sync.Mutex {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d|%s", studentID, key.String())
	return &s.locks[h.Sum32()%progressLockStripes]
}

// Load 返回学生在页面上的进度；首次访问时初始化为全 NotAchieved 并保存
func (s *ProgressService) Load(ctx context.Context, studentID uint, key model.ContentKey) (*ProgressUpdate, error) {
	n, err := s.Content.NestedTopic(key)
	if err != nil {
		return nil, err
	}
	count := len(n.Objectives)

	rec, err := s.Repo.Find(ctx, studentID, key)
	switch {
	case err == nil && len(rec.Objectives) >= count:
		return newProgressUpdate(rec, n, true), nil
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("load progress: %w", err)
	}

	// 新记录或内容新增了学习目标，补齐长度
	mu := s.lockFor(studentID, key)
	mu.Lock()
	defer mu.Unlock()
	return s.merge(ctx, studentID, key, n, model.NewProgressVector(count), ""), nil
}

// Apply 将新观测到的进度与已保存的进度合并后保存
// 保存失败时返回乐观合并结果并标记 Persisted=false，而不是报错
func (s *ProgressService) Apply(ctx context.Context, studentID uint, key model.ContentKey, incoming model.ProgressVector, source model.ProgressSource) (*ProgressUpdate, error) {
	ctx, span := tracing.StartSpan(ctx, "progress.apply",
		attribute.Int64("student.id", int64(studentID)),
		attribute.String("content.key", key.String()),
		attribute.String("progress.source", string(source)),
	)
	defer span.End()

	n, err := s.Content.NestedTopic(key)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	mu := s.lockFor(studentID, key)
	mu.Lock()
	defer mu.Unlock()

	update := s.merge(ctx, studentID, key, n, incoming.Truncate(len(n.Objectives)), source)
	span.SetAttributes(attribute.Int("progress.grade", update.Grade), attribute.Bool("progress.persisted", update.Persisted))

	monitoring.ProgressMergeCounter.WithLabelValues(string(source)).Inc()
	monitoring.GradeHistogram.Observe(float64(update.Grade))
	return update, nil
}

// merge 调用方需持有该键的锁
func (s *ProgressService) merge(ctx context.Context, studentID uint, key model.ContentKey, n *model.NestedTopic, incoming model.ProgressVector, source model.ProgressSource) *ProgressUpdate {
	count := len(n.Objectives)
	zeros := model.NewProgressVector(count)

	rec, err := s.Repo.Upsert(ctx, studentID, key, func(existing *model.ProgressRecord) (*model.ProgressRecord, error) {
		next := existing
		var best *int
		if next == nil {
			next = &model.ProgressRecord{}
		} else {
			b := next.BestGrade
			best = &b
		}

		merged := MergeProgress(MergeProgress(next.Vector(), incoming), zeros)
		next.SetVector(merged)
		next.Grade = GradeProgress(merged.Truncate(count))
		next.BestGrade = BestScore(best, next.Grade)
		if source != "" {
			next.LastSource = source
		}
		return next, nil
	})
	if err == nil {
		update := newProgressUpdate(rec, n, true)
		if source != "" {
			s.publish(studentID, update)
		}
		return update
	}

	logger.Log.Warn("Persist progress failed, returning optimistic merge",
		zap.Uint("studentId", studentID),
		zap.String("key", key.String()),
		zap.String("source", string(source)),
		zap.Error(err),
	)
	monitoring.ProgressPersistFailures.WithLabelValues(string(source)).Inc()

	optimistic := &model.ProgressRecord{StudentID: studentID, LastSource: source}
	optimistic.SetKey(key)
	var best *int
	if prev, findErr := s.Repo.Find(ctx, studentID, key); findErr == nil {
		optimistic.SetVector(prev.Vector())
		b := prev.BestGrade
		best = &b
	}
	merged := MergeProgress(MergeProgress(optimistic.Vector(), incoming), zeros)
	optimistic.SetVector(merged)
	optimistic.Grade = GradeProgress(merged.Truncate(count))
	optimistic.BestGrade = BestScore(best, optimistic.Grade)

	update := newProgressUpdate(optimistic, n, false)
	update.Warning = persistWarning
	return update
}

func (s *ProgressService) publish(studentID uint, update *ProgressUpdate) {
	if s.Publisher == nil {
		return
	}
	s.Publisher.Publish(studentID, WSMessage{Type: "progress", Data: update})
}

func newProgressUpdate(rec *model.ProgressRecord, n *model.NestedTopic, persisted bool) *ProgressUpdate {
	count := len(n.Objectives)
	vec := MergeProgress(rec.Vector(), model.NewProgressVector(count)).Truncate(count)

	update := &ProgressUpdate{
		RecordID:    rec.ID,
		Topic:       rec.Topic,
		Subtopic:    rec.Subtopic,
		NestedTopic: rec.NestedTopic,
		Objectives:  model.PairObjectives(n.Objectives, vec),
		Vector:      vec,
		Grade:       GradeProgress(vec),
		BestGrade:   rec.BestGrade,
		Source:      rec.LastSource,
		Persisted:   persisted,
	}
	if update.BestGrade < update.Grade {
		update.BestGrade = update.Grade
	}
	if !rec.UpdatedAt.IsZero() {
		t := rec.UpdatedAt
		update.UpdatedAt = &t
	}
	return update
}

// List 学生自己的全部进度记录
func (s *ProgressService) List(ctx context.Context, studentID uint) ([]model.ProgressRecord, error) {
	return s.Repo.ListByStudent(ctx, studentID)
}

// Evaluate 纯合并与评分，existingBest 可为空
func (s *ProgressService) Evaluate(previous, incoming model.ProgressVector, existingBest *int) EvaluateResult {
	merged := MergeProgress(previous, incoming)
	grade := GradeProgress(merged)
	return EvaluateResult{Vector: merged, Grade: grade, BestGrade: BestScore(existingBest, grade)}
}

// ListAll 管理端分页查询
func (s *ProgressService) ListAll(ctx context.Context, filter repository.ProgressFilter, page, pageSize int) ([]model.ProgressRecord, int64, error) {
	return s.Repo.List(ctx, filter, page, pageSize)
}

func (s *ProgressService) Get(ctx context.Context, id uint) (*model.ProgressRecord, error) {
	rec, err := s.Repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrRecordNotFound
	}
	return rec, err
}

// Override 管理员直接替换进度向量；成绩随之重算，最佳成绩不回退
// 最佳成绩在持锁的事务内按当前行重新核对
func (s *ProgressService) Override(ctx context.Context, id uint, vector model.ProgressVector) (*model.ProgressRecord, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	key := rec.Key()
	n, err := s.Content.NestedTopic(key)
	if err != nil {
		return nil, err
	}
	if len(vector) > len(n.Objectives) {
		return nil, fmt.Errorf("%w: %d entries, %s has %d objectives", util.ErrInvalidVector, len(vector), key, len(n.Objectives))
	}
	vector = MergeProgress(vector, model.NewProgressVector(len(n.Objectives)))

	mu := s.lockFor(rec.StudentID, key)
	mu.Lock()
	defer mu.Unlock()

	saved, err := s.Repo.Upsert(ctx, rec.StudentID, key, func(existing *model.ProgressRecord) (*model.ProgressRecord, error) {
		if existing == nil || existing.ID != id {
			return nil, util.ErrRecordNotFound
		}
		best := existing.BestGrade
		existing.SetVector(vector)
		existing.Grade = GradeProgress(vector)
		existing.BestGrade = BestScore(&best, existing.Grade)
		existing.LastSource = model.SourceAdmin
		return existing, nil
	})
	if err != nil {
		return nil, err
	}
	saved.Student = rec.Student

	achieved, inProgress, _ := vector.Count()
	logger.Log.Info("Progress overridden by admin",
		zap.Uint("recordId", saved.ID),
		zap.Uint("studentId", saved.StudentID),
		zap.Int("grade", saved.Grade),
		zap.Int("achieved", achieved),
		zap.Int("inProgress", inProgress),
	)
	s.publish(saved.StudentID, newProgressUpdate(saved, n, true))
	return saved, nil
}

// Reset 删除进度记录，下次加载时重新初始化
func (s *ProgressService) Reset(ctx context.Context, id uint) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	mu := s.lockFor(rec.StudentID, rec.Key())
	mu.Lock()
	defer mu.Unlock()

	if err := s.Repo.Delete(ctx, rec); err != nil {
		return err
	}
	logger.Log.Info("Progress reset by admin", zap.Uint("recordId", rec.ID), zap.Uint("studentId", rec.StudentID))

	if s.Publisher != nil {
		s.Publisher.Publish(rec.StudentID, WSMessage{Type: "progress_reset", Data: rec.Key()})
	}
	return nil
}
