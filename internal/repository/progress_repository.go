package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"learnhub_backend/internal/model"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultProgressCacheTTL = 5 * time.Minute

// ProgressFilter 管理端进度列表筛选条件
type ProgressFilter struct {
	StudentID uint
	Topic     string
	Subtopic  string
}

// ProgressMutator 在事务中根据已存在的记录（可能为 nil）生成要写入的记录
type ProgressMutator func(existing *model.ProgressRecord) (*model.ProgressRecord, error)

type ProgressRepository struct {
	DB    *gorm.DB
	Redis *redis.Client
	TTL   time.Duration
}

func NewProgressRepository(db *gorm.DB, rdb *redis.Client, ttl time.Duration) *ProgressRepository {
	if ttl <= 0 {
		ttl = defaultProgressCacheTTL
	}
	return &ProgressRepository{DB: db, Redis: rdb, TTL: ttl}
}

func progressCacheKey(studentID uint, key model.ContentKey) string {
	return fmt.Sprintf("progress:%d:%s", studentID, key.String())
}

// Find 按学生与内容键查询，优先读 Redis 缓存
func (r *ProgressRepository) Find(ctx context.Context, studentID uint, key model.ContentKey) (*model.ProgressRecord, error) {
	if rec := r.readCache(ctx, studentID, key); rec != nil {
		return rec, nil
	}

	var rec model.ProgressRecord
	err := r.DB.WithContext(ctx).
		Where("student_id = ? AND topic = ? AND subtopic = ? AND nested_topic = ?",
			studentID, key.Topic, key.Subtopic, key.NestedTopic).
		First(&rec).Error
	if err != nil {
		return nil, err
	}

	r.writeCache(ctx, &rec)
	return &rec, nil
}

func (r *ProgressRepository) FindByID(ctx context.Context, id uint) (*model.ProgressRecord, error) {
	var rec model.ProgressRecord
	err := r.DB.WithContext(ctx).Preload("Student").First(&rec, id).Error
	return &rec, err
}

func (r *ProgressRepository) ListByStudent(ctx context.Context, studentID uint) ([]model.ProgressRecord, error) {
	var records []model.ProgressRecord
	err := r.DB.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("topic, subtopic, nested_topic").
		Find(&records).Error
	return records, err
}

func (r *ProgressRepository) List(ctx context.Context, filter ProgressFilter, page, pageSize int) ([]model.ProgressRecord, int64, error) {
	var records []model.ProgressRecord
	var total int64

	query := r.DB.WithContext(ctx).Model(&model.ProgressRecord{})
	if filter.StudentID != 0 {
		query = query.Where("student_id = ?", filter.StudentID)
	}
	if filter.Topic != "" {
		query = query.Where("topic = ?", filter.Topic)
	}
	if filter.Subtopic != "" {
		query = query.Where("subtopic = ?", filter.Subtopic)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Preload("Student").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Order("updated_at DESC, id DESC").
		Find(&records).Error
	return records, total, err
}

// Upsert 在事务内读取-修改-写入一条进度记录
// MySQL 下使用 SELECT ... FOR UPDATE 锁行；并发首次插入撞唯一索引时重试一次
func (r *ProgressRepository) Upsert(ctx context.Context, studentID uint, key model.ContentKey, mutate ProgressMutator) (*model.ProgressRecord, error) {
	var saved *model.ProgressRecord
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		saved, err = r.upsertOnce(ctx, studentID, key, mutate)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	r.writeCache(ctx, saved)
	return saved, nil
}

func (r *ProgressRepository) upsertOnce(ctx context.Context, studentID uint, key model.ContentKey, mutate ProgressMutator) (*model.ProgressRecord, error) {
	var saved *model.ProgressRecord

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("student_id = ? AND topic = ? AND subtopic = ? AND nested_topic = ?",
			studentID, key.Topic, key.Subtopic, key.NestedTopic)
		if tx.Dialector.Name() != "sqlite" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var existing *model.ProgressRecord
		var current model.ProgressRecord
		err := query.First(&current).Error
		switch {
		case err == nil:
			existing = &current
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		next, err := mutate(existing)
		if err != nil {
			return err
		}
		next.StudentID = studentID
		next.SetKey(key)

		if next.ID == 0 {
			if err := tx.Create(next).Error; err != nil {
				return err
			}
		} else if err := tx.Save(next).Error; err != nil {
			return err
		}

		saved = next
		return nil
	})

	return saved, err
}

// Delete 物理删除记录，下次加载时重新初始化为全 NotAchieved
func (r *ProgressRepository) Delete(ctx context.Context, rec *model.ProgressRecord) error {
	if err := r.DB.WithContext(ctx).Delete(&model.ProgressRecord{}, rec.ID).Error; err != nil {
		return err
	}
	r.dropCache(ctx, rec.StudentID, rec.Key())
	return nil
}

func (r *ProgressRepository) DeleteByStudent(ctx context.Context, studentID uint) error {
	records, err := r.ListByStudent(ctx, studentID)
	if err != nil {
		return err
	}
	if err := r.DB.WithContext(ctx).Where("student_id = ?", studentID).Delete(&model.ProgressRecord{}).Error; err != nil {
		return err
	}
	for i := range records {
		r.dropCache(ctx, studentID, records[i].Key())
	}
	return nil
}

func (r *ProgressRepository) readCache(ctx context.Context, studentID uint, key model.ContentKey) *model.ProgressRecord {
	if r.Redis == nil {
		return nil
	}
	data, err := r.Redis.Get(ctx, progressCacheKey(studentID, key)).Bytes()
	if err != nil {
		return nil
	}
	var rec model.ProgressRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil
	}
	return &rec
}

func (r *ProgressRepository) writeCache(ctx context.Context, rec *model.ProgressRecord) {
	if r.Redis == nil || rec == nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	r.Redis.Set(ctx, progressCacheKey(rec.StudentID, rec.Key()), data, r.TTL)
}

func (r *ProgressRepository) dropCache(ctx context.Context, studentID uint, key model.ContentKey) {
	if r.Redis == nil {
		return
	}
	r.Redis.Del(ctx, progressCacheKey(studentID, key))
}
