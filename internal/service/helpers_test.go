package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testContentJSON = `{
  "topics": [{
    "slug": "go",
    "title": "Go",
    "subtopics": [{
      "slug": "types",
      "title": "Types",
      "nestedTopics": [{
        "slug": "slices",
        "title": "Slices",
        "body": "Slices wrap arrays.",
        "objectives": [
          {"id": "o1", "text": "header"},
          {"id": "o2", "text": "append"},
          {"id": "o3", "text": "aliasing"}
        ],
        "quiz": [
          {"id": "q1", "prompt": "p1", "options": ["a", "b"], "answer": 1, "objective": "o1"},
          {"id": "q2", "prompt": "p2", "options": ["a", "b"], "answer": 0, "objective": "o2"},
          {"id": "q3", "prompt": "p3", "options": ["a", "b"], "answer": 0, "objective": "o3"},
          {"id": "q4", "prompt": "p4", "options": ["a", "b"], "answer": 1, "objective": "o3"}
        ]
      }, {
        "slug": "maps",
        "title": "Maps",
        "objectives": [{"id": "m1", "text": "comma ok"}]
      }]
    }]
  }]
}`

var (
	slicesKey = model.ContentKey{Topic: "go", Subtopic: "types", NestedTopic: "slices"}
	mapsKey   = model.ContentKey{Topic: "go", Subtopic: "types", NestedTopic: "maps"}
)

// 每个测试独立的内存库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func writeContentFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func newTestContent(t *testing.T) *ContentService {
	t.Helper()
	content := NewContentService(LocalContentStore{}, writeContentFile(t, "topics.json", testContentJSON))
	_, err := content.Reload(context.Background())
	require.NoError(t, err)
	return content
}

type recordingPublisher struct {
	messages []WSMessage
	students []uint
}

func (p *recordingPublisher) Publish(studentID uint, msg WSMessage) {
	p.students = append(p.students, studentID)
	p.messages = append(p.messages, msg)
}

type serviceFixture struct {
	db        *gorm.DB
	content   *ContentService
	progress  *ProgressService
	publisher *recordingPublisher
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	db := newTestDB(t)
	content := newTestContent(t)
	pub := &recordingPublisher{}
	return &serviceFixture{
		db:        db,
		content:   content,
		progress:  NewProgressService(repository.NewProgressRepository(db, nil, 0), content, pub),
		publisher: pub,
	}
}
