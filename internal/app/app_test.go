package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"learnhub_backend/internal/config"
	"learnhub_backend/internal/llm"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/service"
	"learnhub_backend/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t    *testing.T
	app  *App
	mock *llm.MockProvider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		Server:  config.ServerConfig{Port: "0", Mode: "test"},
		JWT:     config.JWTConfig{Secret: "integration-test-secret", ExpireTime: time.Hour},
		Content: config.ContentConfig{Source: "file", Path: "../../content/topics.json"},
		Copilot: config.CopilotConfig{HistoryLimit: 10, RequestsPerMinute: 600, Burst: 10},
		CORS:    config.CORSConfig{AllowedOrigins: []string{"*"}},
	}

	mock := llm.NewMockProvider()
	application, err := Build(cfg, Deps{DB: db, Store: service.LocalContentStore{}, Provider: mock})
	require.NoError(t, err)
	t.Cleanup(application.Close)

	return &testServer{t: t, app: application, mock: mock}
}

func (s *testServer) do(method, path, token string, body any) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.app.Router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (s *testServer) account(email string, role model.UserRole) string {
	s.t.Helper()
	user := &model.User{Name: email, Email: email, Password: "password1", Role: role}
	require.NoError(s.t, s.app.services.auth.Register(user))

	code, env := s.do(http.MethodPost, "/api/login", "", map[string]string{"email": email, "password": "password1"})
	require.Equal(s.t, http.StatusOK, code, env.Message)

	var res service.LoginResult
	require.NoError(s.t, json.Unmarshal(env.Data, &res))
	return res.Token
}

func TestRouter_RequiresAuthentication(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(http.MethodGet, "/api/content/topics", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env := s.do(http.MethodPost, "/api/login", "", map[string]string{"email": "nobody@x.io", "password": "password1"})
	assert.Equal(t, http.StatusUnauthorized, code, env.Message)
}

func TestRouter_StudentLearningFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.account("student@x.io", model.Student)
	page := "/go-basics/types/slices"

	code, _ := s.do(http.MethodGet, "/api/content/topics", token, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env := s.do(http.MethodGet, "/api/progress"+page, token, nil)
	require.Equal(t, http.StatusOK, code)
	var loaded service.ProgressUpdate
	require.NoError(t, json.Unmarshal(env.Data, &loaded))
	assert.Equal(t, model.ProgressVector{model.NotAchieved, model.NotAchieved, model.NotAchieved}, loaded.Vector)

	code, env = s.do(http.MethodPost, "/api/progress"+page, token, map[string]any{
		"objectives": []string{"achieved", "not_achieved", "in_progress"},
	})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = s.do(http.MethodPost, "/api/quiz"+page+"/submit", token, map[string]any{
		"answers": map[string]int{"q1": 0, "q2": 0, "q3": 0, "q4": 0},
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	var quiz service.QuizResult
	require.NoError(t, json.Unmarshal(env.Data, &quiz))
	assert.Equal(t, 25, quiz.Score)
	assert.Equal(t, 83, quiz.Progress.Grade)
	assert.Equal(t, model.ProgressVector{model.Achieved, model.Achieved, model.InProgress}, quiz.Progress.Vector)

	code, _ = s.do(http.MethodPost, "/api/quiz"+page+"/submit", token, map[string]any{
		"answers": map[string]int{"nope": 0},
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(http.MethodGet, "/api/quiz/go-basics/types/maps", token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(http.MethodGet, "/api/progress/go-basics/types/unknown", token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRouter_CopilotChat(t *testing.T) {
	s := newTestServer(t)
	token := s.account("student@x.io", model.Student)

	s.mock.AddResponse(llm.MockResponse{Content: json.RawMessage(
		`{"reply":"Slices share their backing array.","objectives":[{"id":"slice-aliasing","status":"achieved"}]}`,
	)})

	chat := map[string]string{
		"topic": "go-basics", "subtopic": "types", "nestedTopic": "slices",
		"message": "What happens when two slices share an array?",
	}
	code, env := s.do(http.MethodPost, "/api/copilot/chat", token, chat)
	require.Equal(t, http.StatusOK, code, env.Message)
	var res service.ChatResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, model.Achieved, res.Progress.Vector[2])

	code, _ = s.do(http.MethodGet, "/api/copilot/sessions/"+res.SessionID, token, nil)
	assert.Equal(t, http.StatusOK, code)

	// 预置响应用完后模型不可用
	code, _ = s.do(http.MethodPost, "/api/copilot/chat", token, chat)
	assert.Equal(t, http.StatusBadGateway, code)
}

func TestRouter_AdminRoutes(t *testing.T) {
	s := newTestServer(t)
	student := s.account("student@x.io", model.Student)
	admin := s.account("admin@x.io", model.Admin)

	code, _ := s.do(http.MethodGet, "/api/admin/students", student, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := s.do(http.MethodGet, "/api/admin/students", admin, nil)
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = s.do(http.MethodPost, "/api/admin/students", admin, map[string]any{
		"name": "New", "email": "new@x.io", "password": "secret12",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var created model.User
	require.NoError(t, json.Unmarshal(env.Data, &created))

	code, _ = s.do(http.MethodPost, "/api/admin/students", admin, map[string]any{
		"name": "Dup", "email": "new@x.io", "password": "secret12",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(http.MethodPost, "/api/progress/go-basics/types/slices", student, map[string]any{
		"objectives": []string{"achieved"},
	})
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(http.MethodGet, "/api/admin/progress", admin, nil)
	require.Equal(t, http.StatusOK, code)
	var page struct {
		List  []model.ProgressRecord `json:"list"`
		Total int64                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.EqualValues(t, 1, page.Total)
	recordPath := "/api/admin/progress/" + jsonNumber(page.List[0].ID)

	code, env = s.do(http.MethodPut, recordPath, admin, map[string]any{
		"objectives": []string{"in_progress", "in_progress", "in_progress"},
	})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, _ = s.do(http.MethodDelete, recordPath, admin, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(http.MethodPost, "/api/admin/students/"+jsonNumber(created.ID)+"/disable", admin, map[string]any{"disabled": true})
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(http.MethodPost, "/api/login", "", map[string]string{"email": "new@x.io", "password": "secret12"})
	assert.Equal(t, http.StatusForbidden, code)
}

func jsonNumber(id uint) string {
	b, _ := json.Marshal(id)
	return string(b)
}
