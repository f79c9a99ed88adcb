package handlers

import (
	"bytes"
	"errors"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/stellar-tasks/internal/config"
	"github.com/yukikurage/stellar-tasks/internal/database"
	"github.com/yukikurage/stellar-tasks/internal/models"
	"github.com/yukikurage/stellar-tasks/internal/repository"
	"github.com/yukikurage/stellar-tasks/internal/services"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJWTSecret = "handler-test-secret"

var errConnRefused = errors.New("dial tcp 127.0.0.1:3306: connect: connection refused")

// apiEnv is a fully wired router backed by db.
type apiEnv struct {
	t      *testing.T
	db     *gorm.DB
	auth   *services.AuthService
	router *gin.Engine
}

func newAPIEnv(t *testing.T, db *gorm.DB, ai *services.AIService) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	taskRepo := repository.NewTaskRepository(db)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	authService := services.NewAuthService(userRepo, services.AuthConfig{
		JWTSecret: testJWTSecret,
		TokenTTL:  time.Hour,
		Timeout:   time.Second,
	})
	notificationService := services.NewNotificationService(notificationRepo, time.Second)
	taskService := services.NewTaskService(taskRepo, userRepo, notificationService, time.Second)
	dashboardService := services.NewDashboardService(taskRepo, userRepo, time.Second)

	router := gin.New()
	RegisterRoutes(router, Handlers{
		Auth:         NewAuthHandler(authService),
		Task:         NewTaskHandler(taskService, ai),
		Notification: NewNotificationHandler(notificationService),
		Dashboard:    NewDashboardHandler(dashboardService),
	}, authService, cookie.NewStore([]byte("secret")))

	return &apiEnv{t: t, db: db, auth: authService, router: router}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(&config.Config{
		DBDriver:   "sqlite",
		SQLitePath: ":memory:",
		GinMode:    "release",
	})
	require.NoError(t, err)
	require.NoError(t, database.MigrateDatabase(db))
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		require.NoError(t, err)
		sqlDB.Close()
	})
	return db
}

// newBrokenDB returns a mysql-dialect DB whose every query fails.
func newBrokenDB(t *testing.T) *gorm.DB {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 10; i++ {
		mock.ExpectQuery(".*").WillReturnError(errConnRefused)
		mock.ExpectExec(".*").WillReturnError(errConnRefused)
		mock.ExpectBegin().WillReturnError(errConnRefused)
	}

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// user inserts a user directly and returns it with a bearer token.
func (e *apiEnv) user(username string, role models.UserRole) (*models.User, string) {
	e.t.Helper()
	user := &models.User{Username: username, Name: username, PasswordHash: "hash", Role: role}
	require.NoError(e.t, e.db.Create(user).Error)
	token, err := e.auth.IssueToken(user)
	require.NoError(e.t, err)
	return user, token
}

func (e *apiEnv) do(method, path, token string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	e.t.Helper()
	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(e.t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func taskDraft(title string, assignees ...uint64) map[string]any {
	return map[string]any{
		"title":       title,
		"description": title + " description",
		"priority":    "Medium",
		"dueDate":     time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"assignedTo":  assignees,
		"todoChecklist": []map[string]any{
			{"text": "first", "completed": false},
			{"text": "second", "completed": false},
		},
	}
}
