package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktrack/internal/clock"
	"tasktrack/internal/metrics"
	"tasktrack/internal/repository/sqlite"
	"tasktrack/internal/service"
	"tasktrack/internal/session"
)

var fixedNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "tasktrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	userRepo := sqlite.NewUserRepository(db)
	taskRepo := sqlite.NewTaskRepository(db)
	ctx := context.Background()
	require.NoError(t, userRepo.Init(ctx))
	require.NoError(t, taskRepo.Init(ctx))

	clk := clock.Fixed{T: fixedNow}
	sessions := session.NewStore()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	handler := NewHandler(
		service.NewAuthService(userRepo, sessions, clk),
		service.NewTaskService(taskRepo, userRepo, clk),
		service.NewUserService(userRepo, taskRepo),
		service.NewStatsService(taskRepo, userRepo),
		nil,
		"",
		"",
		metrics.NewCollector(),
		logger,
	)

	router := gin.New()
	handler.RegisterRoutes(router)
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload
}

func registerUser(t *testing.T, router *gin.Engine, name, email string) (int64, string) {
	t.Helper()
	w := doRequest(t, router, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":  name,
		"email": email,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	payload := decode(t, w)
	user := payload["user"].(map[string]any)
	return int64(user["id"].(float64)), payload["sessionToken"].(string)
}

func createTask(t *testing.T, router *gin.Engine, token, title, priority string) int64 {
	t.Helper()
	w := doRequest(t, router, http.MethodPost, "/api/tasks", token, gin.H{
		"title":    title,
		"priority": priority,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return int64(decode(t, w)["id"].(float64))
}

func TestRegisterEndpoint(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":  "John Doe",
		"email": "john@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)
	payload := decode(t, w)
	assert.NotEmpty(t, payload["sessionToken"])
	user := payload["user"].(map[string]any)
	assert.Equal(t, "John Doe", user["name"])
	assert.Equal(t, "john@example.com", user["email"])
}

func TestRegisterEndpointValidation(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(t, router, http.MethodPost, "/api/auth/register", "", gin.H{"email": "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	registerUser(t, router, "Jane", "jane@example.com")
	w = doRequest(t, router, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":  "Impostor",
		"email": "jane@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User already exists", decode(t, w)["error"])
}

func TestLoginEndpoint(t *testing.T) {
	router := setupRouter(t)
	registerUser(t, router, "Jane Doe", "jane@example.com")

	w := doRequest(t, router, http.MethodPost, "/api/auth/login", "", gin.H{"email": "jane@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	payload := decode(t, w)
	assert.NotEmpty(t, payload["sessionToken"])

	w = doRequest(t, router, http.MethodPost, "/api/auth/login", "", gin.H{"email": "nobody@example.com"})
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", decode(t, w)["error"])
}

func TestMeEndpoint(t *testing.T) {
	router := setupRouter(t)
	_, token := registerUser(t, router, "Jane Doe", "jane@example.com")

	w := doRequest(t, router, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	payload := decode(t, w)
	assert.Equal(t, "jane@example.com", payload["email"])
	assert.Equal(t, "Jane Doe", payload["name"])

	w = doRequest(t, router, http.MethodGet, "/api/auth/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", decode(t, w)["error"])

	w = doRequest(t, router, http.MethodGet, "/api/auth/me", "never-issued", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutEndpoint(t *testing.T) {
	router := setupRouter(t)
	_, token := registerUser(t, router, "Jane Doe", "jane@example.com")

	w := doRequest(t, router, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, router, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateTaskEndpoint(t *testing.T) {
	router := setupRouter(t)
	userID, token := registerUser(t, router, "Owner", "owner@example.com")

	w := doRequest(t, router, http.MethodPost, "/api/tasks", token, gin.H{
		"title":       "Test Task",
		"description": "Test Description",
		"priority":    "MEDIUM",
	})
	require.Equal(t, http.StatusOK, w.Code)
	payload := decode(t, w)
	assert.Equal(t, "Test Task", payload["title"])
	assert.Equal(t, "MEDIUM", payload["priority"])
	assert.Equal(t, "ACTIVE", payload["status"])
	assert.Equal(t, float64(userID), payload["userId"])

	w = doRequest(t, router, http.MethodPost, "/api/tasks", "", gin.H{
		"title":    "No session",
		"priority": "LOW",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/tasks", token, gin.H{
		"title":    "",
		"priority": "LOW",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateTaskHighPriorityLimitEndpoint(t *testing.T) {
	router := setupRouter(t)
	_, token := registerUser(t, router, "Busy", "busy@example.com")

	for i := 0; i < 3; i++ {
		createTask(t, router, token, fmt.Sprintf("High %d", i), "HIGH")
	}

	w := doRequest(t, router, http.MethodPost, "/api/tasks", token, gin.H{
		"title":    "Fourth High Priority",
		"priority": "HIGH",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "3 active high-priority tasks")
}

func TestListTasksScopedToSession(t *testing.T) {
	router := setupRouter(t)
	_, tokenOne := registerUser(t, router, "User One", "one@example.com")
	_, tokenTwo := registerUser(t, router, "User Two", "two@example.com")

	createTask(t, router, tokenOne, "User1 Task", "HIGH")
	createTask(t, router, tokenTwo, "User2 Task", "MEDIUM")

	w := doRequest(t, router, http.MethodGet, "/api/tasks", tokenOne, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var tasks []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "User1 Task", tasks[0]["title"])
}

func TestCompleteTaskEndpoint(t *testing.T) {
	router := setupRouter(t)
	_, token := registerUser(t, router, "Completer", "completer@example.com")
	taskID := createTask(t, router, token, "Task to Complete", "LOW")

	w := doRequest(t, router, http.MethodPut, fmt.Sprintf("/api/tasks/%d/complete", taskID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	payload := decode(t, w)
	assert.Equal(t, "COMPLETED", payload["status"])
	assert.Equal(t, fixedNow.Format(time.RFC3339), payload["completedAt"])

	// A second completion is rejected without mutating the task.
	w = doRequest(t, router, http.MethodPut, fmt.Sprintf("/api/tasks/%d/complete", taskID), token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Task is already completed", decode(t, w)["error"])
}

func TestCompleteTaskForbiddenForNonOwner(t *testing.T) {
	router := setupRouter(t)
	_, ownerToken := registerUser(t, router, "Owner", "owner@example.com")
	_, otherToken := registerUser(t, router, "Other", "other@example.com")
	taskID := createTask(t, router, ownerToken, "Private task", "LOW")

	w := doRequest(t, router, http.MethodPut, fmt.Sprintf("/api/tasks/%d/complete", taskID), otherToken, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Forbidden", decode(t, w)["error"])
}

func TestAssignTaskEndpoint(t *testing.T) {
	router := setupRouter(t)
	_, ownerToken := registerUser(t, router, "Owner", "owner@example.com")
	targetID, _ := registerUser(t, router, "Target", "target@example.com")
	taskID := createTask(t, router, ownerToken, "Hand over", "MEDIUM")

	w := doRequest(t, router, http.MethodPut, fmt.Sprintf("/api/tasks/%d/assign", taskID), ownerToken, gin.H{
		"userId": targetID,
	})
	require.Equal(t, http.StatusOK, w.Code)
	payload := decode(t, w)
	assert.Equal(t, float64(targetID), payload["userId"])
	assert.Equal(t, "ACTIVE", payload["status"])
}

func TestAssignTaskCapacityEndpoint(t *testing.T) {
	router := setupRouter(t)
	_, ownerToken := registerUser(t, router, "Owner", "owner@example.com")
	targetID, targetToken := registerUser(t, router, "Loaded", "loaded@example.com")

	for i := 0; i < 10; i++ {
		createTask(t, router, targetToken, fmt.Sprintf("Task %d", i), "LOW")
	}
	taskID := createTask(t, router, ownerToken, "One too many", "LOW")

	w := doRequest(t, router, http.MethodPut, fmt.Sprintf("/api/tasks/%d/assign", taskID), ownerToken, gin.H{
		"userId": targetID,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "10 active tasks")
}

func TestStatsEndpoint(t *testing.T) {
	router := setupRouter(t)
	_, token := registerUser(t, router, "Owner", "owner@example.com")
	taskID := createTask(t, router, token, "Active one", "LOW")
	createTask(t, router, token, "Active two", "LOW")
	doRequest(t, router, http.MethodPut, fmt.Sprintf("/api/tasks/%d/complete", taskID), token, nil)

	w := doRequest(t, router, http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	payload := decode(t, w)
	assert.Equal(t, float64(2), payload["totalTasks"])
	assert.Equal(t, float64(1), payload["activeTasks"])
	assert.Equal(t, float64(1), payload["completedTasks"])
	assert.Equal(t, float64(1), payload["totalUsers"])
}

func TestListUsersEndpoint(t *testing.T) {
	router := setupRouter(t)
	_, token := registerUser(t, router, "Jane", "jane@example.com")
	registerUser(t, router, "John", "john@example.com")
	taskID := createTask(t, router, token, "Open", "LOW")
	doneID := createTask(t, router, token, "Closed", "LOW")
	doRequest(t, router, http.MethodPut, fmt.Sprintf("/api/tasks/%d/complete", doneID), token, nil)

	w := doRequest(t, router, http.MethodGet, "/api/users", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var users []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users, 2)

	tasks := users[0]["tasks"].([]any)
	require.Len(t, tasks, 1)
	assert.Equal(t, float64(taskID), tasks[0].(map[string]any)["id"])
	assert.Empty(t, users[1]["tasks"])
}

func TestInvalidTaskID(t *testing.T) {
	router := setupRouter(t)
	_, token := registerUser(t, router, "Owner", "owner@example.com")

	w := doRequest(t, router, http.MethodPut, "/api/tasks/abc/complete", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestArchivesUnconfigured(t *testing.T) {
	router := setupRouter(t)
	_, token := registerUser(t, router, "Owner", "owner@example.com")

	w := doRequest(t, router, http.MethodGet, "/api/archives", token, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	router := setupRouter(t)

	w := doRequest(t, router, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupRouter(t)
	doRequest(t, router, http.MethodGet, "/api/health", "", nil)

	w := doRequest(t, router, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tasktrack_http_requests_total")
}
