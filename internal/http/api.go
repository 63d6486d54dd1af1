package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"tasktrack/internal/domain"
	"tasktrack/internal/metrics"
	"tasktrack/internal/service"
	"tasktrack/internal/storage"
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	auth    service.AuthService
	tasks   service.TaskService
	users   service.UserService
	stats   service.StatsService
	storage storage.Service
	bucket  string
	prefix  string
	metrics *metrics.Collector
	logger  *logrus.Logger
	limiter *authRateLimiter
}

func NewHandler(
	auth service.AuthService,
	tasks service.TaskService,
	users service.UserService,
	stats service.StatsService,
	store storage.Service,
	bucket, prefix string,
	collector *metrics.Collector,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		auth:    auth,
		tasks:   tasks,
		users:   users,
		stats:   stats,
		storage: store,
		bucket:  bucket,
		prefix:  prefix,
		metrics: collector,
		logger:  logger,
		limiter: newAuthRateLimiter(30),
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())
	router.Use(observe(h.metrics, h.logger))

	router.GET("/metrics", gin.WrapH(h.metrics.Handler()))

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
		api.GET("/stats", h.getStats)
		api.GET("/users", h.listUsers)

		auth := api.Group("/auth")
		{
			auth.POST("/register", h.limiter.middleware(), h.register)
			auth.POST("/login", h.limiter.middleware(), h.login)
			auth.GET("/me", requireAuth(h.auth), h.me)
			auth.POST("/logout", requireAuth(h.auth), h.logout)
		}

		authed := api.Group("", requireAuth(h.auth))
		{
			authed.GET("/tasks", h.listTasks)
			authed.POST("/tasks", h.createTask)
			authed.PUT("/tasks/:id/complete", h.completeTask)
			authed.PUT("/tasks/:id/assign", h.assignTask)
			authed.GET("/archives", h.listArchives)
		}
	}
}

type registerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type loginRequest struct {
	Email string `json:"email" binding:"required"`
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

type assignTaskRequest struct {
	UserID int64 `json:"userId" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := h.auth.Register(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		if isBusinessError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":         userToResponse(*user),
		"sessionToken": token,
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, token, err := h.auth.Login(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": service.ErrUserNotFound.Error()})
			return
		}
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":         userToResponse(*user),
		"sessionToken": token,
	})
}

func (h *Handler) me(c *gin.Context) {
	c.JSON(http.StatusOK, userToResponse(*currentUser(c)))
}

func (h *Handler) logout(c *gin.Context) {
	token := c.GetString(sessionTokenKey)
	h.auth.Logout(token)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) listTasks(c *gin.Context) {
	user := currentUser(c)
	tasks, err := h.tasks.ListTasksByOwner(c.Request.Context(), user.ID)
	if err != nil {
		h.internalError(c, err)
		return
	}

	resp := make([]TaskResponse, len(tasks))
	for i := range tasks {
		resp[i] = taskToResponse(tasks[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) createTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := currentUser(c)
	task, err := h.tasks.CreateTask(c.Request.Context(), user.ID, req.Title, req.Description, domain.TaskPriority(req.Priority))
	if err != nil {
		if isBusinessError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, taskToResponse(*task))
}

func (h *Handler) completeTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrTaskNotFound.Error()})
			return
		}
		h.internalError(c, err)
		return
	}

	if task.UserID != currentUser(c).ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	completed, err := h.tasks.CompleteTask(c.Request.Context(), id)
	if err != nil {
		if isBusinessError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, taskToResponse(*completed))
}

func (h *Handler) assignTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	var req assignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.tasks.AssignTask(c.Request.Context(), id, req.UserID)
	if err != nil {
		if isBusinessError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, taskToResponse(*task))
}

func (h *Handler) getStats(c *gin.Context) {
	stats, err := h.stats.Collect(c.Request.Context())
	if err != nil {
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalTasks":     stats.TotalTasks,
		"activeTasks":    stats.ActiveTasks,
		"completedTasks": stats.CompletedTasks,
		"totalUsers":     stats.TotalUsers,
	})
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.ListWithActiveTasks(c.Request.Context())
	if err != nil {
		h.internalError(c, err)
		return
	}

	resp := make([]UserWithTasksResponse, len(users))
	for i, entry := range users {
		tasks := make([]TaskResponse, len(entry.ActiveTasks))
		for j := range entry.ActiveTasks {
			tasks[j] = taskToResponse(entry.ActiveTasks[j])
		}
		resp[i] = UserWithTasksResponse{
			UserResponse: userToResponse(entry.User),
			Tasks:        tasks,
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) listArchives(c *gin.Context) {
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage service not configured"})
		return
	}

	objects, err := h.storage.ListObjects(c.Request.Context(), h.bucket, h.prefix)
	if err != nil {
		h.internalError(c, err)
		return
	}

	resp := make([]ArchiveObjectResponse, len(objects))
	for i, obj := range objects {
		resp[i] = ArchiveObjectResponse{
			Key:  obj.Key,
			Size: obj.Size,
		}
		if obj.LastModified != nil && !obj.LastModified.IsZero() {
			v := obj.LastModified.Format(time.RFC3339)
			resp[i].LastModified = &v
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) internalError(c *gin.Context, err error) {
	h.logger.WithError(err).Error("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task id"})
		return 0, false
	}
	return id, true
}

// isBusinessError reports whether err is a caller-visible outcome that
// maps to a 400 response, as opposed to a storage fault.
func isBusinessError(err error) bool {
	for _, target := range []error{
		service.ErrNameRequired,
		service.ErrEmailRequired,
		service.ErrUserExists,
		service.ErrUserNotFound,
		service.ErrTitleRequired,
		service.ErrInvalidPriority,
		service.ErrTaskNotFound,
		service.ErrHighPriorityLimit,
		service.ErrActiveTaskLimit,
		service.ErrTaskAlreadyCompleted,
		service.ErrTaskCancelled,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type UserResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
}

type UserWithTasksResponse struct {
	UserResponse
	Tasks []TaskResponse `json:"tasks"`
}

type TaskResponse struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"userId"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"createdAt"`
	CompletedAt *string `json:"completedAt,omitempty"`
}

type ArchiveObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"last_modified,omitempty"`
}

func userToResponse(user domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

func taskToResponse(task domain.Task) TaskResponse {
	resp := TaskResponse{
		ID:          task.ID,
		UserID:      task.UserID,
		Title:       task.Title,
		Description: task.Description,
		Priority:    string(task.Priority),
		Status:      string(task.Status),
		CreatedAt:   task.CreatedAt.Format(time.RFC3339),
	}
	if task.CompletedAt != nil {
		v := task.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &v
	}
	return resp
}
