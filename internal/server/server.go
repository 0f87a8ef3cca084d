// Package server exposes the assistant facade over HTTP with gin.
// Handlers translate the facade's typed results into status codes: 400
// for validation failures, 404 for missing ids, and a generic 500 when
// the durable store could not commit.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"taskpilot/internal/assistant"
	"taskpilot/internal/storage"
	"taskpilot/internal/task"
)

// retryMessage is the only thing a storage failure shows the caller;
// details go to the operator log.
const retryMessage = "something went wrong, please retry"

// Server is the HTTP transport over one assistant.
type Server struct {
	assistant *assistant.Assistant
	router    *gin.Engine
	logger    zerolog.Logger
}

// NewServer builds the router. mode is the gin mode ("debug" or
// "release").
func NewServer(a *assistant.Assistant, logger zerolog.Logger, mode string) *Server {
	if mode != "" {
		gin.SetMode(mode)
	}
	router := gin.New()

	s := &Server{assistant: a, router: router, logger: logger}

	router.Use(requestID(), accessLog(logger), gin.Recovery())

	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	{
		api.POST("/chat", s.handleChat)
		api.GET("/tasks", s.handleListTasks)
		api.GET("/tasks/:id", s.handleGetTask)
		api.POST("/tasks", s.handleCreateTask)
		api.PUT("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.POST("/workflows/:name", s.handleRunWorkflow)
	}

	return s
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() http.Handler { return s.router }

// Run serves on addr until the listener fails.
func (s *Server) Run(addr string) error { return s.router.Run(addr) }

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type chatRequest struct {
	Message string         `json:"message"`
	Context map[string]any `json:"context"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	res, err := s.assistant.Chat(c.Request.Context(), req.Message, req.Context)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": res.Response, "timestamp": res.Timestamp.Format(time.RFC3339)})
}

func (s *Server) handleListTasks(c *gin.Context) {
	var f task.Filter
	if v := c.Query("status"); v != "" {
		f.Status = task.Status(strings.ToLower(v))
	}
	if v := c.Query("priority"); v != "" {
		f.Priority = task.Priority(strings.ToLower(v))
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	tasks := s.assistant.ListTasks(c.Request.Context(), f, limit)
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks)})
}

func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	t, found := s.assistant.GetTask(c.Request.Context(), id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, t)
}

type createTaskRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Priority    string         `json:"priority"`
	DueDate     *time.Time     `json:"due_date"`
	Tags        string         `json:"tags"`
	Metadata    map[string]any `json:"metadata"`
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if !decodeStrict(c, &req) {
		return
	}

	res, err := s.assistant.CreateTask(c.Request.Context(), task.Fields{
		Title:       req.Title,
		Description: req.Description,
		Priority:    task.Priority(strings.ToLower(req.Priority)),
		DueDate:     req.DueDate,
		Tags:        req.Tags,
		Metadata:    req.Metadata,
	})
	if err != nil {
		var verr *task.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var p task.Patch
	if !decodeStrict(c, &p) {
		return
	}

	res, found, err := s.assistant.UpdateTask(c.Request.Context(), id, p)
	if err != nil {
		var verr *task.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
			return
		}
		s.internalError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, found, err := s.assistant.DeleteTask(c.Request.Context(), id)
	if err != nil {
		s.internalError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleRunWorkflow(c *gin.Context) {
	name := c.Param("name")
	res, err := s.assistant.RunWorkflow(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrStorageFailure) {
			s.internalError(c, err)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown workflow: " + name})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) internalError(c *gin.Context, err error) {
	s.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": retryMessage})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return 0, false
	}
	return id, true
}

// decodeStrict decodes the request body rejecting unknown keys. The
// update patch is a closed type; a misspelled field is a caller error,
// not a silent no-op.
func decodeStrict(c *gin.Context, dst any) bool {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}
