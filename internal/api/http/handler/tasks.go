package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ultrainstinct-ai/site-connect/internal/agents"
	"github.com/ultrainstinct-ai/site-connect/internal/api/http/dto"
	"github.com/ultrainstinct-ai/site-connect/internal/tasks"
)

type TasksHandler struct {
	taskService  *tasks.Service
	agentService *agents.Service
}

func NewTasksHandler(taskService *tasks.Service, agentService *agents.Service) *TasksHandler {
	return &TasksHandler{
		taskService:  taskService,
		agentService: agentService,
	}
}

// Create records a task and announces it to matching active agents. Delivery
// failures do not fail the request: the task exists either way and agents
// can pick it up on their next poll.
// POST /tasks/create
func (h *TasksHandler) Create(c *gin.Context) {
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewError("invalid_json", "Invalid request body"))
		return
	}

	task, err := h.taskService.Create(c.Request.Context(), req.TaskType, req.Payload)
	if err != nil {
		slog.Error("Failed to create task", "error", err)
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "Failed to create task"))
		return
	}

	message := map[string]any{
		"event":     "new_task",
		"task_id":   task.ID,
		"task_type": task.TaskType,
		"payload":   task.Payload,
	}

	deliveries, err := h.agentService.Broadcast(c.Request.Context(), message, req.AgentTypes)
	if err != nil {
		slog.Error("Failed to broadcast task", "error", err, "task_id", task.ID)
		deliveries = map[string]agents.BroadcastResult{}
	}

	// Every targeted agent counts as notified; per-agent outcomes are in
	// the deliveries map.
	c.JSON(http.StatusCreated, dto.CreateTaskResponse{
		Success:        true,
		TaskID:         task.ID,
		Status:         task.Status,
		AgentsNotified: len(deliveries),
		Deliveries:     deliveries,
	})
}

// Status returns a task and, when one was reported, its result.
// GET /tasks/:task_id/status
func (h *TasksHandler) Status(c *gin.Context) {
	taskID := c.Param("task_id")

	task, result, err := h.taskService.Get(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, tasks.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, dto.NewError("task_not_found", "Task not found"))
			return
		}
		slog.Error("Failed to load task", "error", err, "task_id", taskID)
		c.JSON(http.StatusInternalServerError, dto.NewError("internal_error", "Failed to load task"))
		return
	}

	resp := dto.TaskStatusResponse{
		Success:   true,
		TaskID:    task.ID,
		TaskType:  task.TaskType,
		Status:    task.Status,
		CreatedAt: task.CreatedAt,
	}
	if result != nil {
		resp.Result = result.Result
		resp.Error = result.Error
		resp.AgentID = result.AgentID
		completedAt := result.CompletedAt
		resp.CompletedAt = &completedAt
	}

	c.JSON(http.StatusOK, resp)
}
