package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultrainstinct-ai/site-connect/internal/api/http/dto"
	"github.com/ultrainstinct-ai/site-connect/internal/webhook"
)

func TestTaskFlow(t *testing.T, router *gin.Engine) {
	key := generateKey(t, router)

	var taskID string

	t.Run("create task", func(t *testing.T) {
		body := dto.CreateTaskRequest{
			TaskType: "publish_post",
			Payload:  map[string]any{"title": "System Test Post"},
		}
		rr := doJSONWithKey(router, "POST", "/api/v2/tasks/create", body, key)
		require.Equal(t, http.StatusCreated, rr.Code)

		var resp dto.CreateTaskResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.TaskID)
		assert.Equal(t, "pending", resp.Status)
		taskID = resp.TaskID
	})

	t.Run("status while pending", func(t *testing.T) {
		rr := doJSONWithKey(router, "GET", "/api/v2/tasks/"+taskID+"/status", nil, key)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.TaskStatusResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "pending", resp.Status)
		assert.Nil(t, resp.CompletedAt)
	})

	t.Run("agent reports completion via webhook", func(t *testing.T) {
		event, _ := json.Marshal(dto.WebhookEvent{
			Event:   "task_completed",
			AgentID: "st-agent-1",
			TaskID:  taskID,
			Result:  map[string]any{"post_id": 42},
		})

		rr := doRaw(router, "/api/v2/webhook", event, webhook.Sign(WebhookSecret, event))
		require.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("status reflects result", func(t *testing.T) {
		rr := doJSONWithKey(router, "GET", "/api/v2/tasks/"+taskID+"/status", nil, key)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.TaskStatusResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "completed", resp.Status)
		assert.Equal(t, "st-agent-1", resp.AgentID)
		require.NotNil(t, resp.CompletedAt)
		assert.Equal(t, float64(42), resp.Result["post_id"])
	})

	t.Run("unknown task status", func(t *testing.T) {
		rr := doJSONWithKey(router, "GET", "/api/v2/tasks/00000000-0000-0000-0000-000000000000/status", nil, key)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("webhook rejects unsigned event", func(t *testing.T) {
		event, _ := json.Marshal(dto.WebhookEvent{
			Event:   "task_failed",
			AgentID: "st-agent-1",
			TaskID:  taskID,
		})
		rr := doRaw(router, "/api/v2/webhook", event, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
