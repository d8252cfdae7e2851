package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultrainstinct-ai/site-connect/internal/api/http/dto"
)

func TestAgentLifecycle(t *testing.T, router *gin.Engine) {
	key := generateKey(t, router)

	t.Run("register", func(t *testing.T) {
		body := dto.RegisterAgentRequest{
			AgentID:      "st-agent-1",
			AgentName:    "System Test Agent",
			AgentType:    "content",
			Capabilities: []string{"posts", "media"},
			Metadata:     map[string]any{"region": "eu"},
		}
		rr := doJSONWithKey(router, "POST", "/api/v2/agents/register", body, key)
		require.Equal(t, http.StatusCreated, rr.Code)

		var resp dto.RegisterAgentResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "st-agent-1", resp.Agent.AgentID)
		assert.Equal(t, "active", resp.Agent.Status)
		assert.Contains(t, resp.Agent.Capabilities, "posts")
	})

	t.Run("register missing field", func(t *testing.T) {
		body := dto.RegisterAgentRequest{AgentID: "st-agent-2"}
		rr := doJSONWithKey(router, "POST", "/api/v2/agents/register", body, key)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("re-register updates instead of duplicating", func(t *testing.T) {
		body := dto.RegisterAgentRequest{
			AgentID:   "st-agent-1",
			AgentName: "Renamed Agent",
			AgentType: "content",
		}
		rr := doJSONWithKey(router, "POST", "/api/v2/agents/register", body, key)
		require.Equal(t, http.StatusCreated, rr.Code)

		rr = doJSONWithKey(router, "GET", "/api/v2/agents/list", nil, key)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.ListAgentsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		names := make(map[string]string)
		for _, a := range resp.Agents {
			names[a.AgentID] = a.AgentName
		}
		assert.Equal(t, "Renamed Agent", names["st-agent-1"])
	})

	t.Run("heartbeat merges metadata", func(t *testing.T) {
		body := dto.HeartbeatRequest{
			AgentID:  "st-agent-1",
			Metadata: map[string]any{"load": "low"},
		}
		rr := doJSONWithKey(router, "POST", "/api/v2/agents/heartbeat", body, key)
		require.Equal(t, http.StatusOK, rr.Code)

		rr = doJSONWithKey(router, "GET", "/api/v2/agents/list", nil, key)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.ListAgentsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		for _, a := range resp.Agents {
			if a.AgentID == "st-agent-1" {
				assert.Equal(t, "low", a.Metadata["load"])
				assert.Equal(t, "eu", a.Metadata["region"])
			}
		}
	})

	t.Run("heartbeat for unknown agent is a no-op", func(t *testing.T) {
		body := dto.HeartbeatRequest{AgentID: "never-registered"}
		rr := doJSONWithKey(router, "POST", "/api/v2/agents/heartbeat", body, key)
		assert.Equal(t, http.StatusOK, rr.Code)

		rr = doJSONWithKey(router, "GET", "/api/v2/agents/list", nil, key)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.ListAgentsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		for _, a := range resp.Agents {
			assert.NotEqual(t, "never-registered", a.AgentID)
		}
	})

	t.Run("disconnect", func(t *testing.T) {
		rr := doJSONWithKey(router, "POST", "/api/v2/agents/st-agent-1/disconnect", nil, key)
		require.Equal(t, http.StatusOK, rr.Code)

		rr = doJSONWithKey(router, "GET", "/api/v2/agents/list?status=active", nil, key)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.ListAgentsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		for _, a := range resp.Agents {
			assert.NotEqual(t, "st-agent-1", a.AgentID)
		}
	})

	t.Run("disconnect unknown agent", func(t *testing.T) {
		rr := doJSONWithKey(router, "POST", "/api/v2/agents/nonexistent/disconnect", nil, key)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
