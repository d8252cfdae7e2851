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

func TestCredentialLifecycle(t *testing.T, router *gin.Engine) {
	t.Run("connect rejected without key", func(t *testing.T) {
		rr := doJSON(router, "POST", "/api/v2/connect", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("admin surface rejects wrong key", func(t *testing.T) {
		rr := do(router, "POST", "/admin/credentials/generate", nil,
			map[string]string{"X-API-Key": "not-the-admin-key"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	key := generateKey(t, router)

	t.Run("status reports stored key", func(t *testing.T) {
		rr := doJSONWithAdminKey(router, "GET", "/admin/credentials", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.CredentialsStatusResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.HasKey)
		assert.Equal(t, "connected", resp.Status)
	})

	t.Run("connect succeeds with generated key", func(t *testing.T) {
		rr := doJSONWithKey(router, "POST", "/api/v2/connect", nil, key)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.ConnectResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.NotEmpty(t, resp.SiteInfo.SiteURL)
		assert.Contains(t, resp.WebhookURL, "/api/v2/webhook")
	})

	t.Run("connect succeeds with bearer token", func(t *testing.T) {
		rr := do(router, "GET", "/api/v2/test", nil,
			map[string]string{"Authorization": "Bearer " + key})
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("connect rejected with wrong key", func(t *testing.T) {
		rr := doJSONWithKey(router, "POST", "/api/v2/connect", nil, "0000000000000000000000000000000000000000000000000000000000000000")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("revoked key stops working", func(t *testing.T) {
		rr := doJSONWithAdminKey(router, "POST", "/admin/credentials/revoke", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		rr = doJSONWithKey(router, "POST", "/api/v2/connect", nil, key)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		rr = doJSONWithAdminKey(router, "GET", "/admin/credentials", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp dto.CredentialsStatusResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.False(t, resp.HasKey)
	})
}
