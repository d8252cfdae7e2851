package tests

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/ultrainstinct-ai/site-connect/internal/api/http/dto"
	"github.com/ultrainstinct-ai/site-connect/internal/webhook"
)

// Secrets the system test wires into the router.
const (
	AdminKey      = "systemtest-admin-key"
	WebhookSecret = "systemtest-webhook-secret"
)

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	return do(router, method, path, body, nil)
}

func doJSONWithKey(router *gin.Engine, method, path string, body any, apiKey string) *httptest.ResponseRecorder {
	return do(router, method, path, body, map[string]string{webhook.KeyHeader: apiKey})
}

func doJSONWithAdminKey(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	return do(router, method, path, body, map[string]string{"X-API-Key": AdminKey})
}

// doRaw posts verbatim bytes so the signature computed over them still
// matches on the wire.
func doRaw(router *gin.Engine, path string, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(webhook.SignatureHeader, signature)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func do(router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var b []byte
	if body != nil {
		b, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// generateKey mints a fresh shared key through the admin surface, replacing
// any key earlier scenarios stored.
func generateKey(t *testing.T, router *gin.Engine) string {
	t.Helper()

	rr := doJSONWithAdminKey(router, "POST", "/admin/credentials/generate", nil)
	require.Equal(t, 200, rr.Code)

	var resp dto.GenerateKeyResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.APIKey, 64)
	return resp.APIKey
}
