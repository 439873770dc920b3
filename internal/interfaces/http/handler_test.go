package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"autoforward/internal/entities"
	"autoforward/internal/infrastructure"
	"autoforward/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// nopStore accepts every write; good enough to drive the registry in handler tests.
type nopStore struct{}

func (nopStore) LoadAll() (map[int64]*entities.UserConfig, error) {
	return map[int64]*entities.UserConfig{}, nil
}
func (nopStore) CreateUser(int64, string, string) error                  { return nil }
func (nopStore) AddSource(int64, entities.ChatRef) error                 { return nil }
func (nopStore) RemoveSource(int64, int64) error                         { return nil }
func (nopStore) AddTarget(int64, entities.ChatRef) error                 { return nil }
func (nopStore) RemoveTarget(int64, int64) error                         { return nil }
func (nopStore) SaveSettings(int64, entities.Settings) error             { return nil }
func (nopStore) AddBlacklist(int64, string) error                        { return nil }
func (nopStore) RemoveBlacklist(int64, string) error                     { return nil }
func (nopStore) AddWhitelist(int64, string) error                        { return nil }
func (nopStore) RemoveWhitelist(int64, string) error                     { return nil }
func (nopStore) AddUsernameReplacement(int64, entities.Replacement) error { return nil }
func (nopStore) RemoveUsernameReplacement(int64, string) error           { return nil }
func (nopStore) AddLinkReplacement(int64, entities.Replacement) error    { return nil }
func (nopStore) RemoveLinkReplacement(int64, string) error               { return nil }
func (nopStore) DeleteUser(int64) error                                  { return nil }

const testSecret = "test-secret"

func testRouter(t *testing.T) (*gin.Engine, *usecases.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := usecases.NewRegistry(nopStore{})
	require.NoError(t, registry.Load())

	h := NewHandler(registry, infrastructure.NewForwardStats(), nil, "")
	r := gin.New()
	SetupRoutes(r, h, nil, NewMiddleware(testSecret))
	return r, registry
}

func adminToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": float64(1),
		"role":    "admin",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutes_RequireAuth(t *testing.T) {
	r, _ := testRouter(t)

	w := doJSON(t, r, "GET", "/api/users", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, "GET", "/api/users", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserLifecycleOverHTTP(t *testing.T) {
	r, registry := testRouter(t)
	token := adminToken(t)

	w := doJSON(t, r, "POST", "/api/users", token, gin.H{"user_id": 42, "first_name": "Ada"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "POST", "/api/users/42/sources", token, gin.H{"chat_id": 100, "name": "News"})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, "POST", "/api/users/42/targets", token, gin.H{"chat_id": 200, "name": "Mirror"})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, "PUT", "/api/users/42/enabled", token, gin.H{"enabled": true})
	require.Equal(t, http.StatusOK, w.Code)

	cfg, ok := registry.Get(42)
	require.True(t, ok)
	require.True(t, cfg.Active())

	w = doJSON(t, r, "GET", "/api/users/42", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "DELETE", "/api/users/42", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, ok = registry.Get(42)
	require.False(t, ok)
}

func TestMutationOnUnknownUserIs404(t *testing.T) {
	r, _ := testRouter(t)
	token := adminToken(t)

	w := doJSON(t, r, "POST", "/api/users/9/sources", token, gin.H{"chat_id": 1})
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPreviewTransform(t *testing.T) {
	r, _ := testRouter(t)
	token := adminToken(t)

	doJSON(t, r, "POST", "/api/users", token, gin.H{"user_id": 42})
	doJSON(t, r, "PUT", "/api/users/42/settings", token, gin.H{
		"hide_header": false, "forward_media": true, "url_previews": true,
		"remove_usernames": true, "remove_links": true,
	})

	w := doJSON(t, r, "POST", "/api/users/42/preview", token, gin.H{"text": "contact @alice at http://x.com"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Text   string `json:"text"`
		Passes bool   `json:"passes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "contact  at ", resp.Text)
	require.True(t, resp.Passes)
}

func TestKeywordValidation(t *testing.T) {
	r, _ := testRouter(t)
	token := adminToken(t)
	doJSON(t, r, "POST", "/api/users", token, gin.H{"user_id": 42})

	w := doJSON(t, r, "POST", "/api/users/42/blacklist", token, gin.H{"keyword": "   "})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, "POST", "/api/users/42/blacklist", token, gin.H{"keyword": "spam"})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestBotQRUnavailableWithoutBot(t *testing.T) {
	r, _ := testRouter(t)
	w := doJSON(t, r, "GET", "/api/qr", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
