package credentialhandler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalrelay/internal/services/turncred"
)

func newEngine(t *testing.T, cfg turncred.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, err := turncred.NewCredentialService(cfg)
	require.NoError(t, err)

	r := gin.New()
	New(svc).Register(r)
	return r
}

func get(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestCredentials_OK(t *testing.T) {
	r := newEngine(t, turncred.Config{
		SecretB64: base64.StdEncoding.EncodeToString([]byte("k")),
		URIs:      []string{"turns:turn.example.com:443?transport=tcp", "turn:turn.example.com:3478?transport=udp"},
		TTL:       time.Minute,
		Now:       func() time.Time { return time.Unix(100, 0) },
	})

	for _, path := range []string{"/credentials", "/turn/credentials"} {
		w := get(r, path+"?user_id=bob")
		require.Equal(t, http.StatusOK, w.Code, path)

		var body struct {
			IceServers []struct {
				URLs       []string `json:"urls"`
				Username   string   `json:"username"`
				Credential string   `json:"credential"`
			} `json:"iceServers"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.IceServers, 1)
		assert.Len(t, body.IceServers[0].URLs, 2)
		assert.Equal(t, "160:bob", body.IceServers[0].Username)
		assert.NotEmpty(t, body.IceServers[0].Credential)
	}
}

func TestCredentials_BadRequest(t *testing.T) {
	r := newEngine(t, turncred.Config{SecretB64: base64.StdEncoding.EncodeToString([]byte("k"))})

	assert.Equal(t, http.StatusBadRequest, get(r, "/credentials").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/credentials?user_id=a:b").Code)
}

func TestCredentials_SecretNotConfigured(t *testing.T) {
	r := newEngine(t, turncred.Config{})

	w := get(r, "/credentials?user_id=bob")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"TURN secret not configured"}`, w.Body.String())
}
