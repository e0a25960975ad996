package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raaslabs/raas-platform/internal/conversation"
	"github.com/raaslabs/raas-platform/pkg/logging"
)

type stubService struct{}

func (stubService) ProcessTurn(_ context.Context, req conversation.TurnRequest) (*conversation.TurnResponse, error) {
	return &conversation.TurnResponse{SessionID: req.SessionID, ReplyToUser: "ok"}, nil
}

func newTestRouter() http.Handler {
	logger := logging.New("error")
	return New(&Config{
		Logger:      logger,
		ChatHandler: conversation.NewHandler(stubService{}, logger),
		AppName:     "raas-platform",
		AppVersion:  "test",
	})
}

func TestHealthEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestVersionEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"raas-platform"`)
}

func TestChatEndpoint(t *testing.T) {
	body := `{"session_id":"s1","channel":"web","user_id":"u1","message_text":"Hi"}`
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reply_to_user":"ok"`)
}

func TestChatEndpointMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
