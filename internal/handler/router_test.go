package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/zhouzirui/voice-interviewer/backend/internal/model/interview"
	interviewsvc "github.com/zhouzirui/voice-interviewer/backend/internal/service/interview"
	"github.com/zhouzirui/voice-interviewer/backend/internal/service/session"
)

type stubSpeech struct{}

func (stubSpeech) Transcribe(context.Context, []byte, string) (string, error) { return "hi", nil }
func (stubSpeech) Synthesize(context.Context, string) ([]byte, error) { return []byte("mp3"), nil }

type stubGenerator struct{}

func (stubGenerator) Reply(context.Context, string, []model.Turn) (string, error) {
	return "Welcome.", nil
}

func newTestRouter() http.Handler {
	svc := interviewsvc.NewService(session.NewMemoryStore(), stubGenerator{}, stubSpeech{}, nil, nil)
	return NewRouter(Dependencies{
		Interview:      svc,
		Speech:         stubSpeech{},
		AllowedOrigins: []string{"http://localhost:3000"},
	})
}

func TestOperationalRoutes(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		path     string
		contains string
	}{
		{"/", "AI Voice Interview Tool API"},
		{"/healthz", `"status":"ok"`},
		{"/metrics", "interviewer_http_requests_total"},
	}

	// one request first so the http counters have a sample to expose
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.contains)
		})
	}
}

func TestRouterWiresInterviewAndSpeechRoutes(t *testing.T) {
	r := newTestRouter()

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/create_session", strings.NewReader(`{"category":"technical"}`)))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/tts", strings.NewReader(`{"text":"hello"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"audio_base64":"bXAz"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/session/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Content-Type"))
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodOptions, "/interview", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
}
