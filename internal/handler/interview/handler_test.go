package interview

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/zhouzirui/voice-interviewer/backend/internal/model/interview"
	interviewsvc "github.com/zhouzirui/voice-interviewer/backend/internal/service/interview"
	"github.com/zhouzirui/voice-interviewer/backend/internal/service/session"
)

type fakeGenerator struct{ reply string }

func (f fakeGenerator) Reply(context.Context, string, []model.Turn) (string, error) {
	return f.reply, nil
}

type failingGenerator struct{}

func (failingGenerator) Reply(context.Context, string, []model.Turn) (string, error) {
	return "", errors.New("model overloaded")
}

type fakeSynthesizer struct{}

func (fakeSynthesizer) Synthesize(context.Context, string) ([]byte, error) {
	return []byte("ID3"), nil
}

func newService(gen interviewsvc.Generator) *interviewsvc.Service {
	return interviewsvc.NewService(session.NewMemoryStore(), gen, fakeSynthesizer{}, nil, nil)
}

func newRouter(svc Service) http.Handler {
	r := chi.NewRouter()
	New(svc, nil).RegisterRoutes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func createSession(t *testing.T, h http.Handler, body string) string {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/create_session", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp createSessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "Session created successfully", resp.Message)
	return resp.SessionID
}

func TestCreateSessionCategories(t *testing.T) {
	svc := newService(fakeGenerator{reply: "Welcome"})
	h := newRouter(svc)

	tests := []struct {
		body string
		want model.Category
	}{
		{`{"category":"technical"}`, model.Technical},
		{`{"interview_type":"hr"}`, model.HR},
		{`{"category":"unknown"}`, model.General},
		{"", model.General},
	}
	for _, tt := range tests {
		id := createSession(t, h, tt.body)
		sess, err := svc.GetSession(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, tt.want, sess.Category, tt.body)
	}
}

func TestCreateSessionRejectsMalformedJSON(t *testing.T) {
	rr := do(t, newRouter(newService(fakeGenerator{})), http.MethodPost, "/create_session", `{"category":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestInterviewFlow(t *testing.T) {
	h := newRouter(newService(fakeGenerator{reply: "What is a goroutine?"}))
	id := createSession(t, h, `{"category":"technical"}`)

	rr := do(t, h, http.MethodPost, "/interview", `{"session_id":"`+id+`","transcript":"I write Go.","category":"hr"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var ex interviewsvc.Exchange
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ex))
	assert.Equal(t, id, ex.SessionID)
	assert.Equal(t, "What is a goroutine?", ex.InterviewerResponse)
	assert.Equal(t, "SUQz", ex.AudioBase64)
	require.Len(t, ex.ConversationHistory, 2)

	rr = do(t, h, http.MethodGet, "/session/"+id, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var sess model.Session
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sess))
	assert.Equal(t, model.Technical, sess.Category)
	assert.Len(t, sess.Turns, 2)

	rr = do(t, h, http.MethodGet, "/session/"+id+"/export", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var report model.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, 2, report.SessionInfo.Duration)
	assert.Equal(t, 1, report.Evaluation.TotalResponses)
	assert.Equal(t, 2, report.Evaluation.EngagementScore)
}

func TestInterviewErrors(t *testing.T) {
	h := newRouter(newService(failingGenerator{}))
	id := createSession(t, h, "")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		kind   string
	}{
		{"missing session id", http.MethodPost, "/interview", `{"transcript":"hi"}`, http.StatusBadRequest, "validation_failure"},
		{"unknown session", http.MethodPost, "/interview", `{"session_id":"nope","transcript":"hi"}`, http.StatusNotFound, "not_found"},
		{"generation failure", http.MethodPost, "/interview", `{"session_id":"` + id + `","transcript":"hi"}`, http.StatusBadGateway, "generation_failure"},
		{"get unknown", http.MethodGet, "/session/nope", "", http.StatusNotFound, "not_found"},
		{"export unknown", http.MethodGet, "/session/nope/export", "", http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rr.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.kind, body["kind"])
			assert.NotEmpty(t, body["error"])
		})
	}

	rr := do(t, h, http.MethodGet, "/session/"+id, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var sess model.Session
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sess))
	assert.Empty(t, sess.Turns, "failed exchange must not leave turns behind")
}

func TestInterviewEmptyTranscriptOpensConversation(t *testing.T) {
	h := newRouter(newService(fakeGenerator{reply: "Welcome! What's your name?"}))
	id := createSession(t, h, "")

	rr := do(t, h, http.MethodPost, "/interview", `{"session_id":"`+id+`","transcript":""}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var ex interviewsvc.Exchange
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ex))
	require.Len(t, ex.ConversationHistory, 1)
	assert.Equal(t, model.RoleInterviewer, ex.ConversationHistory[0].Role)
}
