package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/voice-interviewer/backend/internal/apperror"
)

type fakeSpeechService struct {
	transcript string
	audio      []byte
	err        error

	gotAudio    []byte
	gotFilename string
	gotText     string
}

func (f *fakeSpeechService) Transcribe(_ context.Context, audio []byte, filename string) (string, error) {
	f.gotAudio = audio
	f.gotFilename = filename
	return f.transcript, f.err
}

func (f *fakeSpeechService) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.gotText = text
	return f.audio, f.err
}

func newRouter(svc SpeechService) http.Handler {
	r := chi.NewRouter()
	New(svc, nil).RegisterRoutes(r)
	return r
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestTranscribeAcceptsFileAndAudioFields(t *testing.T) {
	for _, field := range []string{"file", "audio"} {
		t.Run(field, func(t *testing.T) {
			svc := &fakeSpeechService{transcript: "I enjoy debugging."}
			body, contentType := multipartBody(t, field, "answer.webm", []byte("webm"))

			req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
			req.Header.Set("Content-Type", contentType)
			rr := httptest.NewRecorder()
			newRouter(svc).ServeHTTP(rr, req)

			require.Equal(t, http.StatusOK, rr.Code)
			assert.JSONEq(t, `{"transcript":"I enjoy debugging."}`, rr.Body.String())
			assert.Equal(t, []byte("webm"), svc.gotAudio)
			assert.Equal(t, "answer.webm", svc.gotFilename)
		})
	}
}

func TestTranscribeErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		body, contentType := multipartBody(t, "other", "x.wav", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
		req.Header.Set("Content-Type", contentType)
		rr := httptest.NewRecorder()
		newRouter(&fakeSpeechService{}).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/transcribe", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		newRouter(&fakeSpeechService{}).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("provider failure", func(t *testing.T) {
		svc := &fakeSpeechService{err: apperror.Wrap(apperror.KindTranscription, "speech.Transcribe", "transcription failed", errors.New("timeout"))}
		body, contentType := multipartBody(t, "file", "a.wav", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
		req.Header.Set("Content-Type", contentType)
		rr := httptest.NewRecorder()
		newRouter(svc).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadGateway, rr.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "transcription_failure", resp["kind"])
		assert.Equal(t, "timeout", resp["detail"])
	})
}

func TestSynthesize(t *testing.T) {
	t.Run("json body", func(t *testing.T) {
		svc := &fakeSpeechService{audio: []byte("ID3")}
		req := httptest.NewRequest(http.MethodPost, "/tts", strings.NewReader(`{"text":"Welcome!"}`))
		rr := httptest.NewRecorder()
		newRouter(svc).ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"audio_base64":"SUQz"}`, rr.Body.String())
		assert.Equal(t, "Welcome!", svc.gotText)
	})

	t.Run("query parameter", func(t *testing.T) {
		svc := &fakeSpeechService{audio: []byte("ID3")}
		req := httptest.NewRequest(http.MethodPost, "/tts?text=Hello+there", nil)
		rr := httptest.NewRecorder()
		newRouter(svc).ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Hello there", svc.gotText)
	})

	t.Run("missing text", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/tts", strings.NewReader(`{"text":"  "}`))
		rr := httptest.NewRecorder()
		newRouter(&fakeSpeechService{}).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("synthesis failure", func(t *testing.T) {
		svc := &fakeSpeechService{err: apperror.New(apperror.KindSynthesis, "speech.Synthesize", "synthesis failed")}
		req := httptest.NewRequest(http.MethodPost, "/tts", strings.NewReader(`{"text":"hi"}`))
		rr := httptest.NewRecorder()
		newRouter(svc).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})
}
