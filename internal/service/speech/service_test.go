package speech

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/voice-interviewer/backend/internal/apperror"
	"github.com/zhouzirui/voice-interviewer/backend/internal/config"
	speechmodel "github.com/zhouzirui/voice-interviewer/backend/internal/model/speech"
)

type fakeRecognizer struct {
	text     string
	err      error
	req      *speechmodel.ASRRequest
	contents []byte
	deadline bool
}

func (f *fakeRecognizer) Recognize(ctx context.Context, req *speechmodel.ASRRequest) (string, error) {
	f.req = req
	f.contents, _ = os.ReadFile(req.AudioPath)
	_, f.deadline = ctx.Deadline()
	return f.text, f.err
}

type fakeSynthesizer struct {
	audio []byte
	err   error
	req   *speechmodel.TTSRequest
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, req *speechmodel.TTSRequest) ([]byte, error) {
	f.req = req
	return f.audio, f.err
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp audio files should be removed")
}

func TestTranscribeWritesTempFileAndTrims(t *testing.T) {
	dir := t.TempDir()
	rec := &fakeRecognizer{text: "  I led the payments migration.  "}
	svc := New(rec, nil, Options{TempDir: dir, Timeout: time.Minute})

	text, err := svc.Transcribe(context.Background(), []byte("webm-bytes"), "answer.WEBM")
	require.NoError(t, err)

	assert.Equal(t, "I led the payments migration.", text)
	assert.Equal(t, []byte("webm-bytes"), rec.contents)
	assert.Equal(t, "webm", rec.req.Format)
	assert.Equal(t, "answer.WEBM", rec.req.Filename)
	assert.True(t, rec.deadline)
	assertDirEmpty(t, dir)
}

func TestTranscribeFailures(t *testing.T) {
	t.Run("empty audio", func(t *testing.T) {
		svc := New(&fakeRecognizer{}, nil, Options{TempDir: t.TempDir()})
		_, err := svc.Transcribe(context.Background(), nil, "a.wav")
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	})

	t.Run("provider error", func(t *testing.T) {
		dir := t.TempDir()
		cause := errors.New("whisper unavailable")
		svc := New(&fakeRecognizer{err: cause}, nil, Options{TempDir: dir})

		_, err := svc.Transcribe(context.Background(), []byte("audio"), "a.wav")
		require.Error(t, err)
		assert.Equal(t, apperror.KindTranscription, apperror.KindOf(err))
		assert.ErrorIs(t, err, cause)
		assertDirEmpty(t, dir)
	})

	t.Run("not configured", func(t *testing.T) {
		svc := New(nil, nil, Options{})
		_, err := svc.Transcribe(context.Background(), []byte("audio"), "a.wav")
		assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
	})

	t.Run("missing temp dir", func(t *testing.T) {
		svc := New(&fakeRecognizer{}, nil, Options{TempDir: "/nonexistent/speech-temp"})
		_, err := svc.Transcribe(context.Background(), []byte("audio"), "a.wav")
		assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
	})
}

func TestSynthesize(t *testing.T) {
	t.Run("returns audio", func(t *testing.T) {
		syn := &fakeSynthesizer{audio: []byte("ID3")}
		svc := New(nil, syn, Options{})

		audio, err := svc.Synthesize(context.Background(), "Tell me about a hard bug.")
		require.NoError(t, err)
		assert.Equal(t, []byte("ID3"), audio)
		assert.Equal(t, "Tell me about a hard bug.", syn.req.Text)
	})

	t.Run("empty text", func(t *testing.T) {
		svc := New(nil, &fakeSynthesizer{}, Options{})
		_, err := svc.Synthesize(context.Background(), "  ")
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	})

	t.Run("provider error", func(t *testing.T) {
		svc := New(nil, &fakeSynthesizer{err: errors.New("tts down")}, Options{})
		_, err := svc.Synthesize(context.Background(), "hello")
		assert.Equal(t, apperror.KindSynthesis, apperror.KindOf(err))
	})

	t.Run("empty audio", func(t *testing.T) {
		svc := New(nil, &fakeSynthesizer{audio: []byte{}}, Options{})
		_, err := svc.Synthesize(context.Background(), "hello")
		assert.Equal(t, apperror.KindSynthesis, apperror.KindOf(err))
	})
}

func TestAudioExtension(t *testing.T) {
	cases := map[string]string{
		"answer.wav":       ".wav",
		"clip.MP3":         ".mp3",
		"recording.webm":   ".webm",
		"":                 ".wav",
		"noext":            ".wav",
		"weird.w@v":        ".wav",
		"long.extensionxx": ".wav",
	}
	for name, want := range cases {
		assert.Equal(t, want, audioExtension(name), name)
	}
}

func TestNewServiceSelectsProviders(t *testing.T) {
	svc, err := NewService(context.Background(), config.SpeechConfig{
		ASRProvider: config.ProviderVolcengine,
		TTSProvider: config.ProviderOpenAI,
		Timeout:     5,
	}, nil)
	require.NoError(t, err)
	defer svc.Close()

	assert.IsType(t, &VolcengineASRClient{}, svc.recognizer)
	assert.IsType(t, &OpenAIClient{}, svc.synthesizer)
	assert.Equal(t, 5*time.Second, svc.timeout)

	_, err = NewService(context.Background(), config.SpeechConfig{ASRProvider: "nope", TTSProvider: config.ProviderOpenAI}, nil)
	assert.Error(t, err)
}
