package speech

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	speechmodel "github.com/zhouzirui/voice-interviewer/backend/internal/model/speech"
)

type fakeRecognizeClient struct {
	resp   *speechpb.RecognizeResponse
	err    error
	req    *speechpb.RecognizeRequest
	closed bool
}

func (f *fakeRecognizeClient) Recognize(_ context.Context, req *speechpb.RecognizeRequest, _ ...gax.CallOption) (*speechpb.RecognizeResponse, error) {
	f.req = req
	return f.resp, f.err
}

func (f *fakeRecognizeClient) Close() error {
	f.closed = true
	return nil
}

func alternative(text string) *speechpb.SpeechRecognitionResult {
	return &speechpb.SpeechRecognitionResult{
		Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: text}},
	}
}

func TestGoogleRecognizeJoinsResults(t *testing.T) {
	fake := &fakeRecognizeClient{resp: &speechpb.RecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{
			alternative("I enjoy distributed systems."),
			{},
			alternative(" Mostly Go and Kafka. "),
		},
	}}
	rec := newGoogleRecognizer(fake, "")

	text, err := rec.Recognize(context.Background(), &speechmodel.ASRRequest{
		AudioPath: writeAudioFile(t, []byte("opus"), ".webm"),
		Format:    "webm",
	})
	require.NoError(t, err)
	assert.Equal(t, "I enjoy distributed systems. Mostly Go and Kafka.", text)

	cfg := fake.req.GetConfig()
	assert.Equal(t, speechpb.RecognitionConfig_WEBM_OPUS, cfg.GetEncoding())
	assert.Equal(t, int32(48000), cfg.GetSampleRateHertz())
	assert.Equal(t, "en-US", cfg.GetLanguageCode())
	assert.Equal(t, []byte("opus"), fake.req.GetAudio().GetContent())

	require.NoError(t, rec.Close())
	assert.True(t, fake.closed)
}

func TestGoogleRecognizeError(t *testing.T) {
	fake := &fakeRecognizeClient{err: errors.New("permission denied")}
	rec := newGoogleRecognizer(fake, "en-GB")

	_, err := rec.Recognize(context.Background(), &speechmodel.ASRRequest{
		AudioPath: writeAudioFile(t, []byte("wav"), ".wav"),
		Format:    "wav",
	})
	assert.ErrorIs(t, err, fake.err)
}

func TestRecognitionConfigEncodings(t *testing.T) {
	cases := map[string]speechpb.RecognitionConfig_AudioEncoding{
		"wav":  speechpb.RecognitionConfig_ENCODING_UNSPECIFIED,
		"flac": speechpb.RecognitionConfig_FLAC,
		"ogg":  speechpb.RecognitionConfig_OGG_OPUS,
		"webm": speechpb.RecognitionConfig_WEBM_OPUS,
		"pcm":  speechpb.RecognitionConfig_LINEAR16,
		"mp3":  speechpb.RecognitionConfig_ENCODING_UNSPECIFIED,
	}
	for format, want := range cases {
		assert.Equal(t, want, recognitionConfig(format, "en-US").GetEncoding(), format)
	}
}
