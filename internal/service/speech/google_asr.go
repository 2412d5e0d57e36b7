package speech

import (
	"context"
	"fmt"
	"os"
	"strings"

	gspeech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"

	"github.com/zhouzirui/voice-interviewer/backend/internal/model/speech"
)

// recognizeClient is the part of the Cloud Speech client used here.
type recognizeClient interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
	Close() error
}

// GoogleRecognizer runs synchronous Cloud Speech-to-Text recognition.
// It relies on Application Default Credentials for authentication.
type GoogleRecognizer struct {
	client   recognizeClient
	language string
}

// NewGoogleRecognizer creates a Cloud Speech client.
func NewGoogleRecognizer(ctx context.Context, language string) (*GoogleRecognizer, error) {
	client, err := gspeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}
	return newGoogleRecognizer(client, language), nil
}

func newGoogleRecognizer(client recognizeClient, language string) *GoogleRecognizer {
	return &GoogleRecognizer{client: client, language: firstNonEmpty(language, "en-US")}
}

// Close cleans up the speech client connection.
func (g *GoogleRecognizer) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Recognize sends the whole clip inline and joins the top alternative of every result.
func (g *GoogleRecognizer) Recognize(ctx context.Context, req *speech.ASRRequest) (string, error) {
	audio, err := os.ReadFile(req.AudioPath)
	if err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: recognitionConfig(req.Format, g.language),
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", fmt.Errorf("google recognize: %w", err)
	}

	parts := make([]string, 0, len(resp.GetResults()))
	for _, result := range resp.GetResults() {
		alternatives := result.GetAlternatives()
		if len(alternatives) == 0 {
			continue
		}
		if t := strings.TrimSpace(alternatives[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), nil
}

// recognitionConfig picks the encoding from the upload's container. WAV and FLAC carry
// their own header, so the encoding and rate stay unspecified for them.
func recognitionConfig(format, language string) *speechpb.RecognitionConfig {
	cfg := &speechpb.RecognitionConfig{
		LanguageCode:               language,
		EnableAutomaticPunctuation: true,
	}

	switch strings.ToLower(format) {
	case "webm":
		cfg.Encoding = speechpb.RecognitionConfig_WEBM_OPUS
		cfg.SampleRateHertz = 48000
	case "ogg", "opus":
		cfg.Encoding = speechpb.RecognitionConfig_OGG_OPUS
		cfg.SampleRateHertz = 48000
	case "flac":
		cfg.Encoding = speechpb.RecognitionConfig_FLAC
	case "pcm", "raw":
		cfg.Encoding = speechpb.RecognitionConfig_LINEAR16
		cfg.SampleRateHertz = 16000
	default:
		cfg.Encoding = speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
	return cfg
}
