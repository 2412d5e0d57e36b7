package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/voice-interviewer/backend/internal/model/speech"
)

const (
	volcTTSStreamURL = "wss://openspeech.bytedance.com/api/v3/tts/unidirectional/stream"

	volcTTSDefaultResource = "volc.service_type.10029"
	volcTTSMegaResource    = "volc.megatts.default"
	volcTTSSeedResource    = "seed-tts-2.0"

	// 面试官默认使用英文女声
	volcTTSDefaultSpeaker = "en_female_amy_jupiter_bigtts"
)

// VolcengineTTSClient 火山引擎单向流式TTS客户端
type VolcengineTTSClient struct {
	config *speech.VolcengineConfig
	dialer *websocket.Dialer
	logger *zap.Logger
}

type volcTTSServerMessage struct {
	ReqID    string `json:"reqid"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Data     string `json:"data"`
}

type volcTTSRequest struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	ReqParams struct {
		Speaker     string             `json:"speaker"`
		Text        string             `json:"text"`
		AudioParams volcTTSAudioParams `json:"audio_params"`
		Language    string             `json:"language,omitempty"`
	} `json:"req_params"`
}

type volcTTSAudioParams struct {
	Format      string  `json:"format"`
	SampleRate  int     `json:"sample_rate"`
	SpeedRatio  float32 `json:"speed_ratio,omitempty"`
	VolumeRatio float32 `json:"volume_ratio,omitempty"`
}

// NewVolcengineTTSClient 创建火山引擎TTS客户端
func NewVolcengineTTSClient(config *speech.VolcengineConfig, logger *zap.Logger) *VolcengineTTSClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VolcengineTTSClient{
		config: config,
		dialer: &websocket.Dialer{HandshakeTimeout: 30 * time.Second},
		logger: logger.Named("volc_tts"),
	}
}

// Synthesize 依次尝试候选音色与资源ID，资源不匹配时自动回退。
func (c *VolcengineTTSClient) Synthesize(ctx context.Context, req *speech.TTSRequest) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("TTS text is empty")
	}

	appKey, accessKey, err := resolveCredentials(c.config)
	if err != nil {
		return nil, err
	}

	// 火山引擎不输出 wav 流，统一用 mp3
	encoding := strings.TrimSpace(req.Format)
	if encoding == "" || encoding == "wav" {
		encoding = "mp3"
	}

	speakers := resolveTTSSpeakerCandidates(req.Voice, firstNonEmpty(c.config.TTSVoice, volcTTSDefaultSpeaker))
	var lastMismatch error

	for _, speaker := range speakers {
		for idx, resourceID := range resolveTTSResourceCandidates(speaker) {
			audio, attemptErr := c.synthesizeWithResource(ctx, req.Text, appKey, accessKey, speaker, encoding, resourceID)
			if attemptErr == nil {
				if idx > 0 || speaker != speakers[0] {
					c.logger.Info("fallback succeeded", zap.String("speaker", speaker), zap.String("resource", resourceID))
				}
				return audio, nil
			}

			if !isResourceMismatchError(attemptErr) {
				return nil, attemptErr
			}
			c.logger.Warn("resource mismatch",
				zap.String("speaker", speaker),
				zap.String("resource", resourceID),
				zap.Error(attemptErr),
			)
			lastMismatch = attemptErr
		}
	}

	if lastMismatch != nil {
		return nil, lastMismatch
	}
	return nil, fmt.Errorf("TTS synthesis failed: no compatible resource for speakers %v", speakers)
}

func (c *VolcengineTTSClient) synthesizeWithResource(ctx context.Context, text, appKey, accessKey, speaker, encoding, resourceID string) ([]byte, error) {
	connectID := uuid.NewString()

	header := http.Header{}
	header.Set("X-Api-App-Key", appKey)
	header.Set("X-Api-Access-Key", accessKey)
	header.Set("X-Api-Resource-Id", resourceID)
	header.Set("X-Api-Connect-Id", connectID)

	endpoint := firstNonEmpty(c.config.TTSEndpoint, volcTTSStreamURL)
	conn, resp, err := c.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to TTS WebSocket: %w", err)
	}
	defer conn.Close()

	if resp != nil {
		if logid := resp.Header.Get("X-Tt-Logid"); logid != "" {
			c.logger.Debug("connected", zap.String("logid", logid), zap.String("connect_id", connectID))
		}
	}

	// ctx 取消时关闭连接，解除阻塞的读
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	payload, err := json.Marshal(c.buildRequest(connectID, text, speaker, encoding))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TTS request: %w", err)
	}

	frame, err := EncodeMessage(CreateFullClientRequest(payload, NoCompression))
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return nil, fmt.Errorf("failed to send TTS request: %w", err)
	}

	var audio bytes.Buffer
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("failed to read TTS response: %w", err)
		}

		msg, err := DecodeMessage(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode TTS message: %w", err)
		}

		switch msg.Header.MessageType {
		case ErrorMessage:
			body, err := DecompressPayload(msg.Payload, msg.Header.CompressionMethod)
			if err != nil {
				return nil, fmt.Errorf("TTS error message decode failed: %w", err)
			}
			return nil, fmt.Errorf("TTS error: %s", string(body))

		case AudioOnlyServerResponse:
			chunk, err := DecompressPayload(msg.Payload, msg.Header.CompressionMethod)
			if err != nil {
				return nil, fmt.Errorf("failed to decompress audio chunk: %w", err)
			}
			audio.Write(chunk)

		case FullServerResponse:
			body, err := DecompressPayload(msg.Payload, msg.Header.CompressionMethod)
			if err != nil {
				return nil, fmt.Errorf("failed to decompress TTS response payload: %w", err)
			}

			var serverResp volcTTSServerMessage
			if len(body) > 0 {
				if err := json.Unmarshal(body, &serverResp); err != nil {
					c.logger.Warn("failed to unmarshal response payload", zap.Error(err))
				} else {
					if serverResp.Code != 0 && serverResp.Code != 3000 {
						return nil, fmt.Errorf("TTS API error %d: %s", serverResp.Code, serverResp.Message)
					}
					if serverResp.Data != "" {
						chunk, err := base64.StdEncoding.DecodeString(serverResp.Data)
						if err != nil {
							return nil, fmt.Errorf("failed to decode base64 audio chunk: %w", err)
						}
						audio.Write(chunk)
					}
				}
			}

			finishedByEvent := msg.Header.MessageFlags == WithEvent && msg.EventType == EventTypeSessionFinished
			if finishedByEvent || msg.IsLastPacket() || serverResp.Sequence < 0 {
				if audio.Len() == 0 {
					return nil, fmt.Errorf("TTS audio is empty")
				}
				return audio.Bytes(), nil
			}

		default:
			c.logger.Debug("unexpected message type", zap.Uint8("type", uint8(msg.Header.MessageType)))
		}
	}
}

func (c *VolcengineTTSClient) buildRequest(uid, text, speaker, encoding string) *volcTTSRequest {
	r := &volcTTSRequest{}
	r.User.UID = uid
	r.ReqParams.Speaker = speaker
	r.ReqParams.Text = text
	r.ReqParams.AudioParams.Format = encoding
	r.ReqParams.AudioParams.SampleRate = 24000

	if speed := c.config.TTSSpeed; speed > 0 && speed != 1.0 {
		r.ReqParams.AudioParams.SpeedRatio = speed
	}
	if volume := c.config.TTSVolume; volume > 0 && volume != 1.0 {
		r.ReqParams.AudioParams.VolumeRatio = volume
	}
	r.ReqParams.Language = strings.TrimSpace(c.config.TTSLanguage)
	return r
}

func resolveTTSResourceCandidates(voice string) []string {
	voice = strings.TrimSpace(voice)
	if voice == "" {
		return []string{volcTTSDefaultResource, volcTTSSeedResource}
	}

	// 声音复刻音色
	if strings.HasPrefix(voice, "S_") {
		return []string{volcTTSMegaResource}
	}

	normalized := strings.ToLower(voice)
	for _, hint := range []string{"bigtts", "seed", "megatts", "uranus", "venus", "jupiter", "saturn", "mars"} {
		if strings.Contains(normalized, hint) {
			return []string{volcTTSSeedResource, volcTTSDefaultResource}
		}
	}

	return []string{volcTTSDefaultResource, volcTTSSeedResource}
}

// OpenAI 音色名映射到相近的火山引擎音色，便于两种提供方共用 SPEECH_VOICE。
var speakerAliases = map[string]string{
	"alloy":   "en_female_amy_jupiter_bigtts",
	"nova":    "en_female_amy_jupiter_bigtts",
	"shimmer": "en_female_amy_jupiter_bigtts",
	"echo":    "en_male_glen_emo_v2_mars_bigtts",
	"onyx":    "en_male_glen_emo_v2_mars_bigtts",
	"fable":   "en_male_corey_emo_v2_mars_bigtts",
}

func resolveTTSSpeakerCandidates(requested, fallback string) []string {
	var candidates []string

	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if mapped, ok := speakerAliases[strings.ToLower(s)]; ok {
			s = mapped
		}
		for _, existing := range candidates {
			if strings.EqualFold(existing, s) {
				return
			}
		}
		candidates = append(candidates, s)
	}

	add(requested)
	add(fallback)

	if len(candidates) == 0 {
		return []string{volcTTSDefaultSpeaker}
	}
	return candidates
}

func isResourceMismatchError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "resource ID is mismatched with speaker related resource")
}
