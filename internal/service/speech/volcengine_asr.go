package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/voice-interviewer/backend/internal/model/speech"
)

const (
	volcASRNoStreamURL = "wss://openspeech.bytedance.com/api/v3/sauc/bigmodel_nostream"

	volcASRDurationResource   = "volc.bigasr.sauc.duration"
	volcASRConcurrentResource = "volc.bigasr.sauc.concurrent"

	// 16kHz, 16bit, mono, 200ms
	volcASRChunkSize  = 6400
	volcASRChunkPause = 200 * time.Millisecond
)

// VolcengineASRClient 火山引擎大模型流式识别客户端，整段录音分包上送后取最终文本。
type VolcengineASRClient struct {
	config *speech.VolcengineConfig
	dialer *websocket.Dialer
	logger *zap.Logger
	pause  time.Duration
}

type volcUtterance struct {
	Text      string `json:"text"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	Definite  bool   `json:"definite"`
}

type volcASRServerMessage struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Result   struct {
		Text       string          `json:"text"`
		Utterances []volcUtterance `json:"utterances,omitempty"`
	} `json:"result,omitempty"`
}

type volcASRRequest struct {
	User struct {
		UID string `json:"uid,omitempty"`
	} `json:"user,omitempty"`
	Audio struct {
		Language string `json:"language,omitempty"`
		Format   string `json:"format"`
		Codec    string `json:"codec,omitempty"`
		Rate     int    `json:"rate,omitempty"`
		Bits     int    `json:"bits,omitempty"`
		Channel  int    `json:"channel,omitempty"`
	} `json:"audio"`
	Request struct {
		ModelName      string `json:"model_name"`
		EnableITN      bool   `json:"enable_itn,omitempty"`
		EnablePunc     bool   `json:"enable_punc,omitempty"`
		ShowUtterances bool   `json:"show_utterances,omitempty"`
		ResultType     string `json:"result_type,omitempty"`
		EndWindowSize  int    `json:"end_window_size,omitempty"`
	} `json:"request"`
}

// NewVolcengineASRClient 创建火山引擎ASR客户端
func NewVolcengineASRClient(config *speech.VolcengineConfig, logger *zap.Logger) *VolcengineASRClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VolcengineASRClient{
		config: config,
		dialer: &websocket.Dialer{HandshakeTimeout: 30 * time.Second},
		logger: logger.Named("volc_asr"),
		pause:  volcASRChunkPause,
	}
}

// Recognize 读取录音文件，经 WebSocket 二进制协议上送并等待最终识别结果。
func (c *VolcengineASRClient) Recognize(ctx context.Context, req *speech.ASRRequest) (string, error) {
	appID, token, err := resolveCredentials(c.config)
	if err != nil {
		return "", err
	}

	audio, err := os.ReadFile(req.AudioPath)
	if err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("no audio data to send")
	}

	resourceID := volcASRDurationResource
	if c.config.ConcurrentMode {
		resourceID = volcASRConcurrentResource
	}
	connectID := uuid.NewString()

	header := http.Header{}
	header.Set("X-Api-App-Key", appID)
	header.Set("X-Api-Access-Key", token)
	header.Set("X-Api-Resource-Id", resourceID)
	header.Set("X-Api-Connect-Id", connectID)

	endpoint := firstNonEmpty(c.config.ASREndpoint, volcASRNoStreamURL)
	conn, resp, err := c.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return "", fmt.Errorf("failed to connect to ASR WebSocket: %w", err)
	}
	defer conn.Close()

	if resp != nil {
		if logid := resp.Header.Get("X-Tt-Logid"); logid != "" {
			c.logger.Debug("connected", zap.String("logid", logid), zap.String("connect_id", connectID))
		}
	}

	if err := c.sendFullRequest(conn, c.buildRequest(connectID, req.Format)); err != nil {
		return "", err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 收发并行：服务端提前报错时可以立刻停止上送
	type recvResult struct {
		text string
		err  error
	}
	recvCh := make(chan recvResult, 1)
	go func() {
		text, err := c.receiveFinal(conn)
		recvCh <- recvResult{text: text, err: err}
	}()

	sendCh := make(chan error, 1)
	go func() {
		sendCh <- c.sendAudio(ctx, conn, audio)
	}()

	for {
		select {
		case err := <-sendCh:
			if err != nil {
				return "", fmt.Errorf("failed to send audio data: %w", err)
			}
			sendCh = nil
		case res := <-recvCh:
			return res.text, res.err
		case <-ctx.Done():
			// 关闭连接让读协程退出
			conn.Close()
			return "", ctx.Err()
		}
	}
}

func (c *VolcengineASRClient) buildRequest(uid, format string) *volcASRRequest {
	r := &volcASRRequest{}
	r.User.UID = uid

	r.Audio.Format = firstNonEmpty(format, "wav")
	r.Audio.Language = firstNonEmpty(c.config.ASRLanguage, "en-US")
	r.Audio.Codec = "raw"
	if r.Audio.Format == "ogg" || r.Audio.Format == "webm" {
		r.Audio.Codec = "opus"
	}
	r.Audio.Rate = 16000
	r.Audio.Bits = 16
	r.Audio.Channel = 1

	r.Request.ModelName = "bigmodel"
	r.Request.EnableITN = true
	r.Request.EnablePunc = true
	r.Request.ShowUtterances = true
	r.Request.ResultType = "full"
	r.Request.EndWindowSize = 800
	return r
}

func (c *VolcengineASRClient) sendFullRequest(conn *websocket.Conn, r *volcASRRequest) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal ASR request: %w", err)
	}

	compressed, err := CompressPayload(payload, GzipCompression)
	if err != nil {
		return fmt.Errorf("failed to compress payload: %w", err)
	}

	frame, err := EncodeMessage(CreateFullClientRequest(compressed, GzipCompression))
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("failed to send ASR request: %w", err)
	}
	return nil
}

// sendAudio 分包发送音频，包间停顿模拟实时音频流
func (c *VolcengineASRClient) sendAudio(ctx context.Context, conn *websocket.Conn, audio []byte) error {
	// 首包 FullClientRequest 占用序号1
	sequence := int32(2)

	for offset := 0; offset < len(audio); offset += volcASRChunkSize {
		end := offset + volcASRChunkSize
		if end > len(audio) {
			end = len(audio)
		}
		isLast := end >= len(audio)

		compressed, err := CompressPayload(audio[offset:end], GzipCompression)
		if err != nil {
			return fmt.Errorf("failed to compress audio chunk: %w", err)
		}

		frame, err := EncodeMessage(CreateAudioOnlyRequest(compressed, sequence, isLast, GzipCompression))
		if err != nil {
			return fmt.Errorf("failed to encode audio message: %w", err)
		}

		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			return fmt.Errorf("failed to send audio chunk: %w", err)
		}
		sequence++

		if isLast {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pause):
		}
	}
	return nil
}

// receiveFinal 读取服务端响应，直到收到最后一包。
func (c *VolcengineASRClient) receiveFinal(conn *websocket.Conn) (string, error) {
	var finalText string

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return "", fmt.Errorf("failed to read ASR response: %w", err)
		}

		msg, err := DecodeMessage(bytes.NewReader(data))
		if err != nil {
			return "", fmt.Errorf("failed to decode ASR message: %w", err)
		}

		switch msg.Header.MessageType {
		case ErrorMessage:
			payload, err := DecompressPayload(msg.Payload, msg.Header.CompressionMethod)
			if err != nil {
				return "", fmt.Errorf("ASR error message decode failed: %w", err)
			}
			return "", fmt.Errorf("ASR error %d: %s", msg.ErrorCode, string(payload))

		case FullServerResponse:
			payload, err := DecompressPayload(msg.Payload, msg.Header.CompressionMethod)
			if err != nil {
				return "", fmt.Errorf("failed to decompress ASR payload: %w", err)
			}

			var serverResp volcASRServerMessage
			if err := json.Unmarshal(payload, &serverResp); err != nil {
				c.logger.Warn("failed to unmarshal response", zap.Error(err))
				continue
			}

			if serverResp.Code != 0 && serverResp.Code != 20000000 {
				return "", fmt.Errorf("ASR API error %d: %s", serverResp.Code, serverResp.Message)
			}

			text := serverResp.Result.Text
			if text == "" {
				text = joinUtterances(serverResp.Result.Utterances)
			}
			if text != "" {
				finalText = text
			}

			if msg.IsLastPacket() || serverResp.Sequence < 0 {
				return finalText, nil
			}
		}
	}
}

func joinUtterances(utterances []volcUtterance) string {
	parts := make([]string, 0, len(utterances))
	for _, u := range utterances {
		if t := strings.TrimSpace(u.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
