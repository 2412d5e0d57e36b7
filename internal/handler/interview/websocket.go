package interview

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/voice-interviewer/backend/internal/apperror"
	"github.com/zhouzirui/voice-interviewer/backend/pkg/utils"
)

const (
	wsReadTimeout    = 60 * time.Second
	wsWriteTimeout   = 10 * time.Second
	wsPingInterval   = 54 * time.Second
	maxBufferedAudio = 32 << 20
)

// Transcriber 将一段完整录音转换为文本
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// WebSocketHandler 实时语音面试处理器：缓冲音频分片，收到 isFinal 后走转写与面试编排。
type WebSocketHandler struct {
	svc         Service
	transcriber Transcriber
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器；allowedOrigins 为空或包含 "*" 时不校验来源。
func NewWebSocketHandler(svc Service, transcriber Transcriber, allowedOrigins []string, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		svc:         svc,
		transcriber: transcriber,
		logger:      logger.Named("websocket"),
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/interview/{session_id}", h.handleWebSocket)
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 || slices.Contains(allowed, "*") {
			return true
		}
		return slices.Contains(allowed, origin)
	}
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// AudioMessage 音频分片；audioData 为 base64 编码。
type AudioMessage struct {
	AudioData []byte `json:"audioData"`
	Format    string `json:"format"`
	IsFinal   bool   `json:"isFinal"`
}

// TextMessage 直接提交的候选人文本
type TextMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// wsConn serializes writes; gorilla allows only one concurrent writer.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

type connectionState struct {
	sessionID   string
	audioFormat string
	buffer      bytes.Buffer
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if _, err := h.svc.GetSession(r.Context(), sessionID); err != nil {
		utils.RespondAppError(w, err)
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer raw.Close()

	conn := &wsConn{conn: raw}
	state := &connectionState{sessionID: sessionID}
	logger := h.logger.With(zap.String("session_id", sessionID))
	logger.Info("connection opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = raw.SetReadDeadline(time.Now().Add(wsReadTimeout))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	go h.pingLoop(ctx, conn)

	h.send(conn, sessionID, "connected", map[string]any{"sessionId": sessionID})

	for {
		var msg inboundMessage
		if err := raw.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("read failed", zap.Error(err))
			}
			logger.Info("connection closed")
			return
		}
		_ = raw.SetReadDeadline(time.Now().Add(wsReadTimeout))

		h.handleMessage(ctx, conn, state, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *wsConn, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "audio":
		h.handleAudioMessage(ctx, conn, state, msg.Data)
	case "text":
		h.handleTextMessage(ctx, conn, state, msg.Data)
	default:
		h.sendError(conn, state.sessionID, apperror.New(apperror.KindValidation, "websocket", "unsupported message type: "+msg.Type))
	}
}

func (h *WebSocketHandler) handleAudioMessage(ctx context.Context, conn *wsConn, state *connectionState, raw json.RawMessage) {
	var audio AudioMessage
	if err := json.Unmarshal(raw, &audio); err != nil {
		h.sendError(conn, state.sessionID, apperror.Wrap(apperror.KindValidation, "websocket", "invalid audio payload", err))
		return
	}

	if state.buffer.Len()+len(audio.AudioData) > maxBufferedAudio {
		state.buffer.Reset()
		h.sendError(conn, state.sessionID, apperror.New(apperror.KindValidation, "websocket", "audio recording is too large"))
		return
	}
	state.buffer.Write(audio.AudioData)
	if audio.Format != "" {
		state.audioFormat = strings.ToLower(strings.TrimPrefix(audio.Format, "."))
	}

	if audio.IsFinal {
		h.processBufferedAudio(ctx, conn, state)
	}
}

func (h *WebSocketHandler) processBufferedAudio(ctx context.Context, conn *wsConn, state *connectionState) {
	audioBytes := bytes.Clone(state.buffer.Bytes())
	state.buffer.Reset()

	format := state.audioFormat
	if format == "" {
		format = "webm"
	}

	transcript, err := h.transcriber.Transcribe(ctx, audioBytes, "recording."+format)
	if err != nil {
		h.sendError(conn, state.sessionID, err)
		return
	}

	h.send(conn, state.sessionID, "transcript", map[string]any{"transcript": transcript})
	h.advance(ctx, conn, state, transcript)
}

func (h *WebSocketHandler) handleTextMessage(ctx context.Context, conn *wsConn, state *connectionState, raw json.RawMessage) {
	var text TextMessage
	if err := json.Unmarshal(raw, &text); err != nil {
		h.sendError(conn, state.sessionID, apperror.Wrap(apperror.KindValidation, "websocket", "invalid text payload", err))
		return
	}
	h.advance(ctx, conn, state, text.Text)
}

func (h *WebSocketHandler) advance(ctx context.Context, conn *wsConn, state *connectionState, text string) {
	exchange, err := h.svc.Advance(ctx, state.sessionID, text)
	if err != nil {
		h.sendError(conn, state.sessionID, err)
		return
	}
	h.send(conn, state.sessionID, "exchange", exchange)
}

func (h *WebSocketHandler) send(conn *wsConn, sessionID, msgType string, data any) {
	msg := outgoingMessage{
		Type:      msgType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := conn.writeJSON(msg); err != nil {
		h.logger.Warn("write failed", zap.String("type", msgType), zap.Error(err))
	}
}

func (h *WebSocketHandler) sendError(conn *wsConn, sessionID string, err error) {
	h.send(conn, sessionID, "error", utils.ErrorBody{
		Error:  apperror.MessageOf(err),
		Kind:   string(apperror.KindOf(err)),
		Detail: apperror.CauseOf(err),
	})
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *wsConn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}
