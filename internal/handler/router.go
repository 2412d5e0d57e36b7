package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	interviewHandler "github.com/zhouzirui/voice-interviewer/backend/internal/handler/interview"
	speechHandler "github.com/zhouzirui/voice-interviewer/backend/internal/handler/speech"
	"github.com/zhouzirui/voice-interviewer/backend/internal/metrics"
	middlewarePkg "github.com/zhouzirui/voice-interviewer/backend/internal/middleware"
	"github.com/zhouzirui/voice-interviewer/backend/pkg/utils"
)

// Dependencies 路由所需的服务
type Dependencies struct {
	Interview      interviewHandler.Service
	Speech         speechHandler.SpeechService
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))
	r.Use(metrics.Middleware)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "AI Voice Interview Tool API"})
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	interviewHandler.New(deps.Interview, logger).RegisterRoutes(r)
	speechHandler.New(deps.Speech, logger).RegisterRoutes(r)
	interviewHandler.NewWebSocketHandler(deps.Interview, deps.Speech, deps.AllowedOrigins, logger).RegisterRoutes(r)

	return r
}
