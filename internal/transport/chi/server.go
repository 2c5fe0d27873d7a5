package chi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nosqlite/internal/domain"
	"github.com/kailas-cloud/nosqlite/internal/logger"
	"github.com/kailas-cloud/nosqlite/internal/metrics"
	"github.com/kailas-cloud/nosqlite/internal/transport/wire"
	healthuc "github.com/kailas-cloud/nosqlite/internal/usecase/health"
)

// DefaultMaxBodyBytes caps an execute request body.
const DefaultMaxBodyBytes = 32 << 20

// Server serves the execute operation plus health and metrics.
type Server struct {
	exec          Executor
	health        *healthuc.Service
	logger        *zap.Logger
	maxBody       int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. health can be nil.
func NewServer(exec Executor, health *healthuc.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		exec:    exec,
		health:  health,
		logger:  logger,
		maxBody: DefaultMaxBodyBytes,
	}
	s.errorHandlers = []errorHandler{
		storageErrorHandler,
		validationHandler,
		sentinelHandler(domain.ErrUnauthorized, http.StatusUnauthorized, wire.CodeUnauthorized),
		poolClosedHandler,
		timeoutHandler,
	}
	return s
}

// WithMaxBodyBytes overrides the request body limit.
func (s *Server) WithMaxBodyBytes(n int64) *Server {
	if n > 0 {
		s.maxBody = n
	}
	return s
}

// Routes registers the server endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Post(wire.ExecutePath, s.Execute)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Handler builds the full middleware stack around the server routes.
func (s *Server) Handler(apiKeys []string) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, wire.CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, wire.CodeBadRequest, "method not allowed")
	})
	s.Routes(r)
	return r
}

// Execute handles POST /v1/execute.
func (s *Server) Execute(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, s.maxBody+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, wire.CodeBadRequest, "read request body: "+err.Error())
		return
	}
	if int64(len(body)) > s.maxBody {
		writeError(w, http.StatusRequestEntityTooLarge, wire.CodeBadRequest,
			fmt.Sprintf("request body exceeds %d bytes", s.maxBody))
		return
	}

	req, err := wire.DecodeRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, wire.CodeBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := s.exec.Execute(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if resp.Rows == nil {
		resp.Rows = [][]any{}
	}

	data, err := wire.Marshal(resp)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", wire.ContentTypeMsgpack)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type healthResponse struct {
	Status healthuc.Status                 `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, healthResponse{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{}})
		return
	}
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{Status: report.Status, Checks: report.Checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", wire.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, wire.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context(), s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Debug("execute rejected", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, wire.CodeInternalError, "internal error")
}

// unwrapStorage returns the engine message of a storage error without the statement suffix.
func unwrapStorage(se *domain.StorageError) string {
	if se.Err == nil {
		return domain.ErrStorage.Error()
	}
	return se.Err.Error()
}
