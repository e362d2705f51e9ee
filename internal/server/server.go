// Package server provides the HTTP API for agrod.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fyrsmithlabs/agrod/internal/agent"
	"github.com/fyrsmithlabs/agrod/internal/ledger"
	"github.com/fyrsmithlabs/agrod/internal/llm"
	"github.com/fyrsmithlabs/agrod/internal/mirror"
	"github.com/fyrsmithlabs/agrod/internal/topics"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const (
	defaultTopicMemo  = "AgroConsultas"
	recordsFetchLimit = 100
)

// QueryProcessor runs the full query pipeline. Satisfied by
// *agent.Agent.
type QueryProcessor interface {
	ProcessQuery(ctx context.Context, query string, creds ledger.Credentials) (*agent.Result, error)
}

// TopicDiscoverer reconciles an account's topics against the ledger
// index. Satisfied by *topics.Engine.
type TopicDiscoverer interface {
	Discover(ctx context.Context, accountID, currentTopic string) []topics.Topic
}

// CredentialVerifier checks credentials against the ledger. Satisfied
// by *ledger.Verifier.
type CredentialVerifier interface {
	Verify(ctx context.Context, creds ledger.Credentials) error
}

// MessageReader lists stored topic messages. Satisfied by
// *mirror.Client.
type MessageReader interface {
	Messages(ctx context.Context, topicID string, limit int) ([]mirror.Message, error)
}

// Server provides HTTP endpoints for agrod.
type Server struct {
	echo       *echo.Echo
	processor  QueryProcessor
	discoverer TopicDiscoverer
	verifier   CredentialVerifier
	reader     MessageReader
	submitter  ledger.Submitter
	store      *topics.Store
	logger     *zap.Logger
	config     *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(processor QueryProcessor, discoverer TopicDiscoverer, verifier CredentialVerifier, reader MessageReader, submitter ledger.Submitter, store *topics.Store, logger *zap.Logger, cfg *Config) (*Server, error) {
	if processor == nil {
		return nil, fmt.Errorf("query processor cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("topic store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 3200,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			recordRequest(c.Request().Method, c.Path(), c.Response().Status)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:       e,
		processor:  processor,
		discoverer: discoverer,
		verifier:   verifier,
		reader:     reader,
		submitter:  submitter,
		store:      store,
		logger:     logger,
		config:     cfg,
	}

	// Register routes
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	// Health check
	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("/api")
	api.POST("/connect-wallet", s.handleConnectWallet)
	api.POST("/user-topics", s.handleUserTopics)
	api.POST("/set-topic", s.handleSetTopic)
	api.POST("/create-topic", s.handleCreateTopic)
	api.GET("/current-topic", s.handleCurrentTopic)
	api.POST("/query", s.handleQuery)
	api.POST("/records", s.handleRecords)
}

// WalletRequest carries credentials supplied by the client. Several
// endpoints accept it; credentials are used for the one call and never
// stored.
type WalletRequest struct {
	AccountID  string `json:"accountId"`
	PrivateKey string `json:"privateKey"`
}

func (w WalletRequest) credentials() ledger.Credentials {
	return ledger.Credentials{AccountID: w.AccountID, PrivateKey: w.PrivateKey}
}

// StatusResponse is the generic success/error response body.
type StatusResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// TopicsResponse is the response body for POST /api/user-topics.
type TopicsResponse struct {
	Success bool           `json:"success"`
	Topics  []topics.Topic `json:"topics"`
}

// TopicResponse is the response body for topic-returning endpoints.
type TopicResponse struct {
	Success bool   `json:"success"`
	TopicID string `json:"topicId"`
}

// ErrorResponse is the plain error body used by non-wallet endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleConnectWallet verifies the supplied credentials against the
// ledger index.
func (s *Server) handleConnectWallet(c echo.Context) error {
	var req WalletRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, StatusResponse{Error: "cuerpo de la solicitud inválido"})
	}

	if req.AccountID == "" || req.PrivateKey == "" {
		return c.JSON(http.StatusBadRequest, StatusResponse{
			Error: "Es necesario proporcionar un ID de cuenta y clave privada",
		})
	}

	if err := s.verifier.Verify(c.Request().Context(), req.credentials()); err != nil {
		s.logger.Warn("wallet verification failed",
			zap.String("account_id", req.AccountID),
			zap.Error(err),
		)
		return c.JSON(http.StatusBadRequest, StatusResponse{Error: "Credenciales inválidas"})
	}

	s.logger.Info("wallet connected", zap.String("account_id", req.AccountID))
	return c.JSON(http.StatusOK, StatusResponse{Success: true})
}

// handleUserTopics runs topic discovery for the supplied account.
func (s *Server) handleUserTopics(c echo.Context) error {
	var req WalletRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, StatusResponse{Error: "cuerpo de la solicitud inválido"})
	}

	if req.AccountID == "" {
		return c.JSON(http.StatusBadRequest, StatusResponse{
			Error: "Es necesario proporcionar un ID de cuenta",
		})
	}

	current, _ := s.store.Get()
	found := s.discoverer.Discover(c.Request().Context(), req.AccountID, current)

	return c.JSON(http.StatusOK, TopicsResponse{Success: true, Topics: found})
}

// SetTopicRequest is the request body for POST /api/set-topic.
type SetTopicRequest struct {
	TopicID string `json:"topicId"`
}

// handleSetTopic stores the client-chosen topic as current.
func (s *Server) handleSetTopic(c echo.Context) error {
	var req SetTopicRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cuerpo de la solicitud inválido"})
	}

	topicID := strings.TrimSpace(req.TopicID)
	if topicID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Es necesario proporcionar un ID de tema válido",
		})
	}

	s.store.Set(topicID)
	s.logger.Info("current topic set", zap.String("topic_id", topicID))
	return c.JSON(http.StatusOK, TopicResponse{Success: true, TopicID: topicID})
}

// CreateTopicRequest is the request body for POST /api/create-topic.
type CreateTopicRequest struct {
	Memo string `json:"memo"`
	WalletRequest
}

// handleCreateTopic creates a ledger topic and makes it current.
func (s *Server) handleCreateTopic(c echo.Context) error {
	var req CreateTopicRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cuerpo de la solicitud inválido"})
	}

	memo := req.Memo
	if memo == "" {
		memo = defaultTopicMemo
	}

	topicID, err := s.submitter.CreateTopic(c.Request().Context(), memo, req.credentials())
	if err != nil {
		recordSubmission("create_topic", "error")
		return s.writeError(c, err, "Error interno al crear el tema")
	}
	recordSubmission("create_topic", "success")

	s.store.Set(topicID)
	s.logger.Info("topic created and set current",
		zap.String("topic_id", topicID),
		zap.String("memo", memo),
	)
	return c.JSON(http.StatusOK, TopicResponse{Success: true, TopicID: topicID})
}

// handleCurrentTopic returns the current topic, 404 when none is set.
func (s *Server) handleCurrentTopic(c echo.Context) error {
	topicID, ok := s.store.Get()
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "No hay un tema establecido"})
	}
	return c.JSON(http.StatusOK, map[string]string{"topicId": topicID})
}

// QueryRequest is the request body for POST /api/query.
type QueryRequest struct {
	Query string `json:"query"`
	WalletRequest
}

// handleQuery runs the full query pipeline and returns the processed
// result.
func (s *Server) handleQuery(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cuerpo de la solicitud inválido"})
	}

	if req.Query == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Es necesario proporcionar una consulta",
		})
	}

	result, err := s.processor.ProcessQuery(c.Request().Context(), req.Query, req.credentials())
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrCompletionUnavailable):
			s.logger.Error("completion endpoint unavailable", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Error: "Servicio de IA temporalmente no disponible. Por favor, inténtalo de nuevo.",
			})
		case errors.Is(err, ledger.ErrSubmitUnavailable):
			recordSubmission("submit_message", "error")
			s.logger.Error("ledger submission failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Error: "No se pudo almacenar en la blockchain. Por favor, inténtalo de nuevo.",
			})
		default:
			s.logger.Error("query processing failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error: "Error interno al procesar la consulta",
			})
		}
	}

	recordQuery(result)
	if result.StoredInBlockchain {
		recordSubmission("submit_message", "success")
	}

	return c.JSON(http.StatusOK, result)
}

// RecordsRequest is the request body for POST /api/records.
type RecordsRequest struct {
	TopicID string `json:"topicId"`
	WalletRequest
}

// handleRecords returns the decoded messages of a topic. An explicit
// topicId wins; otherwise the current topic is used.
func (s *Server) handleRecords(c echo.Context) error {
	var req RecordsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cuerpo de la solicitud inválido"})
	}

	topicID := req.TopicID
	if topicID == "" {
		topicID, _ = s.store.Get()
	}
	if topicID == "" {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "No hay un tema inicializado todavía"})
	}

	msgs, err := s.reader.Messages(c.Request().Context(), topicID, recordsFetchLimit)
	if err != nil {
		switch {
		case errors.Is(err, mirror.ErrNotFound):
			return c.JSON(http.StatusNotFound, ErrorResponse{Error: "El tema no existe"})
		case errors.Is(err, mirror.ErrUnavailable):
			s.logger.Error("ledger index unavailable", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
				Error: "El índice del ledger no está disponible. Por favor, inténtalo de nuevo.",
			})
		default:
			s.logger.Error("failed to fetch records", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{
				Error: "Error interno al obtener registros",
			})
		}
	}

	// Pass stored envelopes through as-is, skipping payloads that are
	// not JSON.
	out := make([]json.RawMessage, 0, len(msgs))
	for _, m := range msgs {
		if json.Valid(m.Payload) {
			out = append(out, json.RawMessage(m.Payload))
		}
	}
	return c.JSON(http.StatusOK, out)
}

// writeError maps a ledger write failure to its HTTP status.
func (s *Server) writeError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, ledger.ErrMissingCredentials),
		errors.Is(err, ledger.ErrInvalidAccountID),
		errors.Is(err, ledger.ErrInvalidPrivateKey):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, ledger.ErrSubmitUnavailable):
		s.logger.Error("ledger submission failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "No se pudo almacenar en la blockchain. Por favor, inténtalo de nuevo.",
		})
	default:
		s.logger.Error("ledger write failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: fallback})
	}
}

// Echo exposes the underlying echo instance for extra route wiring
// (metrics handler) by the entrypoint.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
