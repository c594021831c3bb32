// Package server exposes the inbound SMS webhook. The handler is thin I/O
// plumbing around the interpretation pipeline: authenticate the sender,
// check the rate budget, interpret, persist, reply with plain text.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hurttlocker/textask/internal/config"
	"github.com/hurttlocker/textask/internal/interpret"
)

// Reply bodies, kept stable for the sender's sake.
const (
	msgAdded       = "Item successfully added!"
	msgMalformed   = "Sorry, I couldn't parse that. Use: type - time - text"
	msgUnknownType = "Sorry, I don't know that task type. Please try again!"
	msgRateLimited = "Too many messages. Please try again later."
	msgServerError = "Oops! Something went wrong. Please try again later."
)

// Sink persists assembled task records.
type Sink interface {
	CreateRecord(ctx context.Context, record interpret.TaskRecord) (string, error)
}

// RateLimiter bounds per-sender message volume.
type RateLimiter interface {
	Allow(ctx context.Context, identity string) (bool, error)
}

// Server wires the webhook route to its collaborators.
type Server struct {
	interpreter *interpret.Interpreter
	sink        Sink
	limiter     RateLimiter
	twilio      config.TwilioConfig
	logger      *zap.Logger
}

// New builds a server. limiter may be nil to disable rate limiting; a nil
// logger means no logging.
func New(interpreter *interpret.Interpreter, sink Sink, limiter RateLimiter, twilio config.TwilioConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		interpreter: interpreter,
		sink:        sink,
		limiter:     limiter,
		twilio:      twilio,
		logger:      logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.POST("/sms", s.handleSMS)
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return r
}

func (s *Server) handleSMS(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, "Bad Request")
		return
	}

	params := make(map[string]string, len(c.Request.PostForm))
	for k, vs := range c.Request.PostForm {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}

	if s.twilio.AuthToken != "" {
		url := s.twilio.PublicURL + c.Request.URL.RequestURI()
		signature := c.GetHeader("X-Twilio-Signature")
		if !ValidateTwilioSignature(s.twilio.AuthToken, url, params, signature) {
			c.String(http.StatusForbidden, "Forbidden")
			return
		}
	}

	from := params["From"]
	if len(s.twilio.AllowedSenders) > 0 && !contains(s.twilio.AllowedSenders, from) {
		c.String(http.StatusForbidden, "Forbidden")
		return
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(c.Request.Context(), from)
		if err != nil {
			s.logger.Error("rate limiter failed", zap.Error(err))
			c.String(http.StatusInternalServerError, msgServerError)
			return
		}
		if !allowed {
			c.String(http.StatusTooManyRequests, msgRateLimited)
			return
		}
	}

	body := params["Body"]
	result, err := s.interpreter.Interpret(c.Request.Context(), body)
	if err != nil {
		switch {
		case errors.Is(err, interpret.ErrMalformedInput):
			// User-input errors reply 200: Twilio redelivers on 5xx and a
			// malformed message must not loop.
			c.String(http.StatusOK, msgMalformed)
		case errors.Is(err, interpret.ErrUnknownTaskType):
			c.String(http.StatusOK, msgUnknownType)
		default:
			s.logger.Error("interpretation failed", zap.Error(err))
			c.String(http.StatusInternalServerError, msgServerError)
		}
		return
	}

	rowID, err := s.sink.CreateRecord(c.Request.Context(), result.Record)
	if err != nil {
		s.logger.Error("persisting task failed", zap.Error(err))
		c.String(http.StatusInternalServerError, msgServerError)
		return
	}

	s.logger.Info("task created",
		zap.String("row_id", rowID),
		zap.Bool("structured", result.Metrics.Structured),
		zap.Bool("shortcut", result.Metrics.ShortcutMatched),
		zap.Bool("date", result.Metrics.DateDetected),
		zap.Int("oracle_calls", result.Metrics.OracleCalls),
		zap.Int("oracle_failures", result.Metrics.OracleFailures),
		zap.Bool("category_fallback", result.Metrics.CategoryFallback),
	)

	c.String(http.StatusOK, msgAdded)
}

// requestLogger logs one line per request with a request id.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.New().String()
		c.Set("requestID", requestID)

		c.Next()

		s.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
