package rest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jecoplus/lending/internal/application/dto"
	"github.com/jecoplus/lending/internal/application/usecase"
	"github.com/jecoplus/lending/internal/domain/apperr"
	"github.com/jecoplus/lending/pkg/auth"
)

// DefaultMaxUploadBytes bounds an uploaded statement.
const DefaultMaxUploadBytes = 10 << 20

// RouterConfig wires the HTTP surface. Nil Ready, Metrics or JWT disable the
// matching feature.
type RouterConfig struct {
	Service          string
	Ready            func(ctx context.Context) error
	Metrics          http.Handler
	JWT              *auth.JWTService
	ExtractStatement *usecase.ExtractStatementUseCase
	MaxUploadBytes   int64
	Logger           *slog.Logger
}

// NewRouter builds the gin engine serving probes, metrics and the statement
// upload endpoint.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(cfg.Logger))

	h := &handler{cfg: cfg}
	r.GET("/healthz", h.liveness)
	r.GET("/readyz", h.readiness)
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	v1 := r.Group("/v1")
	if cfg.JWT != nil {
		v1.Use(bearerAuth(cfg.JWT))
	}
	v1.POST("/statements/parse", h.parseStatement)
	return r
}

type handler struct {
	cfg RouterConfig
}

func (h *handler) liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": h.cfg.Service})
}

func (h *handler) readiness(c *gin.Context) {
	if h.cfg.Ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.cfg.Ready(ctx); err != nil {
			h.cfg.Logger.WarnContext(ctx, "readiness check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": h.cfg.Service})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "service": h.cfg.Service})
}

// parseStatement accepts a multipart "file" field or a raw application/pdf
// body. The optional loan_id query parameter enables payment matching.
func (h *handler) parseStatement(c *gin.Context) {
	if h.cfg.ExtractStatement == nil {
		writeError(c, apperr.Unavailable(nil, "statement extraction is not configured"))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes)
	document, err := readDocument(c)
	if err != nil {
		writeError(c, err)
		return
	}

	resp, err := h.cfg.ExtractStatement.Execute(c.Request.Context(), dto.ExtractStatementRequest{
		Document: document,
		LoanID:   c.Query("loan_id"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func readDocument(c *gin.Context) ([]byte, error) {
	var body io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, apperr.Validation("multipart field \"file\" is required")
		}
		f, err := fh.Open()
		if err != nil {
			return nil, apperr.Validation("open uploaded file: %v", err)
		}
		defer f.Close()
		body = f
	}

	data, err := io.ReadAll(body)
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return nil, apperr.Validation("document exceeds %d bytes", tooLarge.Limit)
	case err != nil:
		return nil, apperr.Validation("read document: %v", err)
	case len(data) == 0:
		return nil, apperr.Validation("a statement document is required")
	}
	return data, nil
}

func writeError(c *gin.Context, err error) {
	code := httpStatus(apperr.CodeOf(err))
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.AbortWithStatusJSON(code, gin.H{"code": string(apperr.CodeOf(err)), "error": msg})
}

func httpStatus(code apperr.Code) int {
	switch code {
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeUpstreamParse:
		return http.StatusUnprocessableEntity
	case apperr.CodeConflict, apperr.CodeInvalidState:
		return http.StatusConflict
	case apperr.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func bearerAuth(jwt *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := jwt.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Request = c.Request.WithContext(auth.ContextWithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.DebugContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
