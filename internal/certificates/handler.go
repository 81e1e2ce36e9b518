package certificates

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Generator is the operation the handler exposes. *Service implements it.
type Generator interface {
	Generate(ctx context.Context, req CertificateRequest) (*GenerateResult, error)
}

// Handler handles HTTP requests for certificate generation
type Handler struct {
	service Generator
	logger  *zap.Logger
}

// NewHandler creates a new certificates handler
func NewHandler(service Generator, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers certificate routes
func (h *Handler) RegisterRoutes(router gin.IRoutes) {
	router.POST("/generate-certificate", h.generateCertificate)
	router.OPTIONS("/generate-certificate", h.preflight)
}

// GenerateResponse is the success envelope
type GenerateResponse struct {
	Success         bool             `json:"success"`
	CertificateID   string           `json:"certificateId"`
	CertificateData *CertificateData `json:"certificateData,omitempty"`
	CertificateURL  string           `json:"certificateUrl"`
	Message         string           `json:"message"`
	Registered      bool             `json:"registered"`
}

// ErrorResponse is the failure envelope
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// preflight handles OPTIONS /generate-certificate
func (h *Handler) preflight(c *gin.Context) {
	c.Status(http.StatusOK)
}

// generateCertificate handles POST /generate-certificate
func (h *Handler) generateCertificate(c *gin.Context) {
	requestID := uuid.New().String()
	logger := h.logger.With(zap.String("request_id", requestID))

	var req CertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid certificate request body", zap.Error(err))
		h.fail(c, err)
		return
	}

	ctx := WithRequestID(c.Request.Context(), requestID)
	result, err := h.service.Generate(ctx, req)
	if err != nil {
		logger.Error("Certificate generation failed", zap.Error(err))
		h.fail(c, err)
		return
	}

	resp := GenerateResponse{
		Success:        true,
		CertificateID:  result.CertificateID,
		CertificateURL: result.CertificateURL,
		Message:        msgGenerated,
		Registered:     result.Registered,
	}
	if result.Existing {
		resp.Message = msgAlreadyExists
	} else {
		resp.CertificateData = result.Data
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) fail(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Success:   false,
		Error:     userMessage(err),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, ErrAttemptNotEligible):
		return msgAttemptNotEligible
	case errors.Is(err, ErrUploadFailed):
		return msgUploadFailed
	case errors.Is(err, ErrInvalidRequest):
		return msgInvalidRequest
	default:
		return err.Error()
	}
}
