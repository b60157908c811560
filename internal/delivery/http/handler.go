package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/notwins/backend/internal/domain"
	"github.com/notwins/backend/internal/usecase"
)

const (
	serviceName    = "notwins-backend"
	serviceVersion = "1.0.0"

	maxBatchURLs  = 20
	maxImageBytes = 10 << 20
)

// ProductExtractor is the extraction use case as seen by the handlers.
type ProductExtractor interface {
	ExtractProduct(ctx context.Context, rawURL string) (*domain.ProductRecord, error)
	ExtractBatch(ctx context.Context, urls []string) []usecase.BatchResult
	AnalyzeImage(ctx context.Context, image []byte, mimeType string) (*domain.ImageAnalysis, error)
}

// DuplicateFinder is the matching use case as seen by the handlers.
type DuplicateFinder interface {
	FindDuplicates(ctx context.Context, item domain.WardrobeItem, pool []domain.WardrobeItem) ([]domain.DuplicateCandidate, error)
	FindSimilar(ctx context.Context, item domain.WardrobeItem, pool []domain.WardrobeItem) ([]domain.SimilarCandidate, error)
}

// HealthProbe reports whether an outbound provider is reachable.
type HealthProbe interface {
	Healthy(ctx context.Context) bool
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	extractor ProductExtractor
	matcher   DuplicateFinder
	aiProbe   HealthProbe
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler. aiProbe may be nil when AI is disabled.
func NewHandler(extractor ProductExtractor, matcher DuplicateFinder, aiProbe HealthProbe, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		extractor: extractor,
		matcher:   matcher,
		aiProbe:   aiProbe,
		logger:    logger.Named("http"),
	}
}

// ExtractRequest is the body of POST /products/extract.
type ExtractRequest struct {
	URL string `json:"url" binding:"required"`
}

// BatchExtractRequest is the body of POST /products/extract/batch.
type BatchExtractRequest struct {
	URLs []string `json:"urls" binding:"required"`
}

// MatchRequest is the body of the duplicate and similarity endpoints.
type MatchRequest struct {
	Item domain.WardrobeItem   `json:"item"`
	Pool []domain.WardrobeItem `json:"pool"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type batchItem struct {
	URL     string                `json:"url"`
	Product *domain.ProductRecord `json:"product,omitempty"`
	Error   *errorBody            `json:"error,omitempty"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	ai := "disabled"
	if h.aiProbe != nil {
		ai = "unreachable"
		if h.aiProbe.Healthy(c.Request.Context()) {
			ai = "reachable"
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
		"ai":      ai,
	})
}

// ExtractProduct handles single product extraction requests
func (h *Handler) ExtractProduct(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}

	product, err := h.extractor.ExtractProduct(c.Request.Context(), req.URL)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// ExtractBatch extracts several URLs at once. Failures are reported per URL.
func (h *Handler) ExtractBatch(c *gin.Context) {
	var req BatchExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return
	}
	if len(req.URLs) == 0 || len(req.URLs) > maxBatchURLs {
		h.respondError(c, fmt.Errorf("%w: between 1 and %d urls expected", domain.ErrInvalidRequest, maxBatchURLs))
		return
	}

	results := h.extractor.ExtractBatch(c.Request.Context(), req.URLs)
	items := make([]batchItem, 0, len(results))
	failed := 0
	for _, r := range results {
		item := batchItem{URL: r.URL, Product: r.Product}
		if r.Err != nil {
			_, code := classifyError(r.Err)
			item.Error = &errorBody{Code: code, Message: r.Err.Error()}
			failed++
		}
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"results": items, "failed": failed})
}

// AnalyzeImage accepts a multipart photo upload in the "image" field.
func (h *Handler) AnalyzeImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		h.respondError(c, fmt.Errorf("%w: image file is required", domain.ErrInvalidRequest))
		return
	}
	defer file.Close()

	if header.Size > maxImageBytes {
		h.respondError(c, fmt.Errorf("%w: image larger than %d bytes", domain.ErrInvalidRequest, maxImageBytes))
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		h.respondError(c, fmt.Errorf("%w: read image: %v", domain.ErrInvalidRequest, err))
		return
	}
	if len(data) > maxImageBytes {
		h.respondError(c, fmt.Errorf("%w: image larger than %d bytes", domain.ErrInvalidRequest, maxImageBytes))
		return
	}

	analysis, err := h.extractor.AnalyzeImage(c.Request.Context(), data, header.Header.Get("Content-Type"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": analysis})
}

// FindDuplicates answers 200 even when the AI stage is down; the result is then
// empty and flagged as degraded.
func (h *Handler) FindDuplicates(c *gin.Context) {
	req, ok := h.bindMatchRequest(c)
	if !ok {
		return
	}

	duplicates, err := h.matcher.FindDuplicates(c.Request.Context(), req.Item, req.Pool)
	degraded, err := h.degraded(err)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"duplicates": duplicates, "degraded": degraded})
}

// FindSimilar mirrors FindDuplicates for lookalike items.
func (h *Handler) FindSimilar(c *gin.Context) {
	req, ok := h.bindMatchRequest(c)
	if !ok {
		return
	}

	similar, err := h.matcher.FindSimilar(c.Request.Context(), req.Item, req.Pool)
	degraded, err := h.degraded(err)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"similar": similar, "degraded": degraded})
}

func (h *Handler) bindMatchRequest(c *gin.Context) (MatchRequest, bool) {
	var req MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err))
		return req, false
	}
	if strings.TrimSpace(req.Item.Name) == "" {
		h.respondError(c, fmt.Errorf("%w: item name is required", domain.ErrInvalidRequest))
		return req, false
	}
	return req, true
}

func (h *Handler) degraded(err error) (bool, error) {
	if err == nil {
		return false, nil
	}
	if errors.Is(err, domain.ErrAIAdjudicationUnavailable) {
		h.logger.Warn("matching degraded", zap.Error(err))
		return true, nil
	}
	return false, err
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status, code := classifyError(err)
	body := gin.H{"error": errorBody{Code: code, Message: err.Error()}}

	var failed *domain.ExtractionFailedError
	if errors.As(err, &failed) {
		body["attempts"] = failed.Attempts
		body["manualEntry"] = true
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	} else {
		h.logger.Debug("request rejected", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, body)
}

// classifyError maps domain errors to an HTTP status and a stable error code.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidURL):
		return http.StatusBadRequest, "invalid_url"
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrBlockedDomain):
		return http.StatusForbidden, "blocked_domain"
	case errors.Is(err, domain.ErrExtractionFailed):
		return http.StatusUnprocessableEntity, "extraction_failed"
	case errors.Is(err, domain.ErrAIDisabled):
		return http.StatusServiceUnavailable, "ai_disabled"
	case errors.Is(err, domain.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, "provider_unavailable"
	case errors.Is(err, domain.ErrAIResponseInvalid):
		return http.StatusBadGateway, "ai_response_invalid"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
