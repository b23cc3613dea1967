package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/productlens/backend/internal/domain"
	"go.uber.org/zap"
)

// Request limits
const (
	MaxRecommendationLength = 20000
	MaxConversationTurns    = 50
)

// ProductDiscoverer is the discovery use case consumed by the handlers
type ProductDiscoverer interface {
	Discover(ctx context.Context, request *domain.DiscoveryRequest) (*domain.DiscoveryResponse, error)
	CacheStats(ctx context.Context) domain.CacheStats
	ClearCache(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	discovery ProductDiscoverer
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(discovery ProductDiscoverer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		discovery: discovery,
		logger:    logger,
	}
}

// discoverRequest is the JSON body of POST /api/v1/products/discover
type discoverRequest struct {
	Message        string        `json:"message"`
	Recommendation string        `json:"recommendation"`
	Conversation   []turnRequest `json:"conversation"`
}

type turnRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (r discoverRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Recommendation,
			validation.Required,
			validation.Length(1, MaxRecommendationLength),
		),
		validation.Field(&r.Conversation, validation.Length(0, MaxConversationTurns)),
	)
}

func (t turnRequest) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Role, validation.Required, validation.In("user", "assistant", "system")),
	)
}

func (r discoverRequest) toDomain() *domain.DiscoveryRequest {
	turns := make([]domain.ConversationTurn, len(r.Conversation))
	for i, t := range r.Conversation {
		turns[i] = domain.ConversationTurn{Role: t.Role, Content: t.Content}
	}
	return &domain.DiscoveryRequest{
		Message:        r.Message,
		Recommendation: r.Recommendation,
		Conversation:   turns,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "productlens-backend",
		"version": "1.0.0",
	})
}

// DiscoverProducts resolves the products named in an assistant recommendation
func (h *Handler) DiscoverProducts(c *gin.Context) {
	var req discoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
		})
		return
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   domain.ErrInvalidRequest.Error(),
			"details": err,
		})
		return
	}

	resp, err := h.discovery.Discover(c.Request.Context(), req.toDomain())
	if err != nil {
		if errors.Is(err, domain.ErrProviderUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":       "product search is not available",
				"hasProducts": false,
			})
			return
		}
		h.logger.Error("Discovery failed",
			zap.String("request_id", requestID(c)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":       "internal server error",
			"hasProducts": false,
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CacheStats returns response cache statistics
func (h *Handler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.discovery.CacheStats(c.Request.Context()))
}

// ClearCache empties the response cache
func (h *Handler) ClearCache(c *gin.Context) {
	if err := h.discovery.ClearCache(c.Request.Context()); err != nil {
		h.logger.Error("Failed to clear cache",
			zap.String("request_id", requestID(c)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": domain.ErrCacheUnavailable.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}
