package handler

import (
	"errors"
	"net/http"

	"review-service/internal/content"
	"review-service/internal/middleware"
	"review-service/internal/models"
	"review-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	serviceName    = "review-service"
	serviceVersion = "1.0.0"

	errMissingFields = "title and content are required"
	errInvalidBody   = "request body must be a JSON object"
	errNoVisibleText = "content has no visible text"
)

// Options configures request handling
type Options struct {
	StripHTML      bool
	InternalAPIKey string
}

// Handler handles HTTP requests
type Handler struct {
	reviewer *service.Reviewer
	opts     Options
	logger   *zap.Logger
}

// NewHandler creates a new API handler
func NewHandler(reviewer *service.Reviewer, opts Options, logger *zap.Logger) *Handler {
	return &Handler{
		reviewer: reviewer,
		opts:     opts,
		logger:   logger,
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	guard := middleware.InternalKey(h.opts.InternalAPIKey, h.logger)

	r.POST("/review", guard, h.Review)

	api := r.Group("/api/v1")
	{
		api.POST("/review", guard, h.Review)
		api.GET("/policy", h.GetPolicy)
	}

	// Health check
	r.GET("/health", h.HealthCheck)
}

// Review decides a single article. Only malformed input is an error; model
// failures are absorbed by the reviewer.
func (h *Handler) Review(c *gin.Context) {
	var req models.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Info("Rejected malformed review request",
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err))

		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errMissingFields})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody})
		return
	}

	article := req.Article()
	if h.opts.StripHTML {
		article.Title = content.StripHTML(article.Title)
		if content.IsLikelyHTML(article.Content) {
			article.Content = content.StripHTML(article.Content)
			if article.Content == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": errNoVisibleText})
				return
			}
		}
	}

	decision := h.reviewer.Review(c.Request.Context(), article)

	h.logger.Info("Article reviewed",
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.String("decision", string(decision.Decision)),
		zap.String("article_type", article.ArticleType),
		zap.Bool("model_output", decision.Raw != ""))

	c.JSON(http.StatusOK, decision)
}

// GetPolicy describes the active fallback policy without exposing term lists
func (h *Handler) GetPolicy(c *gin.Context) {
	rules := h.reviewer.Rules()
	policy := rules.Policy()

	c.JSON(http.StatusOK, gin.H{
		"version":                   policy.Version,
		"rules":                     rules.RuleNames(),
		"min_content_length":        policy.MinContentLength,
		"disclosure_required_types": policy.DisclosureRequiredTypes,
		"violence_pattern_count":    len(policy.ViolencePatterns),
		"hate_term_count":           len(policy.HateTerms),
		"hard_reject_pattern_count": len(policy.HardRejectPatterns),
	})
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"version":   serviceVersion,
		"degraded":  h.reviewer.Degraded(),
		"model":     h.reviewer.ModelInfo(),
		"providers": h.reviewer.ProvidersInfo(),
	})
}
