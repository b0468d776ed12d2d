package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/khabar"
	"github.com/poiesic/khabar/cluster"
	"github.com/poiesic/khabar/core"
	"github.com/poiesic/khabar/search"
)

const defaultLatestCount = 10

// Service is the query surface served over HTTP. *khabar.Desk implements it.
type Service interface {
	ListAll() []*core.Item
	Latest(n int) ([]*core.Item, error)
	KeywordSearch(term string) ([]*core.Item, error)
	SemanticSearch(ctx context.Context, req search.Request) ([]*core.SemanticResult, error)
	FeedStatus() khabar.Status
	Topics() map[int][]string
	TopicsWithKeywords() map[int]core.TopicSummary
	TopicInfo(topicID int) (*core.TopicInfo, error)
}

var _ Service = (*khabar.Desk)(nil)

// Handler serves a Service.
type Handler struct {
	service           Service
	title             string
	defaultThreshold  float64
	defaultMaxResults int
	now               func() time.Time
	logger            *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithTitle sets the name reported by the root endpoint.
func WithTitle(title string) Option {
	return func(h *Handler) {
		h.title = title
	}
}

// WithSemanticDefaults sets the threshold and result count used when a
// semantic query omits them. Defaults are 0.5 and 10.
func WithSemanticDefaults(minThreshold float64, maxResults int) Option {
	return func(h *Handler) {
		h.defaultThreshold = minThreshold
		if maxResults > 0 {
			h.defaultMaxResults = maxResults
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger == nil {
			logger = slog.Default()
		}
		h.logger = logger
	}
}

// NewHandler creates a handler for service.
func NewHandler(service Service, opts ...Option) (*Handler, error) {
	if service == nil {
		return nil, errors.New("service required")
	}
	h := &Handler{
		service:           service,
		title:             "Khabar News API",
		defaultThreshold:  0.5,
		defaultMaxResults: 10,
		now:               time.Now,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "api")
	return h, nil
}

// Register adds the routes to r.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/", h.root)
	r.GET("/health", h.health)
	r.GET("/news", h.allNews)
	r.GET("/news/latest", h.latestNews)
	r.GET("/news/latest/:count", h.latestNews)
	r.GET("/news/search/:keyword", h.searchNews)
	r.GET("/news/semantic", h.semanticSearch)
	r.GET("/news/status", h.status)
	r.GET("/topics", h.topics)
	r.GET("/topics/keywords", h.topicsWithKeywords)
	r.GET("/topics/:id", h.topicInfo)
}

// Router returns a gin engine with recovery and the routes registered.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	h.Register(router)
	return router
}

func (h *Handler) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":     h.title,
		"status":      "running",
		"feed_source": h.service.FeedStatus().FeedURL,
		"endpoints": gin.H{
			"all_news":        "/news",
			"latest_news":     "/news/latest/{count}",
			"search_news":     "/news/search/{keyword}",
			"semantic_search": "/news/semantic?q={query}",
			"feed_status":     "/news/status",
			"topics":          "/topics",
			"topic_keywords":  "/topics/keywords",
			"topic_info":      "/topics/{id}",
		},
	})
}

func (h *Handler) health(c *gin.Context) {
	status := h.service.FeedStatus()
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"polling_active": status.PollingActive,
		"articles_count": status.TotalStored,
		"timestamp":      h.now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) allNews(c *gin.Context) {
	items := h.service.ListAll()
	c.JSON(http.StatusOK, gin.H{
		"total_articles": len(items),
		"articles":       newItemResponses(items),
	})
}

func (h *Handler) latestNews(c *gin.Context) {
	count := defaultLatestCount
	if raw := c.Param("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "count must be an integer"})
			return
		}
		count = n
	}

	items, err := h.service.Latest(count)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"requested_count": count,
		"returned_count":  len(items),
		"articles":        newItemResponses(items),
	})
}

func (h *Handler) searchNews(c *gin.Context) {
	keyword := c.Param("keyword")
	items, err := h.service.KeywordSearch(keyword)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"keyword":       keyword,
		"total_matches": len(items),
		"articles":      newItemResponses(items),
	})
}

type semanticQuery struct {
	Query         string   `form:"q"`
	MinThreshold  *float64 `form:"min_threshold"`
	TitleWeight   *float64 `form:"title_weight"`
	SummaryWeight *float64 `form:"summary_weight"`
	MaxResults    *int     `form:"max_results"`
}

func (h *Handler) semanticSearch(c *gin.Context) {
	var q semanticQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	req := search.Request{
		Query:         q.Query,
		MinThreshold:  h.defaultThreshold,
		TitleWeight:   q.TitleWeight,
		SummaryWeight: q.SummaryWeight,
		MaxResults:    h.defaultMaxResults,
	}
	if q.MinThreshold != nil {
		req.MinThreshold = *q.MinThreshold
	}
	if q.MaxResults != nil {
		req.MaxResults = *q.MaxResults
	}

	results, err := h.service.SemanticSearch(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	out := make([]semanticResultResponse, len(results))
	for i, r := range results {
		out[i] = semanticResultResponse{
			Article:         newItemResponse(r.Item),
			SimilarityScore: r.Score,
			Confidence:      r.Confidence.Label(),
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"query":         req.Query,
		"total_results": len(out),
		"results":       out,
	})
}

func (h *Handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, newStatusResponse(h.service.FeedStatus()))
}

func (h *Handler) topics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"topics": h.service.Topics()})
}

func (h *Handler) topicsWithKeywords(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"topics": h.service.TopicsWithKeywords()})
}

func (h *Handler) topicInfo(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "topic id must be an integer"})
		return
	}
	info, err := h.service.TopicInfo(id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// fail maps an error to a status code. Only unexpected errors are logged.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, cluster.ErrTopicNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	default:
		h.logger.Error("request failed", "path", c.FullPath(), "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
	}
}
