package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/usecase"
)

// Server exposes sources, headlines, manual digest runs and run history over HTTP.
type Server struct {
	registry ports.SourceRegistry
	pipeline *usecase.Pipeline
	digest   *usecase.DigestService
	runs     ports.RunRepository
	logger   *slog.Logger
}

// Deps groups the collaborators of the HTTP layer. Runs may be nil.
type Deps struct {
	Registry ports.SourceRegistry
	Pipeline *usecase.Pipeline
	Digest   *usecase.DigestService
	Runs     ports.RunRepository
	Logger   *slog.Logger
}

func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		registry: deps.Registry,
		pipeline: deps.Pipeline,
		digest:   deps.Digest,
		runs:     deps.Runs,
		logger:   logger.With("component", "api"),
	}
}

// Router builds a gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())
	s.RegisterRoutes(r)
	return r
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/sources", s.listSources)
		v1.GET("/headlines", s.listHeadlines)
		v1.POST("/digest", s.runDigest)
		v1.GET("/runs", s.listRuns)
	}
}

type sourceView struct {
	ID         string   `json:"id"`
	Categories []string `json:"categories"`
}

type headlineView struct {
	SourceID    string            `json:"source_id"`
	Category    string            `json:"category"`
	Title       string            `json:"title"`
	URL         string            `json:"url"`
	Description string            `json:"description,omitempty"`
	PublishedAt *time.Time        `json:"published_at,omitempty"`
	ImageURL    string            `json:"image_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listSources(c *gin.Context) {
	if s.registry == nil {
		ok(c, []sourceView{})
		return
	}
	catalog := s.registry.Catalog()
	out := make([]sourceView, 0, len(catalog))
	for _, id := range s.registry.IDs() {
		out = append(out, sourceView{ID: id, Categories: catalog[id]})
	}
	ok(c, out)
}

func (s *Server) listHeadlines(c *gin.Context) {
	req := usecase.Request{
		Sources:    splitQuery(c.Query("sources")),
		Categories: splitQuery(c.Query("categories")),
	}

	headlines, failures := s.pipeline.Headlines(c.Request.Context(), req)
	out := make([]headlineView, len(headlines))
	for i, h := range headlines {
		out[i] = toHeadlineView(h)
	}

	c.JSON(http.StatusOK, gin.H{
		"code":     "ok",
		"message":  "success",
		"data":     out,
		"failures": failures,
	})
}

func (s *Server) runDigest(c *gin.Context) {
	var req usecase.Request
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "bad_request", "message": err.Error()})
			return
		}
	}

	report, err := s.digest.Run(c.Request.Context(), req)
	switch {
	case err == nil:
		ok(c, report)
	case errors.Is(err, usecase.ErrNotDelivered):
		c.JSON(http.StatusBadGateway, gin.H{"code": "not_delivered", "message": err.Error(), "data": report})
	default:
		s.logger.Error("manual digest run failed", "run_id", report.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": "run_failed", "message": err.Error(), "data": report})
	}
}

func (s *Server) listRuns(c *gin.Context) {
	if s.runs == nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "message": "run history is not configured"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	runs, err := s.runs.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("list runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": "internal_error", "message": "internal server error"})
		return
	}
	if runs == nil {
		runs = []domain.RunReport{}
	}
	ok(c, runs)
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"code": "ok", "message": "success", "data": data})
}

func toHeadlineView(h domain.Headline) headlineView {
	v := headlineView{
		SourceID:    h.SourceID,
		Category:    h.Category,
		Title:       h.Title,
		URL:         h.URL,
		Description: h.Description,
		ImageURL:    h.ImageURL,
		Metadata:    h.Metadata,
	}
	if !h.PublishedAt.IsZero() {
		published := h.PublishedAt
		v.PublishedAt = &published
	}
	return v
}

func splitQuery(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
