package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"greencheck/internal/domain"
)

const (
	defaultDetectionsLimit = 20
	maxDetectionsLimit     = 200
)

type textRequest struct {
	Text string `json:"text" binding:"required,notblank"`
}

type processDocumentRequest struct {
	Content  string `json:"content" binding:"required,notblank"`
	Filename string `json:"filename"`
}

type processDocumentResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	DocumentID    string `json:"document_id"`
	ChunksCreated int    `json:"chunks_created"`
	ContentLength int    `json:"content_length"`
	Filename      string `json:"filename"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"llm_enabled": s.opts.LLMEnabled,
		"store":       s.opts.StoreDriver,
		"source_tag":  s.opts.SourceTag,
	})
}

func (s *Server) detect(c *gin.Context) {
	var req textRequest
	if !s.bind(c, &req) {
		return
	}

	resp, err := s.opts.Detector.Detect(c.Request.Context(), req.Text)
	if err != nil {
		s.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) detections(c *gin.Context) {
	limit := defaultDetectionsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxDetectionsLimit)
	}

	detections, err := s.opts.Detector.Recent(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, err, "")
		return
	}
	if detections == nil {
		detections = []domain.Detection{}
	}
	c.JSON(http.StatusOK, gin.H{"detections": detections})
}

func (s *Server) processDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var req processDocumentRequest
	if !s.bind(c, &req) {
		return
	}

	res, err := s.opts.Ingester.Ingest(c.Request.Context(), req.Content, req.Filename, s.opts.SourceTag)
	if err != nil {
		s.fail(c, err, "failed to process reference document")
		return
	}

	c.JSON(http.StatusOK, processDocumentResponse{
		Status:        "success",
		Message:       "reference document processed successfully",
		DocumentID:    res.DocumentID,
		ChunksCreated: res.ChunksCreated,
		ContentLength: res.ContentLength,
		Filename:      res.Filename,
	})
}

func (s *Server) adapt(c *gin.Context) {
	var req textRequest
	if !s.bind(c, &req) {
		return
	}

	adaptation, err := s.opts.Adapter.Adapt(c.Request.Context(), req.Text)
	if err != nil {
		s.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, adaptation)
}

func (s *Server) seed(c *gin.Context) {
	res, err := s.opts.Seeder.Seed(c.Request.Context())
	if err != nil {
		s.fail(c, err, "failed to seed reference report")
		return
	}
	c.JSON(http.StatusOK, res)
}

// bind decodes the JSON body into req and answers 400 on failure.
func (s *Server) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: bindingMessage(err)})
		return false
	}
	return true
}

func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := fe.Field()
		switch fe.Tag() {
		case "required", "notblank":
			return jsonName(field) + " is required"
		}
		return "invalid " + jsonName(field)
	}
	return "invalid request body: " + err.Error()
}

func jsonName(field string) string {
	switch field {
	case "Text":
		return "text"
	case "Content":
		return "content"
	case "Filename":
		return "filename"
	}
	return field
}

// fail maps use case errors onto status codes.
func (s *Server) fail(c *gin.Context, err error, details string) {
	_ = c.Error(err)

	var inErr *domain.InputError
	if errors.As(err, &inErr) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var ingErr *domain.IngestionError
	if errors.As(err, &ingErr) {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error(), Details: details})
		return
	}

	c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
}
