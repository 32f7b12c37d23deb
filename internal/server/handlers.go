package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"dataimport/internal/datasource"
	"dataimport/internal/datasource/file"
	"dataimport/internal/importer"
	"dataimport/internal/mapper"
	pcsv "dataimport/internal/parser/csv"
	"dataimport/internal/schema"
	"dataimport/pkg/records"

	"github.com/gin-gonic/gin"
)

// ParseRequest is the body of POST /api/v1/parse.
type ParseRequest struct {
	CSVContent string `json:"csvContent"`
	SampleSize int    `json:"sampleSize"`
}

// MapRequest is the body of POST /api/v1/map.
type MapRequest struct {
	EntityType string           `json:"entityType"`
	Headers    []string         `json:"headers"`
	SampleRows []records.Sample `json:"sampleRows"`
}

// ValidateRequest is the body of POST /api/v1/validate.
type ValidateRequest struct {
	EntityType string                `json:"entityType"`
	Mappings   []mapper.FieldMapping `json:"mappings"`
	SampleRows []records.Sample      `json:"sampleRows"`
}

// ImportRequest is the body of POST /api/v1/import.
type ImportRequest struct {
	EntityType     string            `json:"entityType"`
	CSVContent     string            `json:"csvContent"`
	SampleSize     int               `json:"sampleSize"`
	Mappings       map[string]string `json:"mappings,omitempty"`
	AcceptDefaults bool              `json:"acceptDefaults,omitempty"`
}

// Parse handles POST /api/v1/parse.
func (s *Server) Parse(c *gin.Context) {
	var req ParseRequest
	if !s.bind(c, &req) {
		return
	}
	t, err := s.svc.ParseCSV(req.CSVContent, s.sampleSize(req.SampleSize))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Map handles POST /api/v1/map.
func (s *Server) Map(c *gin.Context) {
	var req MapRequest
	if !s.bind(c, &req) {
		return
	}
	res, err := s.svc.MapSchema(req.EntityType, req.Headers, req.SampleRows)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Validate handles POST /api/v1/validate.
func (s *Server) Validate(c *gin.Context) {
	var req ValidateRequest
	if !s.bind(c, &req) {
		return
	}
	res, err := s.svc.ValidateData(req.EntityType, req.Mappings, req.SampleRows)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Import handles POST /api/v1/import: the whole pipeline on inline content.
func (s *Server) Import(c *gin.Context) {
	var req ImportRequest
	if !s.bind(c, &req) {
		return
	}
	s.run(c, importer.Request{
		Job:            "api",
		Entity:         req.EntityType,
		Source:         datasource.Bytes{Label: "request", Data: []byte(req.CSVContent)},
		Parser:         pcsv.Options{SampleSize: s.sampleSize(req.SampleSize)},
		Overrides:      req.Mappings,
		AcceptDefaults: req.AcceptDefaults,
	})
}

// Upload handles POST /api/v1/upload: a multipart "file" (.csv or .xlsx)
// plus an "entityType" form value.
func (s *Server) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		s.bodyError(c, err, "missing file")
		return
	}
	entity := c.PostForm("entityType")

	dir, err := os.MkdirTemp("", "dataimport-upload-")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot store upload"})
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, filepath.Base(fh.Filename))
	if err := c.SaveUploadedFile(fh, path); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot store upload"})
		return
	}
	s.run(c, importer.Request{
		Job:            "upload",
		Entity:         entity,
		Source:         &file.Local{Path: path, Sheet: c.PostForm("sheet"), MaxBytes: s.cfg.MaxBodyBytes},
		Parser:         pcsv.Options{SampleSize: s.cfg.SampleSize},
		AcceptDefaults: c.PostForm("acceptDefaults") == "true",
	})
}

func (s *Server) run(c *gin.Context, req importer.Request) {
	if s.cfg.Sink.Kind != "" {
		sink := s.cfg.Sink
		req.Sink = &sink
	}
	rep, err := s.svc.Run(c.Request.Context(), req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, rep)
	case errors.Is(err, importer.ErrInvalidMapping) && rep.Validation != nil:
		c.JSON(http.StatusUnprocessableEntity, rep)
	case errors.Is(err, importer.ErrSink):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "report": rep})
	default:
		s.fail(c, err)
	}
}

// ListSchemas handles GET /api/v1/schemas.
func (s *Server) ListSchemas(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"entities": schema.Entities()})
}

// GetSchema handles GET /api/v1/schemas/:entity.
func (s *Server) GetSchema(c *gin.Context) {
	entity := c.Param("entity")
	sc, ok := schema.Lookup(entity)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown entity type: " + entity})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entity":   sc.Entity,
		"fields":   sc.Fields,
		"defaults": schema.DefaultsFor(entity),
	})
}

func (s *Server) sampleSize(n int) int {
	if n > 0 {
		return n
	}
	return s.cfg.SampleSize
}

func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.bodyError(c, err, "invalid request body")
		return false
	}
	return true
}

func (s *Server) bodyError(c *gin.Context, err error, msg string) {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": msg + ": " + err.Error()})
}

// fail maps pipeline errors to status codes.
func (s *Server) fail(c *gin.Context, err error) {
	var pe *pcsv.ParseError
	switch {
	case errors.Is(err, importer.ErrUnknownEntity), errors.Is(err, importer.ErrInvalidMapping):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &pe):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, file.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	default:
		s.log.WithError(err).Error("http: request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
