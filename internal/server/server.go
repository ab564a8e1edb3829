package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kiesman99/tilex/internal/api"
	"github.com/kiesman99/tilex/internal/export"
	"github.com/kiesman99/tilex/internal/extractor"
	"github.com/kiesman99/tilex/pkg/tile"
)

// Defaults for Config fields left at zero
const (
	DefaultCacheSize      = 64
	DefaultMaxImageBytes  = 32 << 20
	DefaultMaxImagePixels = 16 << 20
)

// Config holds the server settings
type Config struct {
	Version string
	// CacheSize is the number of extraction results kept for download
	CacheSize int
	// MaxImageBytes limits the size of an uploaded image
	MaxImageBytes int64
	// MaxImagePixels limits width*height of a decoded image
	MaxImagePixels int64
	Logger         *log.Logger
}

// Server implements the ServerInterface of the api package
type Server struct {
	startTime      time.Time
	version        string
	store          *Store
	maxImageBytes  int64
	maxImagePixels int64
	logger         *log.Logger
}

// NewServer creates a new server instance
func NewServer(cfg Config) (*Server, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = DefaultMaxImageBytes
	}
	if cfg.MaxImagePixels <= 0 {
		cfg.MaxImagePixels = DefaultMaxImagePixels
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	store, err := NewStore(cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	return &Server{
		startTime:      time.Now(),
		version:        cfg.Version,
		store:          store,
		maxImageBytes:  cfg.MaxImageBytes,
		maxImagePixels: cfg.MaxImagePixels,
		logger:         cfg.Logger,
	}, nil
}

// GetHealth implements the health check endpoint
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	uptime := int(time.Since(s.startTime).Seconds())
	stored := s.store.Len()

	response := api.HealthResponse{
		Status:    api.Healthy,
		Timestamp: time.Now(),
		Uptime:    &uptime,
		Version:   &s.version,
		Stored:    &stored,
	}

	s.writeJSON(w, http.StatusOK, response)
}

// CreateExtraction runs an extraction on the image in the request body and
// stores the result for download
func (s *Server) CreateExtraction(w http.ResponseWriter, r *http.Request, params api.ExtractParams) {
	requestID := generateRequestID()
	w.Header().Set("X-Request-ID", requestID)

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxImageBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, http.StatusRequestEntityTooLarge, "IMAGE_TOO_LARGE",
				fmt.Sprintf("Image exceeds %d bytes", tooLarge.Limit), &requestID, nil)
			return
		}
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_REQUEST",
			"Failed to read request body", &requestID, nil)
		return
	}

	src, format, err := tile.DecodeImageLimited(data, s.maxImagePixels)
	if err != nil {
		var dimErr *tile.DimensionError
		if errors.As(err, &dimErr) {
			s.writeErrorResponse(w, http.StatusRequestEntityTooLarge, "IMAGE_TOO_LARGE",
				dimErr.Error(), &requestID, nil)
			return
		}
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_IMAGE",
			err.Error(), &requestID, nil)
		return
	}

	opts := extractorOptions(src, params)
	events, err := extractor.Start(r.Context(), opts)
	if err != nil {
		s.handleExtractionError(w, err, &requestID)
		return
	}

	res, err := await(r.Context(), events)
	if err != nil {
		s.handleExtractionError(w, err, &requestID)
		return
	}

	entry := s.store.Add(res)
	s.logger.Printf("Extraction %s: %s image %dx%d, %d tiles in %dms",
		entry.ID, format, src.Width, src.Height, len(res.Tiles), res.ElapsedMs())

	w.Header().Set("Location", "/api/v1/extractions/"+entry.ID)
	s.writeJSON(w, http.StatusCreated, entry.Extraction())
}

// GetExtraction returns the summary and map of a stored extraction
func (s *Server) GetExtraction(w http.ResponseWriter, r *http.Request, id string) {
	entry, ok := s.lookup(w, id)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, entry.Extraction())
}

// GetExtractionTileset returns the packed tileset image
func (s *Server) GetExtractionTileset(w http.ResponseWriter, r *http.Request, id string, params api.GetExtractionTilesetParams) {
	entry, ok := s.lookup(w, id)
	if !ok {
		return
	}

	columns := 0
	if params.Columns != nil {
		columns = *params.Columns
	}
	if columns < 0 {
		s.writeValidationErrorResponse(w, "columns", "columns must not be negative", nil)
		return
	}

	data, err := tile.EncodePNG(export.PackTileset(entry.Result, columns))
	if err != nil {
		s.handleExtractionError(w, err, nil)
		return
	}
	s.writeBytes(w, "image/png", data)
}

// GetExtractionMap returns the map document
func (s *Server) GetExtractionMap(w http.ResponseWriter, r *http.Request, id string) {
	entry, ok := s.lookup(w, id)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteMapJSON(&buf, entry.Result); err != nil {
		s.handleExtractionError(w, err, nil)
		return
	}
	s.writeBytes(w, "application/json", buf.Bytes())
}

// GetExtractionTMX returns the result as a Tiled map
func (s *Server) GetExtractionTMX(w http.ResponseWriter, r *http.Request, id string, params api.GetExtractionTMXParams) {
	entry, ok := s.lookup(w, id)
	if !ok {
		return
	}

	opts := export.TMXOptions{Encoding: export.EncodingCSV}
	if params.Encoding != nil {
		opts.Encoding = *params.Encoding
	}
	if params.Compression != nil {
		opts.Compression = *params.Compression
	}
	if params.Columns != nil {
		opts.Columns = *params.Columns
	}
	if err := opts.Validate(); err != nil {
		s.writeValidationErrorResponse(w, "encoding", err.Error(), nil)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteTMX(&buf, entry.Result, opts); err != nil {
		s.handleExtractionError(w, err, nil)
		return
	}
	s.writeBytes(w, "application/xml", buf.Bytes())
}

// GetExtractionTilemap returns the source image rebuilt from the tiles
func (s *Server) GetExtractionTilemap(w http.ResponseWriter, r *http.Request, id string) {
	entry, ok := s.lookup(w, id)
	if !ok {
		return
	}

	data, err := tile.EncodePNG(export.RenderTilemap(entry.Result))
	if err != nil {
		s.handleExtractionError(w, err, nil)
		return
	}
	s.writeBytes(w, "image/png", data)
}

// HandleParamError reports a query or path parameter that failed to bind
func (s *Server) HandleParamError(w http.ResponseWriter, r *http.Request, err error) {
	var required *api.RequiredParamError
	var invalid *api.InvalidParamFormatError
	switch {
	case errors.As(err, &required):
		s.writeValidationErrorResponse(w, required.ParamName, err.Error(), nil)
	case errors.As(err, &invalid):
		s.writeValidationErrorResponse(w, invalid.ParamName, err.Error(), nil)
	default:
		s.writeValidationErrorResponse(w, "request", err.Error(), nil)
	}
}

func (s *Server) lookup(w http.ResponseWriter, id string) (*Entry, bool) {
	entry, ok := s.store.Get(id)
	if !ok {
		s.writeErrorResponse(w, http.StatusNotFound, "NOT_FOUND",
			fmt.Sprintf("Extraction %s not found", id), nil, nil)
		return nil, false
	}
	return entry, true
}

// extractorOptions converts API parameters to extractor options
func extractorOptions(src tile.Buffer, params api.ExtractParams) *extractor.Options {
	opts := &extractor.Options{
		Source:     src,
		TileWidth:  params.TileWidth,
		TileHeight: params.TileHeight,
	}
	if params.Tolerance != nil {
		opts.Tolerance = *params.Tolerance
	}
	if params.Flip != nil {
		opts.AllowFlipping = *params.Flip
	}
	return opts
}

// await collects the terminal event of a background extraction
func await(ctx context.Context, events <-chan extractor.Event) (*extractor.Result, error) {
	for e := range events {
		switch e.Kind {
		case extractor.EventResult:
			return e.Result, nil
		case extractor.EventFailed:
			return nil, e.Err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, errors.New("extraction ended without a result")
}

// handleExtractionError handles errors from the extraction process
func (s *Server) handleExtractionError(w http.ResponseWriter, err error, requestID *string) {
	var validationErr *extractor.ValidationError
	if errors.As(err, &validationErr) {
		s.writeValidationErrorResponse(w, validationErr.Field, validationErr.Error(), requestID)
		return
	}

	var execErr *extractor.ExecutionError
	if errors.As(err, &execErr) {
		s.logger.Printf("Extraction fault: %v", execErr)
		s.writeErrorResponse(w, http.StatusInternalServerError, "EXTRACTION_FAILED",
			execErr.Error(), requestID, nil)
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		// the timeout middleware writes the 504 once the handler returns
		s.logger.Printf("Extraction %s timed out", *requestID)
		return
	}
	if errors.Is(err, context.Canceled) {
		// client went away, nobody reads the response
		return
	}

	s.logger.Printf("Internal error: %v", err)
	s.writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR",
		"Internal server error", requestID, nil)
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("Error encoding response: %v", err)
	}
}

func (s *Server) writeBytes(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(data); err != nil {
		s.logger.Printf("Error writing response: %v", err)
	}
}

// writeErrorResponse writes a standard error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string, requestID *string, details map[string]interface{}) {
	response := api.ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestId: requestID,
	}

	if details != nil {
		response.Details = &details
	}

	s.writeJSON(w, statusCode, response)
}

// writeValidationErrorResponse writes a validation error response
func (s *Server) writeValidationErrorResponse(w http.ResponseWriter, field, message string, requestID *string) {
	response := api.ValidationErrorResponse{
		Error:     api.VALIDATIONERROR,
		Message:   message,
		RequestId: requestID,
		ValidationErrors: []api.ValidationError{
			{
				Field:   field,
				Message: message,
			},
		},
	}

	s.writeJSON(w, http.StatusBadRequest, response)
}

// generateRequestID generates a unique request ID
func generateRequestID() string {
	return "req_" + ulid.Make().String()
}
