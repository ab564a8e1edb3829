// Package api defines the request and response types of the tilex HTTP
// service and mounts its routes on a chi router.
package api

import (
	"time"

	"github.com/kiesman99/tilex/pkg/tile"
)

// Defines values for HealthResponseStatus.
const (
	Healthy   HealthResponseStatus = "healthy"
	Unhealthy HealthResponseStatus = "unhealthy"
)

// Defines values for ValidationErrorResponseError.
const (
	VALIDATIONERROR ValidationErrorResponseError = "VALIDATION_ERROR"
)

// Stream message actions
const (
	ActionStart    = "extract-start"
	ActionProgress = "extract-progress"
	ActionResult   = "extract-result"
	ActionError    = "extract-error"
)

// HealthResponseStatus defines model for HealthResponse.Status.
type HealthResponseStatus string

// HealthResponse defines model for HealthResponse.
type HealthResponse struct {
	Status    HealthResponseStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`
	Uptime    *int                 `json:"uptime,omitempty"`
	Version   *string              `json:"version,omitempty"`
	// Stored is the number of extraction results currently held in memory
	Stored *int `json:"stored,omitempty"`
}

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Details   *map[string]interface{} `json:"details,omitempty"`
	Error     string                  `json:"error"`
	Message   string                  `json:"message"`
	RequestId *string                 `json:"request_id,omitempty"`
}

// ValidationErrorResponseError defines model for ValidationErrorResponse.Error.
type ValidationErrorResponseError string

// ValidationError is one rejected request field
type ValidationError struct {
	Code    *string `json:"code,omitempty"`
	Field   string  `json:"field"`
	Message string  `json:"message"`
}

// ValidationErrorResponse defines model for ValidationErrorResponse.
type ValidationErrorResponse struct {
	Error            ValidationErrorResponseError `json:"error"`
	Message          string                       `json:"message"`
	RequestId        *string                      `json:"request_id,omitempty"`
	ValidationErrors []ValidationError            `json:"validation_errors"`
}

// Extraction defines model for Extraction.
type Extraction struct {
	Id         string      `json:"id"`
	NumTiles   int         `json:"num_tiles"`
	NumCols    int         `json:"num_cols"`
	NumRows    int         `json:"num_rows"`
	TileWidth  int         `json:"tile_width"`
	TileHeight int         `json:"tile_height"`
	ElapsedMs  int64       `json:"elapsed_ms"`
	CreatedAt  time.Time   `json:"created_at"`
	Map        []tile.Cell `json:"map"`
}

// StreamMessage is one notification sent over the extraction WebSocket
type StreamMessage struct {
	Action     string      `json:"action"`
	Progress   *float64    `json:"progress,omitempty"`
	Message    *string     `json:"message,omitempty"`
	Extraction *Extraction `json:"extraction,omitempty"`
}

// ExtractParams defines parameters for CreateExtraction and StreamExtraction.
type ExtractParams struct {
	TileWidth  int   `form:"tile_width" json:"tile_width"`
	TileHeight int   `form:"tile_height" json:"tile_height"`
	Tolerance  *int  `form:"tolerance,omitempty" json:"tolerance,omitempty"`
	Flip       *bool `form:"flip,omitempty" json:"flip,omitempty"`
}

// GetExtractionTilesetParams defines parameters for GetExtractionTileset.
type GetExtractionTilesetParams struct {
	Columns *int `form:"columns,omitempty" json:"columns,omitempty"`
}

// GetExtractionTMXParams defines parameters for GetExtractionTMX.
type GetExtractionTMXParams struct {
	Columns     *int    `form:"columns,omitempty" json:"columns,omitempty"`
	Encoding    *string `form:"encoding,omitempty" json:"encoding,omitempty"`
	Compression *string `form:"compression,omitempty" json:"compression,omitempty"`
}
