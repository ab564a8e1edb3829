package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /health)
	GetHealth(w http.ResponseWriter, r *http.Request)
	// (POST /extract)
	CreateExtraction(w http.ResponseWriter, r *http.Request, params ExtractParams)
	// (GET /extractions/{id})
	GetExtraction(w http.ResponseWriter, r *http.Request, id string)
	// (GET /extractions/{id}/tileset.png)
	GetExtractionTileset(w http.ResponseWriter, r *http.Request, id string, params GetExtractionTilesetParams)
	// (GET /extractions/{id}/map.json)
	GetExtractionMap(w http.ResponseWriter, r *http.Request, id string)
	// (GET /extractions/{id}/tiled.tmx)
	GetExtractionTMX(w http.ResponseWriter, r *http.Request, id string, params GetExtractionTMXParams)
	// (GET /extractions/{id}/tilemap.png)
	GetExtractionTilemap(w http.ResponseWriter, r *http.Request, id string)
}

// MiddlewareFunc wraps a single handler
type MiddlewareFunc func(http.Handler) http.Handler

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, h http.HandlerFunc) {
	var handler http.Handler = h
	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}
	handler.ServeHTTP(w, r)
}

// GetHealth operation middleware
func (siw *ServerInterfaceWrapper) GetHealth(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetHealth)
}

// CreateExtraction operation middleware
func (siw *ServerInterfaceWrapper) CreateExtraction(w http.ResponseWriter, r *http.Request) {
	params, err := BindExtractParams(r)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.CreateExtraction(w, r, params)
	})
}

// GetExtraction operation middleware
func (siw *ServerInterfaceWrapper) GetExtraction(w http.ResponseWriter, r *http.Request) {
	id, err := bindID(r)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetExtraction(w, r, id)
	})
}

// GetExtractionTileset operation middleware
func (siw *ServerInterfaceWrapper) GetExtractionTileset(w http.ResponseWriter, r *http.Request) {
	id, err := bindID(r)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}

	var params GetExtractionTilesetParams
	if err := bindQuery(r, "columns", false, &params.Columns); err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetExtractionTileset(w, r, id, params)
	})
}

// GetExtractionMap operation middleware
func (siw *ServerInterfaceWrapper) GetExtractionMap(w http.ResponseWriter, r *http.Request) {
	id, err := bindID(r)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetExtractionMap(w, r, id)
	})
}

// GetExtractionTMX operation middleware
func (siw *ServerInterfaceWrapper) GetExtractionTMX(w http.ResponseWriter, r *http.Request) {
	id, err := bindID(r)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}

	var params GetExtractionTMXParams
	if err := bindQuery(r, "columns", false, &params.Columns); err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}
	if err := bindQuery(r, "encoding", false, &params.Encoding); err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}
	if err := bindQuery(r, "compression", false, &params.Compression); err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetExtractionTMX(w, r, id, params)
	})
}

// GetExtractionTilemap operation middleware
func (siw *ServerInterfaceWrapper) GetExtractionTilemap(w http.ResponseWriter, r *http.Request) {
	id, err := bindID(r)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, err)
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetExtractionTilemap(w, r, id)
	})
}

// BindExtractParams reads the extraction parameters from the query string
func BindExtractParams(r *http.Request) (ExtractParams, error) {
	var params ExtractParams

	if err := bindQuery(r, "tile_width", true, &params.TileWidth); err != nil {
		return params, err
	}
	if err := bindQuery(r, "tile_height", true, &params.TileHeight); err != nil {
		return params, err
	}
	if err := bindQuery(r, "tolerance", false, &params.Tolerance); err != nil {
		return params, err
	}
	if err := bindQuery(r, "flip", false, &params.Flip); err != nil {
		return params, err
	}

	return params, nil
}

func bindQuery(r *http.Request, name string, required bool, dest interface{}) error {
	query := r.URL.Query()
	if required && query.Get(name) == "" {
		return &RequiredParamError{ParamName: name}
	}
	if err := runtime.BindQueryParameter("form", true, required, name, query, dest); err != nil {
		return &InvalidParamFormatError{ParamName: name, Err: err}
	}
	return nil
}

func bindID(r *http.Request) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", &InvalidParamFormatError{ParamName: "id", Err: err}
	}
	return id, nil
}

// RequiredParamError reports a missing required parameter
type RequiredParamError struct {
	ParamName string
}

func (e *RequiredParamError) Error() string {
	return fmt.Sprintf("Query argument %s is required, but not found", e.ParamName)
}

// InvalidParamFormatError reports a parameter that could not be parsed
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// ChiServerOptions configures HandlerWithOptions
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// Handler creates http.Handler with routing matching the service contract.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

// HandlerWithOptions creates http.Handler with additional options
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter

	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/health", wrapper.GetHealth)
	})
	r.Group(func(r chi.Router) {
		r.Post(options.BaseURL+"/extract", wrapper.CreateExtraction)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/extractions/{id}", wrapper.GetExtraction)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/extractions/{id}/tileset.png", wrapper.GetExtractionTileset)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/extractions/{id}/map.json", wrapper.GetExtractionMap)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/extractions/{id}/tiled.tmx", wrapper.GetExtractionTMX)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/extractions/{id}/tilemap.png", wrapper.GetExtractionTilemap)
	})

	return r
}
