package handler

import (
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/gateflow/gateflow/internal/openapi"
)

// OpenAPIHandler serves the generated API document. The surface is fixed at
// build time, so the document is generated once and cached.
type OpenAPIHandler struct {
	baseURL string
	version string

	once sync.Once
	doc  *openapi3.T
}

func NewOpenAPIHandler(baseURL, version string) *OpenAPIHandler {
	return &OpenAPIHandler{baseURL: baseURL, version: version}
}

// ServeSpec returns the OpenAPI 3.1 document for the v1 API.
// GET /api/v1/openapi.json
func (h *OpenAPIHandler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	h.once.Do(func() {
		h.doc = openapi.Generate(h.baseURL, h.version)
	})
	writeJSON(w, http.StatusOK, h.doc)
}
