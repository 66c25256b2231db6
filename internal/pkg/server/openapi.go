package server

import (
	_ "embed"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var apiDescription []byte

// LoadAPIDescription parses and validates the embedded OpenAPI document.
func LoadAPIDescription() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(apiDescription)
	if err != nil {
		return nil, fmt.Errorf("server: load api description: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("server: invalid api description: %w", err)
	}
	return doc, nil
}

func (s *Server) getAPIDescription(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.apiDoc)
}
