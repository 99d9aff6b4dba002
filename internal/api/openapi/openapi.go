// Package openapi serve o documento OpenAPI da API, consumido pela Swagger UI em /swagger/.
package openapi

import (
	_ "embed"
	"net/http"
)

//go:embed openapi.json
var document []byte

// Document devolve o documento OpenAPI embutido.
func Document() []byte {
	return document
}

// Handler responde GET /swagger/doc.json.
func Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(document)
}
