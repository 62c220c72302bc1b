package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/nilslice/datadictd/internal/ddserr"
)

// errorTriple is the {code, status, message} shape every 4xx/5xx
// response carries (§6).
type errorTriple struct {
	Code    int    `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError maps err through the shared taxonomy and writes the error triple.
func writeError(w http.ResponseWriter, err error) {
	code, status, message := ddserr.HTTPStatus(err)
	writeJSON(w, code, errorTriple{Code: code, Status: status, Message: message})
}

func writeErrorStatus(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorTriple{Code: code, Status: http.StatusText(code), Message: message})
}
