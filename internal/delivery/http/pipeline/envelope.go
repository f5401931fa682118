// Package pipeline implements C10, the per-request chain spec.md §4.10
// lays out: response envelope, router, param extraction, login
// capture, session/role gate, executor. Each stage is a plain function
// over a shared *requestState so it stays independently testable, the
// way the teacher's handlers separate decode/validate/call/respond.
package pipeline

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/waveless-run/waveless/internal/corerr"
	"github.com/waveless-run/waveless/internal/domain"
)

// writeEnvelope serialises an ExecuteOutput or maps an error to the
// exact JSON shapes spec.md §4.10 layer 1 specifies: Expected errors
// surface their message and status verbatim, anything else becomes a
// generic 500 with an "Unexpected error: …" message.
func writeEnvelope(w http.ResponseWriter, cacheTime int64, output domain.ExecuteOutput, err error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", cacheTime))

	if err != nil {
		status := corerr.StatusOf(err)
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"error": corerr.ClientMessage(err)})
		return
	}

	for k, v := range output.Headers {
		w.Header().Set(k, v)
	}

	if output.Raw != nil {
		w.WriteHeader(http.StatusOK)
		w.Write(output.Raw)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(output.JSON)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
