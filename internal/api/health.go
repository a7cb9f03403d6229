package api

import (
	"net/http"

	"github.com/salmanfarse/folio/internal/log"
)

// health answers liveness probes.
func health(logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	}
}
