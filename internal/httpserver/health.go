package httpserver

import "net/http"

// health is a liveness probe: no dependency checks, just confirms the
// process is accepting connections (§6).
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, "ok", map[string]string{"status": "ok"})
}
