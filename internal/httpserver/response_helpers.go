package httpserver

import (
	"net/http"

	"github.com/TambongStercy/SBC-MS-sub012/internal/apperrors"
)

// writeOK renders a successful envelope with no pagination.
func writeOK(w http.ResponseWriter, status int, message string, data interface{}) {
	apperrors.WriteJSON(w, status, message, data, nil)
}

// writePaginated renders a successful envelope including a pagination block.
func writePaginated(w http.ResponseWriter, message string, data interface{}, page, limit, total int) {
	totalPages := (total + limit - 1) / limit
	if limit <= 0 {
		totalPages = 0
	}
	apperrors.WriteJSON(w, http.StatusOK, message, data, &apperrors.Pagination{
		Page: page, Limit: limit, Total: total, TotalPages: totalPages,
	})
}

// writeErr renders the §7 failure envelope for err.
func writeErr(w http.ResponseWriter, err error) {
	apperrors.WriteError(w, err)
}
