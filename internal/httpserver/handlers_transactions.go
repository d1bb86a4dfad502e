package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/TambongStercy/SBC-MS-sub012/internal/apperrors"
	"github.com/TambongStercy/SBC-MS-sub012/internal/ledger"
)

// transactionHistory handles GET /api/transactions/history: the caller's own
// ledger entries, optionally filtered by type/status, paginated (§6).
func (h *handlers) transactionHistory(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeErr(w, apperrors.New(apperrors.ErrCodeMissingToken, "missing bearer token"))
		return
	}

	q := r.URL.Query()
	page := atoiDefault(q.Get("page"), 1)
	limit := atoiDefault(q.Get("limit"), 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}

	filter := ledger.Filter{
		UserID: claims.UserID,
		Type:   ledger.TransactionType(q.Get("type")),
		Status: ledger.TransactionStatus(q.Get("status")),
	}

	items, err := h.deps.Ledger.Find(r.Context(), filter, ledger.Pagination{Page: page, Limit: limit})
	if err != nil {
		writeErr(w, domainError(err))
		return
	}
	total, err := h.deps.Ledger.Count(r.Context(), filter)
	if err != nil {
		writeErr(w, domainError(err))
		return
	}

	writePaginated(w, "", items, page, limit, total)
}

// transactionByID handles GET /api/transactions/{id} (owner-only).
func (h *handlers) transactionByID(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeErr(w, apperrors.New(apperrors.ErrCodeMissingToken, "missing bearer token"))
		return
	}

	id := chi.URLParam(r, "id")
	tx, err := h.deps.Ledger.FindByID(r.Context(), id)
	if err != nil {
		writeErr(w, domainError(err))
		return
	}
	if tx.UserID != claims.UserID && claims.Role != "admin" {
		writeErr(w, apperrors.New(apperrors.ErrCodeNotOwner, "not the owner of this transaction"))
		return
	}

	writeOK(w, http.StatusOK, "", tx)
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
