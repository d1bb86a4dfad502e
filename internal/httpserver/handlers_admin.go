package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TambongStercy/SBC-MS-sub012/internal/apperrors"
	"github.com/TambongStercy/SBC-MS-sub012/internal/ledger"
)

type adminApproveRequest struct {
	Note string `json:"note"`
}

// adminApproveWithdrawal handles POST /api/admin/withdrawals/{id}/approve (§4.6 AdminApprove).
func (h *handlers) adminApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	var req adminApproveRequest
	_ = decodeJSON(r.Body, &req)

	id := chi.URLParam(r, "id")
	tx, err := h.deps.Withdrawals.AdminApprove(r.Context(), id, claims.UserID, req.Note)
	if err != nil {
		writeErr(w, domainError(err))
		return
	}
	writeOK(w, http.StatusOK, "withdrawal approved", tx)
}

type adminRejectRequest struct {
	Reason string `json:"reason"`
}

// adminRejectWithdrawal handles POST /api/admin/withdrawals/{id}/reject (§4.6
// AdminReject; reason is required).
func (h *handlers) adminRejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	var req adminRejectRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeErr(w, apperrors.New(apperrors.ErrCodeInvalidField, "malformed request body"))
		return
	}

	id := chi.URLParam(r, "id")
	tx, err := h.deps.Withdrawals.AdminReject(r.Context(), id, claims.UserID, req.Reason)
	if err != nil {
		writeErr(w, domainError(err))
		return
	}
	writeOK(w, http.StatusOK, "withdrawal rejected", tx)
}

// adminPendingWithdrawals handles GET /api/admin/withdrawals/pending: the
// admin-approval queue.
func (h *handlers) adminPendingWithdrawals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := atoiDefault(q.Get("page"), 1)
	limit := atoiDefault(q.Get("limit"), 20)

	filter := ledger.Filter{Type: ledger.TypeWithdrawal, Status: ledger.StatusPendingAdminApproval}
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

// adminValidatedWithdrawals handles GET /api/admin/withdrawals/validated: the
// history of withdrawals an admin has already acted on.
func (h *handlers) adminValidatedWithdrawals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := atoiDefault(q.Get("page"), 1)
	limit := atoiDefault(q.Get("limit"), 20)
	status := ledger.TransactionStatus(q.Get("status"))
	if status == "" {
		status = ledger.StatusCompleted
	}

	filter := ledger.Filter{Type: ledger.TypeWithdrawal, Status: status}
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

// adminGatewayBalances handles GET /api/admin/gateway-balances: live
// balances from each payment provider that exposes one (§4.3, cinetpay/nowpayments).
func (h *handlers) adminGatewayBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.deps.Gateways.GetBalances(r.Context())
	if err != nil {
		writeErr(w, domainError(err))
		return
	}
	writeOK(w, http.StatusOK, "", balances)
}

// adminProcessingStats handles GET /api/admin/transactions/processing-stats:
// a snapshot of withdrawals still stuck in "processing" for the reconciliation monitor (§4.7).
func (h *handlers) adminProcessingStats(w http.ResponseWriter, r *http.Request) {
	stuck, err := h.deps.Ledger.FindProcessingWithdrawals(r.Context(), 0)
	if err != nil {
		writeErr(w, domainError(err))
		return
	}
	totalAmount, count, err := h.deps.Ledger.Aggregate(r.Context(), ledger.Filter{Type: ledger.TypeWithdrawal, Status: ledger.StatusProcessing})
	if err != nil {
		writeErr(w, domainError(err))
		return
	}
	writeOK(w, http.StatusOK, "", map[string]interface{}{
		"stuckCount":  len(stuck),
		"stuck":       stuck,
		"totalAmount": totalAmount,
		"count":       count,
	})
}

type adminCheckAllRequest struct {
	TransactionID string `json:"transactionId"`
}

// adminCheckAllProcessing handles POST /api/admin/transactions/check-all: a
// manual C7 sweep, optionally scoped to one transactionId (§4.7).
func (h *handlers) adminCheckAllProcessing(w http.ResponseWriter, r *http.Request) {
	var req adminCheckAllRequest
	_ = decodeJSON(r.Body, &req)

	if req.TransactionID != "" {
		if err := h.deps.Reconcile.RunManualSweepOne(r.Context(), req.TransactionID); err != nil {
			writeErr(w, domainError(err))
			return
		}
		writeOK(w, http.StatusOK, "reconciliation triggered", nil)
		return
	}

	h.deps.Reconcile.RunManualSweep(r.Context())
	writeOK(w, http.StatusOK, "reconciliation sweep triggered", nil)
}
