package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TambongStercy/SBC-MS-sub012/internal/apperrors"
	"github.com/TambongStercy/SBC-MS-sub012/internal/withdrawal"
)

type initiateWithdrawalRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Type     string `json:"type"`
}

// initiateWithdrawal handles POST /api/transactions/withdrawal/initiate (§4.6).
func (h *handlers) initiateWithdrawal(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeErr(w, apperrors.New(apperrors.ErrCodeMissingToken, "missing bearer token"))
		return
	}

	var req initiateWithdrawalRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeErr(w, apperrors.New(apperrors.ErrCodeInvalidField, "malformed request body"))
		return
	}

	tx, _, err := h.deps.Withdrawals.Initiate(r.Context(), withdrawal.InitiateRequest{
		UserID: claims.UserID, Amount: req.Amount, Currency: req.Currency, Type: withdrawal.Type(req.Type),
	})
	if err != nil {
		writeErr(w, domainError(err))
		return
	}

	writeOK(w, http.StatusCreated, "OTP sent, verify to continue", map[string]interface{}{
		"transactionId": tx.TransactionID,
		"status":        tx.Status,
	})
}

// estimateWithdrawal handles GET /api/transactions/withdrawal/estimate: a fee
// preview with no side effects (§4.6 Estimate).
func (h *handlers) estimateWithdrawal(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount := int64(atoiDefault(q.Get("amount"), 0))
	if amount <= 0 {
		writeErr(w, apperrors.New(apperrors.ErrCodeInvalidAmount, "amount must be positive"))
		return
	}

	quote := h.deps.Withdrawals.Estimate(amount, withdrawal.Type(q.Get("type")))
	writeOK(w, http.StatusOK, "", quote)
}

type verifyWithdrawalRequest struct {
	TransactionID string `json:"transactionId"`
	Code          string `json:"code"`
}

// verifyWithdrawal handles POST /api/transactions/withdrawal/verify (§4.6 VerifyOTP).
func (h *handlers) verifyWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req verifyWithdrawalRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeErr(w, apperrors.New(apperrors.ErrCodeInvalidField, "malformed request body"))
		return
	}

	tx, err := h.deps.Withdrawals.VerifyOTP(r.Context(), req.TransactionID, req.Code)
	if err != nil {
		writeErr(w, domainError(err))
		return
	}
	writeOK(w, http.StatusOK, "awaiting admin approval", tx)
}

// cancelWithdrawal handles DELETE /api/transactions/withdrawal/{id}/cancel
// (§4.6 UserCancel, owner-only).
func (h *handlers) cancelWithdrawal(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeErr(w, apperrors.New(apperrors.ErrCodeMissingToken, "missing bearer token"))
		return
	}

	id := chi.URLParam(r, "id")
	existing, err := h.deps.Ledger.FindByID(r.Context(), id)
	if err != nil {
		writeErr(w, domainError(err))
		return
	}
	if existing.UserID != claims.UserID {
		writeErr(w, apperrors.New(apperrors.ErrCodeNotOwner, "not the owner of this withdrawal"))
		return
	}

	tx, err := h.deps.Withdrawals.UserCancel(r.Context(), id)
	if err != nil {
		writeErr(w, domainError(err))
		return
	}
	writeOK(w, http.StatusOK, "withdrawal cancelled", tx)
}
