package httpserver

import (
	"net/http"

	"github.com/TambongStercy/SBC-MS-sub012/internal/apperrors"
)

type activationTopUpRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// activationTransfer handles POST /api/activation-balance/transfer: moves
// funds from the caller's own spendable balance into their own activation
// pool (§4.8 TopUp).
func (h *handlers) activationTransfer(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeErr(w, apperrors.New(apperrors.ErrCodeMissingToken, "missing bearer token"))
		return
	}

	var req activationTopUpRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeErr(w, apperrors.New(apperrors.ErrCodeInvalidField, "malformed request body"))
		return
	}

	tx, err := h.deps.Activation.TopUp(r.Context(), claims.UserID, req.Amount, req.Currency)
	if err != nil {
		writeErr(w, domainError(err))
		return
	}
	writeOK(w, http.StatusCreated, "activation balance topped up", tx)
}

type activationTransferToUserRequest struct {
	RecipientUserID string `json:"recipientUserId"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

// activationTransferToUser handles POST
// /api/activation-balance/transfer-to-user: a peer-to-peer activation
// transfer (§4.8 TransferToUser).
func (h *handlers) activationTransferToUser(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeErr(w, apperrors.New(apperrors.ErrCodeMissingToken, "missing bearer token"))
		return
	}

	var req activationTransferToUserRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeErr(w, apperrors.New(apperrors.ErrCodeInvalidField, "malformed request body"))
		return
	}

	tx, err := h.deps.Activation.TransferToUser(r.Context(), claims.UserID, req.RecipientUserID, req.Amount, req.Currency)
	if err != nil {
		writeErr(w, domainError(err))
		return
	}
	writeOK(w, http.StatusCreated, "activation balance transferred", tx)
}

type activationSponsorRequest struct {
	BeneficiaryUserID string `json:"beneficiaryUserId"`
	SKU               string `json:"sku"`
	Currency          string `json:"currency"`
}

// activationSponsor handles POST /api/activation-balance/sponsor: the caller
// pays for a beneficiary's full activation out of their own activation
// balance (§4.8 SponsorActivation).
func (h *handlers) activationSponsor(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeErr(w, apperrors.New(apperrors.ErrCodeMissingToken, "missing bearer token"))
		return
	}

	var req activationSponsorRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeErr(w, apperrors.New(apperrors.ErrCodeInvalidField, "malformed request body"))
		return
	}

	tx, err := h.deps.Activation.SponsorActivation(r.Context(), claims.UserID, req.BeneficiaryUserID, req.SKU, req.Currency)
	if err != nil {
		writeErr(w, domainError(err))
		return
	}
	writeOK(w, http.StatusCreated, "activation sponsored", tx)
}
