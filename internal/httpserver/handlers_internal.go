package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TambongStercy/SBC-MS-sub012/internal/apperrors"
	"github.com/TambongStercy/SBC-MS-sub012/internal/ledger"
)

type internalDepositRequest struct {
	UserID      string `json:"userId"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// internalDeposit handles POST /api/internal/deposit: a service-to-service
// credit (commissions, refunds) authenticated by shared secret, not user JWT (§6).
func (h *handlers) internalDeposit(w http.ResponseWriter, r *http.Request) {
	var req internalDepositRequest
	if err := decodeJSON(r.Body, &req); err != nil || req.UserID == "" || req.Amount <= 0 {
		writeErr(w, apperrors.New(apperrors.ErrCodeInvalidField, "userId and a positive amount are required"))
		return
	}

	txType := ledger.TransactionType(req.Type)
	if txType == "" {
		txType = ledger.TypeDeposit
	}

	isFiat := req.Currency != "USD"
	deltaBalance, deltaUSD := int64(0), int64(0)
	if isFiat {
		deltaBalance = req.Amount
	} else {
		deltaUSD = req.Amount
	}
	if _, err := h.deps.Balances.Adjust(r.Context(), req.UserID, deltaBalance, deltaUSD, 0); err != nil {
		writeErr(w, domainError(err))
		return
	}

	tx, err := h.deps.Ledger.Append(r.Context(), &ledger.Transaction{
		UserID: req.UserID, Type: txType, Amount: req.Amount, Currency: req.Currency,
		Status: ledger.StatusCompleted, Description: req.Description,
	})
	if err != nil {
		writeErr(w, domainError(err))
		return
	}
	writeOK(w, http.StatusCreated, "deposit recorded", tx)
}

type internalWithdrawalRequest struct {
	UserID      string `json:"userId"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
}

// internalWithdrawal handles POST /api/internal/withdrawal: a
// service-to-service debit, bypassing the OTP/admin-approval flow reserved
// for user-initiated payouts (§6).
func (h *handlers) internalWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req internalWithdrawalRequest
	if err := decodeJSON(r.Body, &req); err != nil || req.UserID == "" || req.Amount <= 0 {
		writeErr(w, apperrors.New(apperrors.ErrCodeInvalidField, "userId and a positive amount are required"))
		return
	}

	isFiat := req.Currency != "USD"
	deltaBalance, deltaUSD := int64(0), int64(0)
	if isFiat {
		deltaBalance = -req.Amount
	} else {
		deltaUSD = -req.Amount
	}
	if _, err := h.deps.Balances.Adjust(r.Context(), req.UserID, deltaBalance, deltaUSD, 0); err != nil {
		writeErr(w, domainError(err))
		return
	}

	tx, err := h.deps.Ledger.Append(r.Context(), &ledger.Transaction{
		UserID: req.UserID, Type: ledger.TypeWithdrawal, Amount: req.Amount, Currency: req.Currency,
		Status: ledger.StatusCompleted, Description: req.Description,
	})
	if err != nil {
		writeErr(w, domainError(err))
		return
	}
	writeOK(w, http.StatusCreated, "withdrawal recorded", tx)
}

type internalConversionRequest struct {
	UserID       string `json:"userId"`
	FromAmount   int64  `json:"fromAmount"`
	FromCurrency string `json:"fromCurrency"`
	ToAmount     int64  `json:"toAmount"`
	ToCurrency   string `json:"toCurrency"`
	Description  string `json:"description"`
}

// internalConversion handles POST /api/internal/conversion: records a
// cross-currency conversion already settled by the caller; this engine only
// books the C1 entry and moves the two legs of C2 (§6).
func (h *handlers) internalConversion(w http.ResponseWriter, r *http.Request) {
	var req internalConversionRequest
	if err := decodeJSON(r.Body, &req); err != nil || req.UserID == "" || req.FromAmount <= 0 || req.ToAmount <= 0 {
		writeErr(w, apperrors.New(apperrors.ErrCodeInvalidField, "userId, fromAmount and toAmount are required"))
		return
	}

	fromIsFiat := req.FromCurrency != "USD"
	toIsFiat := req.ToCurrency != "USD"

	deltaBalance, deltaUSD := int64(0), int64(0)
	if fromIsFiat {
		deltaBalance -= req.FromAmount
	} else {
		deltaUSD -= req.FromAmount
	}
	if toIsFiat {
		deltaBalance += req.ToAmount
	} else {
		deltaUSD += req.ToAmount
	}
	if _, err := h.deps.Balances.Adjust(r.Context(), req.UserID, deltaBalance, deltaUSD, 0); err != nil {
		writeErr(w, domainError(err))
		return
	}

	tx, err := h.deps.Ledger.Append(r.Context(), &ledger.Transaction{
		UserID: req.UserID, Type: ledger.TypeConversion, Amount: req.ToAmount, Currency: req.ToCurrency,
		Status: ledger.StatusCompleted, Description: req.Description,
		Metadata: map[string]string{
			"fromAmount": itoa64(req.FromAmount), "fromCurrency": req.FromCurrency,
		},
	})
	if err != nil {
		writeErr(w, domainError(err))
		return
	}
	writeOK(w, http.StatusCreated, "conversion recorded", tx)
}

// internalHasPendingTransactions handles GET
// /api/internal/user/{id}/has-pending-transactions: the conversion gate (§6)
// callers check before allowing a user to request a currency conversion.
func (h *handlers) internalHasPendingTransactions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	pending, err := h.deps.Balances.HasPendingBlockingTransactions(r.Context(), userID, []ledger.TransactionType{
		ledger.TypeWithdrawal, ledger.TypeConversion,
	})
	if err != nil {
		writeErr(w, domainError(err))
		return
	}
	writeOK(w, http.StatusOK, "", map[string]bool{"hasPendingTransactions": pending})
}
