package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/TambongStercy/SBC-MS-sub012/internal/config"
	"github.com/lib/pq"
	_ "github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	ownsDB bool // true if NewPostgresStore opened db itself (governs Close())
}

// NewPostgresStore opens a new connection pool and creates the schema if absent.
func NewPostgresStore(connectionString string, poolConfig config.PostgresPoolConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	config.ApplyPostgresPoolSettings(db, poolConfig)

	store := &PostgresStore{db: db, ownsDB: true}
	if err := store.createTables(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresStoreWithDB wraps an existing pool shared across repositories.
func NewPostgresStoreWithDB(db *sql.DB) (*PostgresStore, error) {
	store := &PostgresStore{db: db, ownsDB: false}
	if err := store.createTables(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) createTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			transaction_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			amount BIGINT NOT NULL,
			currency TEXT NOT NULL,
			fee BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			description TEXT,
			provider TEXT,
			provider_external_id TEXT,
			provider_status TEXT,
			provider_metadata JSONB,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			deleted BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_id ON transactions (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions (status)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_type_status ON transactions (type, status)`,
		`CREATE TABLE IF NOT EXISTS payment_intents (
			session_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			payment_type TEXT NOT NULL,
			requested_amount BIGINT NOT NULL,
			requested_currency TEXT NOT NULL,
			paid_amount BIGINT NOT NULL DEFAULT 0,
			paid_currency TEXT,
			gateway TEXT NOT NULL,
			status TEXT NOT NULL,
			provider_ref TEXT,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_intents_gateway_ref ON payment_intents (gateway, provider_ref) WHERE provider_ref IS NOT NULL AND provider_ref <> ''`,
		`CREATE TABLE IF NOT EXISTS user_balances (
			user_id TEXT PRIMARY KEY,
			balance BIGINT NOT NULL DEFAULT 0,
			usd_balance BIGINT NOT NULL DEFAULT 0,
			activation_balance BIGINT NOT NULL DEFAULT 0,
			daily_withdrawal_total BIGINT NOT NULL DEFAULT 0,
			daily_withdrawal_count INT NOT NULL DEFAULT 0,
			daily_window_start TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS idempotency_keys (
			key TEXT PRIMARY KEY,
			expires_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func marshalJSONB(v interface{}) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

func (s *PostgresStore) AppendTransaction(ctx context.Context, tx *Transaction) error {
	providerMeta, err := marshalJSONB(tx.PaymentProvider.Metadata)
	if err != nil {
		return err
	}
	meta, err := marshalJSONB(tx.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions (transaction_id, user_id, type, amount, currency, fee, status,
			description, provider, provider_external_id, provider_status, provider_metadata,
			metadata, created_at, updated_at, deleted)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		tx.TransactionID, tx.UserID, string(tx.Type), tx.Amount, tx.Currency, tx.Fee, string(tx.Status),
		tx.Description, tx.PaymentProvider.Provider, tx.PaymentProvider.ExternalTransactionID,
		tx.PaymentProvider.Status, providerMeta, meta, tx.CreatedAt, tx.UpdatedAt, tx.Deleted)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrAlreadyExists
	}
	return err
}

func (s *PostgresStore) scanTransaction(row interface {
	Scan(dest ...interface{}) error
}) (*Transaction, error) {
	var tx Transaction
	var providerMeta, meta []byte
	var provider, externalID, providerStatus, description sql.NullString
	err := row.Scan(&tx.TransactionID, &tx.UserID, &tx.Type, &tx.Amount, &tx.Currency, &tx.Fee, &tx.Status,
		&description, &provider, &externalID, &providerStatus, &providerMeta,
		&meta, &tx.CreatedAt, &tx.UpdatedAt, &tx.Deleted)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	tx.Description = description.String
	tx.PaymentProvider = PaymentProviderInfo{
		Provider: provider.String, ExternalTransactionID: externalID.String, Status: providerStatus.String,
	}
	if len(providerMeta) > 0 {
		_ = json.Unmarshal(providerMeta, &tx.PaymentProvider.Metadata)
	}
	if len(meta) > 0 {
		_ = json.Unmarshal(meta, &tx.Metadata)
	}
	return &tx, nil
}

func (s *PostgresStore) FindTransactionByID(ctx context.Context, transactionID string) (*Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT transaction_id, user_id, type, amount, currency, fee, status, description,
			provider, provider_external_id, provider_status, provider_metadata, metadata,
			created_at, updated_at, deleted
		FROM transactions WHERE transaction_id = $1`, transactionID)
	return s.scanTransaction(row)
}

func buildTransactionWhere(filter TransactionFilter, startArg int) (string, []interface{}) {
	clause := ""
	args := make([]interface{}, 0)
	arg := startArg
	add := func(cond string, val interface{}) {
		if clause == "" {
			clause = "WHERE " + cond
		} else {
			clause += " AND " + cond
		}
		args = append(args, val)
		arg++
	}
	if !filter.IncludeDeleted {
		clause = "WHERE deleted = FALSE"
	}
	if filter.UserID != "" {
		add(fmt.Sprintf("user_id = $%d", arg), filter.UserID)
	}
	if filter.Type != "" {
		add(fmt.Sprintf("type = $%d", arg), string(filter.Type))
	}
	if filter.Status != "" {
		add(fmt.Sprintf("status = $%d", arg), string(filter.Status))
	}
	return clause, args
}

func (s *PostgresStore) FindTransactions(ctx context.Context, filter TransactionFilter, page Pagination) ([]*Transaction, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	where, args := buildTransactionWhere(filter, 1)
	limit := page.Limit
	if limit <= 0 {
		limit = 20
	}
	pageNum := page.Page
	if pageNum <= 0 {
		pageNum = 1
	}
	offset := (pageNum - 1) * limit

	query := fmt.Sprintf(`
		SELECT transaction_id, user_id, type, amount, currency, fee, status, description,
			provider, provider_external_id, provider_status, provider_metadata, metadata,
			created_at, updated_at, deleted
		FROM transactions %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Transaction, 0)
	for rows.Next() {
		tx, err := s.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountTransactions(ctx context.Context, filter TransactionFilter) (int, error) {
	ctx, cancel := withQueryTimeout(ctx)
	defer cancel()

	where, args := buildTransactionWhere(filter, 1)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM transactions %s`, where)
	var count int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

func (s *PostgresStore) UpdateTransactionStatus(ctx context.Context, transactionID string, newStatus TransactionStatus, providerUpdate *PaymentProviderInfo, metadataPatch map[string]string) (*Transaction, error) {
	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer txn.Rollback()

	row := txn.QueryRowContext(ctx, `
		SELECT transaction_id, user_id, type, amount, currency, fee, status, description,
			provider, provider_external_id, provider_status, provider_metadata, metadata,
			created_at, updated_at, deleted
		FROM transactions WHERE transaction_id = $1 FOR UPDATE`, transactionID)
	current, err := s.scanTransaction(row)
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, newStatus) {
		return nil, ErrInvalidTransition
	}

	if len(metadataPatch) > 0 {
		if current.Metadata == nil {
			current.Metadata = make(map[string]string, len(metadataPatch))
		}
		for k, v := range metadataPatch {
			current.Metadata[k] = v
		}
	}
	mergedMeta, _ := marshalJSONB(current.Metadata)

	now := time.Now().UTC()
	if providerUpdate != nil {
		providerMeta, _ := marshalJSONB(providerUpdate.Metadata)
		_, err = txn.ExecContext(ctx, `
			UPDATE transactions SET status=$1, provider=$2, provider_external_id=$3,
				provider_status=$4, provider_metadata=$5, metadata=$6, updated_at=$7 WHERE transaction_id=$8`,
			string(newStatus), providerUpdate.Provider, providerUpdate.ExternalTransactionID,
			providerUpdate.Status, providerMeta, mergedMeta, now, transactionID)
		current.PaymentProvider = *providerUpdate
	} else {
		_, err = txn.ExecContext(ctx, `UPDATE transactions SET status=$1, metadata=$2, updated_at=$3 WHERE transaction_id=$4`,
			string(newStatus), mergedMeta, now, transactionID)
	}
	if err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	current.Status = newStatus
	current.UpdatedAt = now
	return current, nil
}

func (s *PostgresStore) FindProcessingWithdrawals(ctx context.Context, olderThan time.Duration) ([]*Transaction, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_id, user_id, type, amount, currency, fee, status, description,
			provider, provider_external_id, provider_status, provider_metadata, metadata,
			created_at, updated_at, deleted
		FROM transactions WHERE type = $1 AND status = $2 AND updated_at < $3`,
		string(TransactionWithdrawal), string(StatusProcessing), cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Transaction, 0)
	for rows.Next() {
		tx, err := s.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AggregateTransactionSums(ctx context.Context, filter TransactionFilter) (int64, int, error) {
	where, args := buildTransactionWhere(filter, 1)
	query := fmt.Sprintf(`SELECT COALESCE(SUM(amount),0), COUNT(*) FROM transactions %s`, where)
	var total int64
	var count int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&total, &count)
	return total, count, err
}

func (s *PostgresStore) getOrInitBalanceTx(ctx context.Context, txn *sql.Tx, userID string) (*UserBalanceView, error) {
	row := txn.QueryRowContext(ctx, `
		SELECT user_id, balance, usd_balance, activation_balance, daily_withdrawal_total,
			daily_withdrawal_count, daily_window_start FROM user_balances WHERE user_id=$1 FOR UPDATE`, userID)
	var view UserBalanceView
	err := row.Scan(&view.UserID, &view.Balance, &view.USDBalance, &view.ActivationBalance,
		&view.DailyWithdrawalTotal, &view.DailyWithdrawalCount, &view.DailyWindowStart)
	if err == sql.ErrNoRows {
		now := time.Now().UTC()
		_, err = txn.ExecContext(ctx, `
			INSERT INTO user_balances (user_id, balance, usd_balance, activation_balance,
				daily_withdrawal_total, daily_withdrawal_count, daily_window_start)
			VALUES ($1,0,0,0,0,0,$2)`, userID, now)
		if err != nil {
			return nil, err
		}
		return &UserBalanceView{UserID: userID, DailyWindowStart: now}, nil
	}
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *PostgresStore) GetBalance(ctx context.Context, userID string) (*UserBalanceView, error) {
	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer txn.Rollback()
	view, err := s.getOrInitBalanceTx(ctx, txn, userID)
	if err != nil {
		return nil, err
	}
	return view, txn.Commit()
}

func (s *PostgresStore) GetBalances(ctx context.Context, userIDs []string) (map[string]*UserBalanceView, error) {
	out := make(map[string]*UserBalanceView, len(userIDs))
	for _, id := range userIDs {
		view, err := s.GetBalance(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = view
	}
	return out, nil
}

func (s *PostgresStore) Adjust(ctx context.Context, userID string, deltaBalance, deltaUSD, deltaActivation int64) (*UserBalanceView, error) {
	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer txn.Rollback()

	view, err := s.getOrInitBalanceTx(ctx, txn, userID)
	if err != nil {
		return nil, err
	}
	newBalance := view.Balance + deltaBalance
	newUSD := view.USDBalance + deltaUSD
	newActivation := view.ActivationBalance + deltaActivation
	if newBalance < 0 || newUSD < 0 || newActivation < 0 {
		return nil, ErrInsufficientFunds
	}
	_, err = txn.ExecContext(ctx, `
		UPDATE user_balances SET balance=$1, usd_balance=$2, activation_balance=$3 WHERE user_id=$4`,
		newBalance, newUSD, newActivation, userID)
	if err != nil {
		return nil, err
	}
	if err := txn.Commit(); err != nil {
		return nil, err
	}
	view.Balance, view.USDBalance, view.ActivationBalance = newBalance, newUSD, newActivation
	return view, nil
}

func (s *PostgresStore) HasPendingBlockingTransactions(ctx context.Context, userID string, types []TransactionType) (bool, error) {
	typeStrs := make([]string, len(types))
	for i, t := range types {
		typeStrs[i] = string(t)
	}
	terminal := []string{string(StatusCompleted), string(StatusFailed), string(StatusRefunded), string(StatusRejectedByAdmin), string(StatusCancelled)}
	query := `SELECT COUNT(*) FROM transactions WHERE user_id=$1 AND deleted=FALSE AND NOT (status = ANY($2))`
	args := []interface{}{userID, pq.Array(terminal)}
	if len(typeStrs) > 0 {
		query += ` AND type = ANY($3)`
		args = append(args, pq.Array(typeStrs))
	}
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *PostgresStore) RecordWithdrawal(ctx context.Context, userID string, amount int64, maxDailyAmount int64, maxDailyCount int) (bool, *UserBalanceView, error) {
	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, nil, err
	}
	defer txn.Rollback()

	view, err := s.getOrInitBalanceTx(ctx, txn, userID)
	if err != nil {
		return false, nil, err
	}
	now := time.Now().UTC()
	if now.Sub(view.DailyWindowStart) >= 24*time.Hour {
		view.DailyWithdrawalTotal, view.DailyWithdrawalCount, view.DailyWindowStart = 0, 0, now
	}
	projectedTotal := view.DailyWithdrawalTotal + amount
	projectedCount := view.DailyWithdrawalCount + 1
	within := projectedTotal <= maxDailyAmount && projectedCount <= maxDailyCount
	if within {
		view.DailyWithdrawalTotal, view.DailyWithdrawalCount = projectedTotal, projectedCount
	}
	_, err = txn.ExecContext(ctx, `
		UPDATE user_balances SET daily_withdrawal_total=$1, daily_withdrawal_count=$2, daily_window_start=$3
		WHERE user_id=$4`, view.DailyWithdrawalTotal, view.DailyWithdrawalCount, view.DailyWindowStart, userID)
	if err != nil {
		return false, nil, err
	}
	return within, view, txn.Commit()
}

func (s *PostgresStore) ReverseWithdrawal(ctx context.Context, userID string, amount int64, recordedAt time.Time) (*UserBalanceView, error) {
	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer txn.Rollback()

	view, err := s.getOrInitBalanceTx(ctx, txn, userID)
	if err != nil {
		return nil, err
	}
	if view.DailyWindowStart.After(recordedAt) {
		return view, txn.Commit()
	}
	view.DailyWithdrawalTotal -= amount
	if view.DailyWithdrawalTotal < 0 {
		view.DailyWithdrawalTotal = 0
	}
	view.DailyWithdrawalCount--
	if view.DailyWithdrawalCount < 0 {
		view.DailyWithdrawalCount = 0
	}
	_, err = txn.ExecContext(ctx, `
		UPDATE user_balances SET daily_withdrawal_total=$1, daily_withdrawal_count=$2
		WHERE user_id=$3`, view.DailyWithdrawalTotal, view.DailyWithdrawalCount, userID)
	if err != nil {
		return nil, err
	}
	return view, txn.Commit()
}

func (s *PostgresStore) CreatePaymentIntent(ctx context.Context, intent *PaymentIntent) error {
	meta, err := marshalJSONB(intent.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO payment_intents (session_id, user_id, payment_type, requested_amount,
			requested_currency, paid_amount, paid_currency, gateway, status, provider_ref,
			metadata, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		intent.SessionID, intent.UserID, intent.PaymentType, intent.RequestedAmount,
		intent.RequestedCurrency, intent.PaidAmount, intent.PaidCurrency, intent.Gateway,
		string(intent.Status), intent.ProviderRef, meta, intent.CreatedAt, intent.UpdatedAt)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrAlreadyExists
	}
	return err
}

func (s *PostgresStore) scanIntent(row interface{ Scan(dest ...interface{}) error }) (*PaymentIntent, error) {
	var intent PaymentIntent
	var meta []byte
	var paidCurrency, providerRef sql.NullString
	err := row.Scan(&intent.SessionID, &intent.UserID, &intent.PaymentType, &intent.RequestedAmount,
		&intent.RequestedCurrency, &intent.PaidAmount, &paidCurrency, &intent.Gateway, &intent.Status,
		&providerRef, &meta, &intent.CreatedAt, &intent.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	intent.PaidCurrency = paidCurrency.String
	intent.ProviderRef = providerRef.String
	if len(meta) > 0 {
		_ = json.Unmarshal(meta, &intent.Metadata)
	}
	return &intent, nil
}

func (s *PostgresStore) GetPaymentIntent(ctx context.Context, sessionID string) (*PaymentIntent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, user_id, payment_type, requested_amount, requested_currency,
			paid_amount, paid_currency, gateway, status, provider_ref, metadata, created_at, updated_at
		FROM payment_intents WHERE session_id = $1`, sessionID)
	return s.scanIntent(row)
}

func (s *PostgresStore) GetPaymentIntentByProviderRef(ctx context.Context, gateway, providerRef string) (*PaymentIntent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, user_id, payment_type, requested_amount, requested_currency,
			paid_amount, paid_currency, gateway, status, provider_ref, metadata, created_at, updated_at
		FROM payment_intents WHERE gateway = $1 AND provider_ref = $2`, gateway, providerRef)
	return s.scanIntent(row)
}

func (s *PostgresStore) UpdatePaymentIntentStatus(ctx context.Context, sessionID string, status IntentStatus, paidAmount int64, paidCurrency string) (*PaymentIntent, error) {
	now := time.Now().UTC()
	var res sql.Result
	var err error
	if paidAmount > 0 {
		res, err = s.db.ExecContext(ctx, `
			UPDATE payment_intents SET status=$1, paid_amount=$2, paid_currency=$3, updated_at=$4 WHERE session_id=$5`,
			string(status), paidAmount, paidCurrency, now, sessionID)
	} else {
		res, err = s.db.ExecContext(ctx, `UPDATE payment_intents SET status=$1, updated_at=$2 WHERE session_id=$3`,
			string(status), now, sessionID)
	}
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetPaymentIntent(ctx, sessionID)
}

func (s *PostgresStore) ListStalePaymentIntents(ctx context.Context, olderThan time.Duration) ([]*PaymentIntent, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	terminal := []string{string(IntentSucceeded), string(IntentFailed), string(IntentExpired)}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, user_id, payment_type, requested_amount, requested_currency,
			paid_amount, paid_currency, gateway, status, provider_ref, metadata, created_at, updated_at
		FROM payment_intents WHERE NOT (status = ANY($1)) AND created_at < $2`, pq.Array(terminal), cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*PaymentIntent, 0)
	for rows.Next() {
		intent, err := s.scanIntent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, intent)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ReserveIdempotencyKey(ctx context.Context, key string, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `DELETE FROM idempotency_keys WHERE key=$1 AND expires_at <= $2`, key, now)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO idempotency_keys (key, expires_at) VALUES ($1,$2)`, key, now.Add(ttl))
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrAlreadyExists
	}
	return err
}

func (s *PostgresStore) Close(ctx context.Context) error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}
