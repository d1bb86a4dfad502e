package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBStore implements Store using MongoDB.
type MongoDBStore struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions *mongo.Collection
	intents      *mongo.Collection
	balances     *mongo.Collection
	idempotency  *mongo.Collection
}

// NewMongoDBStore connects to MongoDB and ensures indexes exist.
func NewMongoDBStore(connectionString, database string) (*MongoDBStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connectionString))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(database)
	store := &MongoDBStore{
		client:       client,
		db:           db,
		transactions: db.Collection("transactions"),
		intents:      db.Collection("payment_intents"),
		balances:     db.Collection("user_balances"),
		idempotency:  db.Collection("idempotency_keys"),
	}
	if err := store.createIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return store, nil
}

func (s *MongoDBStore) createIndexes(ctx context.Context) error {
	_, err := s.transactions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "transactionId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create transaction indexes: %w", err)
	}
	_, err = s.intents.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sessionId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "gateway", Value: 1}, {Key: "providerRef", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create intent indexes: %w", err)
	}
	_, err = s.balances.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create balance indexes: %w", err)
	}
	_, err = s.idempotency.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "key", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	})
	if err != nil {
		return fmt.Errorf("create idempotency indexes: %w", err)
	}
	return nil
}

func (s *MongoDBStore) AppendTransaction(ctx context.Context, tx *Transaction) error {
	_, err := s.transactions.InsertOne(ctx, tx)
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *MongoDBStore) FindTransactionByID(ctx context.Context, transactionID string) (*Transaction, error) {
	var tx Transaction
	err := s.transactions.FindOne(ctx, bson.M{"transactionId": transactionID}).Decode(&tx)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func transactionFilterToBSON(filter TransactionFilter) bson.M {
	query := bson.M{}
	if !filter.IncludeDeleted {
		query["deleted"] = bson.M{"$ne": true}
	}
	if filter.UserID != "" {
		query["userId"] = filter.UserID
	}
	if filter.Type != "" {
		query["type"] = string(filter.Type)
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	for k, v := range filter.MetadataEquals {
		query["metadata."+k] = v
	}
	return query
}

func (s *MongoDBStore) FindTransactions(ctx context.Context, filter TransactionFilter, page Pagination) ([]*Transaction, error) {
	limit := int64(page.Limit)
	if limit <= 0 {
		limit = 20
	}
	pageNum := page.Page
	if pageNum <= 0 {
		pageNum = 1
	}
	skip := int64(pageNum-1) * limit

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit).SetSkip(skip)
	cursor, err := s.transactions.Find(ctx, transactionFilterToBSON(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]*Transaction, 0)
	for cursor.Next(ctx) {
		var tx Transaction
		if err := cursor.Decode(&tx); err != nil {
			return nil, err
		}
		out = append(out, &tx)
	}
	return out, cursor.Err()
}

func (s *MongoDBStore) CountTransactions(ctx context.Context, filter TransactionFilter) (int, error) {
	count, err := s.transactions.CountDocuments(ctx, transactionFilterToBSON(filter))
	return int(count), err
}

func (s *MongoDBStore) UpdateTransactionStatus(ctx context.Context, transactionID string, newStatus TransactionStatus, providerUpdate *PaymentProviderInfo, metadataPatch map[string]string) (*Transaction, error) {
	var current Transaction
	if err := s.transactions.FindOne(ctx, bson.M{"transactionId": transactionID}).Decode(&current); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
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

	now := time.Now().UTC()
	update := bson.M{"status": string(newStatus), "updatedAt": now, "metadata": current.Metadata}
	if providerUpdate != nil {
		update["paymentProvider"] = providerUpdate
	}
	_, err := s.transactions.UpdateOne(ctx, bson.M{"transactionId": transactionID}, bson.M{"$set": update})
	if err != nil {
		return nil, err
	}
	current.Status = newStatus
	current.UpdatedAt = now
	if providerUpdate != nil {
		current.PaymentProvider = *providerUpdate
	}
	return &current, nil
}

func (s *MongoDBStore) FindProcessingWithdrawals(ctx context.Context, olderThan time.Duration) ([]*Transaction, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	cursor, err := s.transactions.Find(ctx, bson.M{
		"type": string(TransactionWithdrawal), "status": string(StatusProcessing), "updatedAt": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]*Transaction, 0)
	for cursor.Next(ctx) {
		var tx Transaction
		if err := cursor.Decode(&tx); err != nil {
			return nil, err
		}
		out = append(out, &tx)
	}
	return out, cursor.Err()
}

func (s *MongoDBStore) AggregateTransactionSums(ctx context.Context, filter TransactionFilter) (int64, int, error) {
	pipeline := bson.A{
		bson.M{"$match": transactionFilterToBSON(filter)},
		bson.M{"$group": bson.M{"_id": nil, "total": bson.M{"$sum": "$amount"}, "count": bson.M{"$sum": 1}}},
	}
	cursor, err := s.transactions.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, err
	}
	defer cursor.Close(ctx)

	var result struct {
		Total int64 `bson:"total"`
		Count int   `bson:"count"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&result); err != nil {
			return 0, 0, err
		}
	}
	return result.Total, result.Count, cursor.Err()
}

func (s *MongoDBStore) getOrInitBalance(ctx context.Context, userID string) (*UserBalanceView, error) {
	var view UserBalanceView
	err := s.balances.FindOne(ctx, bson.M{"userId": userID}).Decode(&view)
	if err == mongo.ErrNoDocuments {
		view = UserBalanceView{UserID: userID, DailyWindowStart: time.Now().UTC()}
		_, err = s.balances.InsertOne(ctx, view)
		if err != nil && !mongo.IsDuplicateKeyError(err) {
			return nil, err
		}
		return &view, nil
	}
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *MongoDBStore) GetBalance(ctx context.Context, userID string) (*UserBalanceView, error) {
	return s.getOrInitBalance(ctx, userID)
}

func (s *MongoDBStore) GetBalances(ctx context.Context, userIDs []string) (map[string]*UserBalanceView, error) {
	out := make(map[string]*UserBalanceView, len(userIDs))
	for _, id := range userIDs {
		view, err := s.getOrInitBalance(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = view
	}
	return out, nil
}

// Adjust relies on MongoDB's per-document atomic $inc plus a post-hoc
// negative check; on overdraw it compensates with the inverse $inc.
func (s *MongoDBStore) Adjust(ctx context.Context, userID string, deltaBalance, deltaUSD, deltaActivation int64) (*UserBalanceView, error) {
	if _, err := s.getOrInitBalance(ctx, userID); err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated UserBalanceView
	err := s.balances.FindOneAndUpdate(ctx, bson.M{"userId": userID}, bson.M{"$inc": bson.M{
		"balance": deltaBalance, "usdBalance": deltaUSD, "activationBalance": deltaActivation,
	}}, opts).Decode(&updated)
	if err != nil {
		return nil, err
	}
	if updated.Balance < 0 || updated.USDBalance < 0 || updated.ActivationBalance < 0 {
		_, _ = s.balances.UpdateOne(ctx, bson.M{"userId": userID}, bson.M{"$inc": bson.M{
			"balance": -deltaBalance, "usdBalance": -deltaUSD, "activationBalance": -deltaActivation,
		}})
		return nil, ErrInsufficientFunds
	}
	return &updated, nil
}

func (s *MongoDBStore) HasPendingBlockingTransactions(ctx context.Context, userID string, types []TransactionType) (bool, error) {
	query := bson.M{
		"userId":  userID,
		"deleted": bson.M{"$ne": true},
		"status": bson.M{"$nin": []string{
			string(StatusCompleted), string(StatusFailed), string(StatusRefunded), string(StatusRejectedByAdmin), string(StatusCancelled),
		}},
	}
	if len(types) > 0 {
		typeStrs := make([]string, len(types))
		for i, t := range types {
			typeStrs[i] = string(t)
		}
		query["type"] = bson.M{"$in": typeStrs}
	}
	count, err := s.transactions.CountDocuments(ctx, query)
	return count > 0, err
}

func (s *MongoDBStore) RecordWithdrawal(ctx context.Context, userID string, amount int64, maxDailyAmount int64, maxDailyCount int) (bool, *UserBalanceView, error) {
	view, err := s.getOrInitBalance(ctx, userID)
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
	_, err = s.balances.UpdateOne(ctx, bson.M{"userId": userID}, bson.M{"$set": bson.M{
		"dailyWithdrawalTotal": view.DailyWithdrawalTotal,
		"dailyWithdrawalCount": view.DailyWithdrawalCount,
		"dailyWindowStart":     view.DailyWindowStart,
	}})
	return within, view, err
}

func (s *MongoDBStore) ReverseWithdrawal(ctx context.Context, userID string, amount int64, recordedAt time.Time) (*UserBalanceView, error) {
	view, err := s.getOrInitBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if view.DailyWindowStart.After(recordedAt) {
		return view, nil
	}
	view.DailyWithdrawalTotal -= amount
	if view.DailyWithdrawalTotal < 0 {
		view.DailyWithdrawalTotal = 0
	}
	view.DailyWithdrawalCount--
	if view.DailyWithdrawalCount < 0 {
		view.DailyWithdrawalCount = 0
	}
	_, err = s.balances.UpdateOne(ctx, bson.M{"userId": userID}, bson.M{"$set": bson.M{
		"dailyWithdrawalTotal": view.DailyWithdrawalTotal,
		"dailyWithdrawalCount": view.DailyWithdrawalCount,
	}})
	return view, err
}

func (s *MongoDBStore) CreatePaymentIntent(ctx context.Context, intent *PaymentIntent) error {
	_, err := s.intents.InsertOne(ctx, intent)
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *MongoDBStore) GetPaymentIntent(ctx context.Context, sessionID string) (*PaymentIntent, error) {
	var intent PaymentIntent
	err := s.intents.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&intent)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (s *MongoDBStore) GetPaymentIntentByProviderRef(ctx context.Context, gateway, providerRef string) (*PaymentIntent, error) {
	var intent PaymentIntent
	err := s.intents.FindOne(ctx, bson.M{"gateway": gateway, "providerRef": providerRef}).Decode(&intent)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (s *MongoDBStore) UpdatePaymentIntentStatus(ctx context.Context, sessionID string, status IntentStatus, paidAmount int64, paidCurrency string) (*PaymentIntent, error) {
	update := bson.M{"status": string(status), "updatedAt": time.Now().UTC()}
	if paidAmount > 0 {
		update["paidAmount"] = paidAmount
		update["paidCurrency"] = paidCurrency
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var intent PaymentIntent
	err := s.intents.FindOneAndUpdate(ctx, bson.M{"sessionId": sessionID}, bson.M{"$set": update}, opts).Decode(&intent)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	return &intent, err
}

func (s *MongoDBStore) ListStalePaymentIntents(ctx context.Context, olderThan time.Duration) ([]*PaymentIntent, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	cursor, err := s.intents.Find(ctx, bson.M{
		"status":    bson.M{"$nin": []string{string(IntentSucceeded), string(IntentFailed), string(IntentExpired)}},
		"createdAt": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]*PaymentIntent, 0)
	for cursor.Next(ctx) {
		var intent PaymentIntent
		if err := cursor.Decode(&intent); err != nil {
			return nil, err
		}
		out = append(out, &intent)
	}
	return out, cursor.Err()
}

func (s *MongoDBStore) ReserveIdempotencyKey(ctx context.Context, key string, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.idempotency.InsertOne(ctx, idempotencyRecord{Key: key, ExpiresAt: now.Add(ttl)})
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *MongoDBStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
