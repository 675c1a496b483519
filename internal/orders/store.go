package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-template-storefront/internal/aws"
	"github.com/imrishuroy/go-template-storefront/internal/idempotency"
)

var (
	// ErrStatusMismatch is returned when a conditional status transition fails.
	ErrStatusMismatch = errors.New("status mismatch/conditional failed")
	// ErrExists is returned by Create when the order id is already recorded.
	ErrExists = errors.New("order already recorded")
	// ErrNotFound is returned when an update targets an order with no ledger entry.
	ErrNotFound = errors.New("order not found")
)

// Store encapsulates operations on the orders ledger table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

func (s *Store) stamp(e *LedgerEntry) {
	now := s.nowFunc().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	if e.Status == "" {
		e.Status = StatusCreated
	}
}

// Create records a new ledger entry. It fails with ErrExists if the order id is already present.
func (s *Store) Create(ctx context.Context, entry LedgerEntry) error {
	s.stamp(&entry)
	item, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(order_id)"),
	})
	if err != nil {
		var cf *types.ConditionalCheckFailedException
		if errors.As(err, &cf) {
			return ErrExists
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// CreateWithIdempotencyResponse atomically writes the ledger entry and completes
// the caller's idempotency record with the response that duplicates should replay:
//   - Put order in the orders table (attribute_not_exists(order_id))
//   - Update idempotency record IN_PROGRESS -> DONE with response body/status
func (s *Store) CreateWithIdempotencyResponse(ctx context.Context, entry LedgerEntry, idempotencyTable, idempotencyKey, responseBody string, responseStatus int) error {
	s.stamp(&entry)
	orderMap, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}

	transactItems := []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName:           &s.tableName,
				Item:                orderMap,
				ConditionExpression: awsString("attribute_not_exists(order_id)"),
			},
		},
		{
			Update: &types.Update{
				TableName: &idempotencyTable,
				Key: map[string]types.AttributeValue{
					"idempotency_key": &types.AttributeValueMemberS{Value: idempotencyKey},
				},
				UpdateExpression:         awsString("SET #s = :done, response_body = :rb, response_status = :rs, updated_at = :ua"),
				ConditionExpression:      awsString("#s = :expected"),
				ExpressionAttributeNames: map[string]string{"#s": "status"},
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":done":     &types.AttributeValueMemberS{Value: idempotency.StatusDone},
					":expected": &types.AttributeValueMemberS{Value: idempotency.StatusInProgress},
					":rb":       &types.AttributeValueMemberS{Value: responseBody},
					":rs":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", responseStatus)},
					":ua":       &types.AttributeValueMemberS{Value: entry.UpdatedAt.Format(time.RFC3339)},
				},
			},
		},
	}

	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: transactItems})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return fmt.Errorf("transaction canceled (order or idempotency record conflict): %w", err)
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

// Get fetches an order by order_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*LedgerEntry, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       orderKey(orderID),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var e LedgerEntry
	if err := attributevalue.UnmarshalMap(out.Item, &e); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return &e, nil
}

// UpdateStatus conditionally moves the order from expectedStatus to newStatus.
// Returns ErrStatusMismatch if the current status differs.
func (s *Store) UpdateStatus(ctx context.Context, orderID, expectedStatus, newStatus string) error {
	return s.update(ctx, orderID, "SET #s = :new, updated_at = :ua", map[string]types.AttributeValue{
		":new":      &types.AttributeValueMemberS{Value: newStatus},
		":expected": &types.AttributeValueMemberS{Value: expectedStatus},
	})
}

// MarkPaid moves CREATED -> PAID and records the payment id in the same write.
func (s *Store) MarkPaid(ctx context.Context, orderID, paymentID string) error {
	return s.update(ctx, orderID, "SET #s = :new, payment_id = :pid, updated_at = :ua", map[string]types.AttributeValue{
		":new":      &types.AttributeValueMemberS{Value: StatusPaid},
		":expected": &types.AttributeValueMemberS{Value: StatusCreated},
		":pid":      &types.AttributeValueMemberS{Value: paymentID},
	})
}

func (s *Store) update(ctx context.Context, orderID, expr string, values map[string]types.AttributeValue) error {
	values[":ua"] = &types.AttributeValueMemberS{Value: s.nowFunc().UTC().Format(time.RFC3339)}
	input := &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       orderKey(orderID),
		UpdateExpression:          &expr,
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
		ConditionExpression:       awsString("#s = :expected"),
	}

	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var sc *types.ConditionalCheckFailedException
		if errors.As(err, &sc) {
			return ErrStatusMismatch
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// IncrementAttempts increases the attempts counter by 1 (worker retries).
func (s *Store) IncrementAttempts(ctx context.Context, orderID string) error {
	now := s.nowFunc().UTC()
	input := &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       orderKey(orderID),
		UpdateExpression:          awsString("SET attempts = if_not_exists(attempts, :zero) + :inc, updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":zero": &types.AttributeValueMemberN{Value: "0"}, ":inc": &types.AttributeValueMemberN{Value: "1"}, ":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)}},
		ConditionExpression:       awsString("attribute_exists(order_id)"),
		ReturnValues:              types.ReturnValueUpdatedNew,
	}
	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return ErrNotFound
		}
		return fmt.Errorf("increment attempts: %w", err)
	}
	return nil
}

func orderKey(orderID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberS{Value: orderID},
	}
}

func awsString(s string) *string { return &s }
