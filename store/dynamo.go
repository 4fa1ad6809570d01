package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/flexdb/document"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoStore.
// *dynamodb.Client implements it.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

var _ Store = (*DynamoStore)(nil)

// DynamoStore keeps documents in a single DynamoDB table.
type DynamoStore struct {
	client DynamoAPI
	config Config
	logger *slog.Logger

	// NewID generates record ids. Defaults to NewID.
	NewID func() string
}

// NewDynamo creates a new DynamoStore instance.
func NewDynamo(client DynamoAPI, config Config, logger *slog.Logger) *DynamoStore {
	config.validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &DynamoStore{
		client: client,
		config: config,
		logger: logger,
		NewID:  NewID,
	}
}

// EnsureTable creates the documents table if it doesn't exist and waits for
// it to become active.
func (s *DynamoStore) EnsureTable(ctx context.Context, timeout time.Duration) error {
	_, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.config.Table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(collectionAttr), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(document.IDField), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(collectionAttr), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(document.IDField), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	var inUse *types.ResourceInUseException
	if errors.As(err, &inUse) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create table %s: %w", s.config.Table, err)
	}

	s.logger.Info("created table, waiting for it to become active", "table", s.config.Table)
	waiter := dynamodb.NewTableExistsWaiter(s.client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.config.Table)}, timeout)
}

// Create puts a new item, failing if the generated id is already taken.
func (s *DynamoStore) Create(ctx context.Context, collection string, content document.Object) (document.Object, error) {
	if collection == "" {
		return nil, ErrInvalidCollection
	}
	fields := userFields(content)
	item, err := marshalObject(fields)
	if err != nil {
		return nil, err
	}

	rid := document.RecordID{Collection: collection, ID: s.NewID()}
	for k, v := range keyOf(rid) {
		item[k] = v
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.config.Table),
		Item:                     item,
		ConditionExpression:      aws.String(absentCondition),
		ExpressionAttributeNames: idNames(),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return withRecord(fields, rid), nil
}

// Select queries the collection's partition, following pagination.
func (s *DynamoStore) Select(ctx context.Context, collection string) ([]document.Object, error) {
	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                aws.String(s.config.Table),
		KeyConditionExpression:   aws.String("#tb = :tb"),
		ExpressionAttributeNames: map[string]string{"#tb": collectionAttr},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":tb": &types.AttributeValueMemberS{Value: collection},
		},
		ConsistentRead: aws.Bool(true),
	})

	docs := []document.Object{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			doc, err := unmarshalItem(raw)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// Get retrieves a document by record id, returning ErrNotFound if missing.
func (s *DynamoStore) Get(ctx context.Context, rid document.RecordID) (document.Object, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.config.Table),
		Key:            keyOf(rid),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}
	return unmarshalItem(result.Item)
}

// Merge sets every user field of content on an existing item.
func (s *DynamoStore) Merge(ctx context.Context, rid document.RecordID, content document.Object) (document.Object, error) {
	u, err := mergeExpr(content)
	if err != nil {
		return nil, err
	}
	// Nothing to set; an empty SET is not a valid expression.
	if u.empty() {
		return s.Get(ctx, rid)
	}
	return s.update(ctx, rid, u)
}

// Append adds v to the list in field with list_append.
func (s *DynamoStore) Append(ctx context.Context, rid document.RecordID, field string, v document.Value) (document.Object, error) {
	if isReserved(field) {
		return nil, fmt.Errorf("%w: %s", ErrReservedField, field)
	}
	u, err := appendExpr(field, v)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, rid, u)
}

// update applies u to an existing item and returns the new image.
func (s *DynamoStore) update(ctx context.Context, rid document.RecordID, u *updateExpr) (document.Object, error) {
	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.config.Table),
		Key:                       keyOf(rid),
		UpdateExpression:          aws.String(u.expression()),
		ConditionExpression:       aws.String(existsCondition),
		ExpressionAttributeNames:  u.conditionNames(),
		ExpressionAttributeValues: u.values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return unmarshalItem(result.Attributes)
}

// Exec runs the batch's updates in a single TransactWriteItems call.
func (s *DynamoStore) Exec(ctx context.Context, b *Batch) (int, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	updates := b.Updates()
	if len(updates) > s.config.MaxTransactItems {
		return 0, fmt.Errorf("%w: %d updates, limit %d", ErrBatchTooLarge, len(updates), s.config.MaxTransactItems)
	}
	// DynamoDB rejects empty transactions; BEGIN; COMMIT; is a no-op.
	if len(updates) == 0 {
		return b.Len(), nil
	}

	items := make([]types.TransactWriteItem, 0, len(updates))
	for _, stmt := range updates {
		u, err := incrementExpr(stmt)
		if err != nil {
			return 0, err
		}
		items = append(items, types.TransactWriteItem{
			Update: &types.Update{
				TableName:                 aws.String(s.config.Table),
				Key:                       keyOf(stmt.Record),
				UpdateExpression:          aws.String(u.expression()),
				ConditionExpression:       aws.String(existsCondition),
				ExpressionAttributeNames:  u.conditionNames(),
				ExpressionAttributeValues: u.values,
			},
		})
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err := s.mapTransactionError(err, updates); err != nil {
		return 0, err
	}
	return b.Len(), nil
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (s *DynamoStore) Close() error {
	return nil
}

// mapTransactionError maps DynamoDB transaction errors for Exec. The
// cancellation reasons line up with the update statements by index.
func (s *DynamoStore) mapTransactionError(err error, updates []Statement) error {
	if err == nil {
		return nil
	}

	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for i, reason := range txErr.CancellationReasons {
			if reason.Code == nil {
				continue
			}
			switch *reason.Code {
			case "ConditionalCheckFailed":
				if i < len(updates) {
					return fmt.Errorf("%w: %s", ErrNotFound, updates[i].Record)
				}
				return ErrNotFound
			case "ValidationError":
				if i < len(updates) {
					return fmt.Errorf("%w: %s", ErrNotNumber, updates[i])
				}
				return ErrNotNumber
			}
		}
	}

	return err
}
