package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-marketplace-api/internal/domain"
)

// ItemRepo provides typed DynamoDB operations for the items table.
type ItemRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewItemRepo(client *dynamodb.Client, tableName string) *ItemRepo {
	return &ItemRepo{client: client, tableName: tableName}
}

func (r *ItemRepo) Put(ctx context.Context, it *domain.Item) error {
	item, err := attributevalue.MarshalMap(it)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *ItemRepo) Get(ctx context.Context, itemID string) (*domain.Item, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("item_id", itemID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("item not found: %w", domain.ErrNotFound)
	}
	var it domain.Item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *ItemRepo) Update(ctx context.Context, itemID string, updates map[string]interface{}) error {
	updates[fieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
	expr, names, values, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("item_id", itemID),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return err
}

// ListByStatus returns all items with the given status, newest first, via the
// status-created_at-index GSI.
func (r *ItemRepo) ListByStatus(ctx context.Context, status string) ([]domain.Item, error) {
	var items []domain.Item
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String("status-created_at-index"),
			KeyConditionExpression:    aws.String("#s = :s"),
			ExpressionAttributeNames:  map[string]string{"#s": fieldStatus},
			ExpressionAttributeValues: map[string]types.AttributeValue{":s": &types.AttributeValueMemberS{Value: status}},
			ScanIndexForward:          aws.Bool(false),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.Item
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		items = append(items, page...)
		if out.LastEvaluatedKey == nil {
			return items, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// ListByUser returns every item owned by userID, any status.
func (r *ItemRepo) ListByUser(ctx context.Context, userID string) ([]domain.Item, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("user_id-index"),
		KeyConditionExpression:    aws.String("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":u": &types.AttributeValueMemberS{Value: userID}},
	})
	if err != nil {
		return nil, err
	}
	var items []domain.Item
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, err
	}
	return items, nil
}
