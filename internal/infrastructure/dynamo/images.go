package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-marketplace-api/internal/domain"
)

// ImageRepo provides typed DynamoDB operations for the item_images table.
// PK: image_id; the item_id-order-index GSI serves per-item ordered reads.
type ImageRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewImageRepo(client *dynamodb.Client, tableName string) *ImageRepo {
	return &ImageRepo{client: client, tableName: tableName}
}

func (r *ImageRepo) Put(ctx context.Context, img *domain.ItemImage) error {
	item, err := attributevalue.MarshalMap(img)
	if err != nil {
		return fmt.Errorf("marshal image: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *ImageRepo) Get(ctx context.Context, imageID string) (*domain.ItemImage, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("image_id", imageID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("image not found: %w", domain.ErrNotFound)
	}
	var img domain.ItemImage
	if err := attributevalue.UnmarshalMap(out.Item, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// ListByItem returns the item's images sorted by display order ascending.
func (r *ImageRepo) ListByItem(ctx context.Context, itemID string) ([]domain.ItemImage, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("item_id-order-index"),
		KeyConditionExpression:    aws.String("item_id = :i"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":i": &types.AttributeValueMemberS{Value: itemID}},
		ScanIndexForward:          aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	var images []domain.ItemImage
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &images); err != nil {
		return nil, err
	}
	return images, nil
}

// SetOrder updates a single image's display order.
func (r *ImageRepo) SetOrder(ctx context.Context, imageID string, order int) error {
	expr, names, values, err := buildUpdateExpr(map[string]interface{}{fieldOrder: order})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("image_id", imageID),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	return err
}

func (r *ImageRepo) Delete(ctx context.Context, imageID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("image_id", imageID),
	})
	return err
}
