package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/storefront/internal/domain/cart"
)

// DynamoCartStore implements cart.Repository on a single DynamoDB table
// with a string partition key "pk". Carts live at CART#<owner>; applied
// merge tokens at MERGETOKEN#<owner>#<token> with a TTL attribute.
type DynamoCartStore struct {
	client    *dynamodb.Client
	tableName string
}

type dynamoCart struct {
	PK        string `dynamodbav:"pk"`
	OwnerID   string `dynamodbav:"owner_id"`
	Items     string `dynamodbav:"items"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

type dynamoMergeToken struct {
	PK        string `dynamodbav:"pk"`
	ExpiresAt int64  `dynamodbav:"expires_at"` // epoch seconds, table TTL attribute
}

func NewDynamoCartStore(client *dynamodb.Client, tableName string) *DynamoCartStore {
	return &DynamoCartStore{client: client, tableName: tableName}
}

func cartPK(ownerID string) string {
	return "CART#" + ownerID
}

func mergeTokenPK(ownerID, token string) string {
	return "MERGETOKEN#" + ownerID + "#" + token
}

func (s *DynamoCartStore) Get(ctx context.Context, ownerID string) (*cart.Cart, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: cartPK(ownerID)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var dc dynamoCart
	if err := attributevalue.UnmarshalMap(result.Item, &dc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart: %w", err)
	}

	var items []cart.Item
	if err := json.Unmarshal([]byte(dc.Items), &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart items: %w", err)
	}
	updatedAt, _ := time.Parse(time.RFC3339Nano, dc.UpdatedAt)

	return &cart.Cart{OwnerID: dc.OwnerID, Items: items, UpdatedAt: updatedAt}, nil
}

func (s *DynamoCartStore) Save(ctx context.Context, c *cart.Cart) error {
	items := c.Items
	if items == nil {
		items = []cart.Item{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal cart items: %w", err)
	}

	av, err := attributevalue.MarshalMap(dynamoCart{
		PK:        cartPK(c.OwnerID),
		OwnerID:   c.OwnerID,
		Items:     string(itemsJSON),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cart: %w", err)
	}

	// Full upsert, last write wins per owner.
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put cart: %w", err)
	}
	return nil
}

func (s *DynamoCartStore) Delete(ctx context.Context, ownerID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: cartPK(ownerID)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func (s *DynamoCartStore) SeenMergeToken(ctx context.Context, ownerID, token string) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: mergeTokenPK(ownerID, token)},
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to get merge token: %w", err)
	}
	if result.Item == nil {
		return false, nil
	}

	var mt dynamoMergeToken
	if err := attributevalue.UnmarshalMap(result.Item, &mt); err != nil {
		return false, fmt.Errorf("failed to unmarshal merge token: %w", err)
	}
	// Table TTL deletion is lazy; treat expired tokens as unseen.
	return mt.ExpiresAt > time.Now().Unix(), nil
}

func (s *DynamoCartStore) RecordMergeToken(ctx context.Context, ownerID, token string, ttl time.Duration) error {
	av, err := attributevalue.MarshalMap(dynamoMergeToken{
		PK:        mergeTokenPK(ownerID, token),
		ExpiresAt: time.Now().Add(ttl).Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal merge token: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(pk)"),
	})
	if err != nil {
		var cond *types.ConditionalCheckFailedException
		if errors.As(err, &cond) {
			return nil
		}
		return fmt.Errorf("failed to put merge token: %w", err)
	}
	return nil
}
