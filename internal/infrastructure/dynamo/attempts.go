package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/checkin-api/internal/domain"
)

// AttemptRepo provides typed DynamoDB operations for the check-in attempts
// table. Attempts are append-only; there is no update or delete path.
type AttemptRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAttemptRepo(client *dynamodb.Client, tableName string) *AttemptRepo {
	return &AttemptRepo{client: client, tableName: tableName}
}

func (r *AttemptRepo) Put(ctx context.Context, a *domain.ValidationAttempt) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// ListByEvent queries the event_id-created_at GSI for attempts within
// [from, to], newest first.
func (r *AttemptRepo) ListByEvent(ctx context.Context, eventID string, from, to time.Time) ([]domain.ValidationAttempt, error) {
	fromAV, err := attributevalue.Marshal(from.UTC())
	if err != nil {
		return nil, err
	}
	toAV, err := attributevalue.Marshal(to.UTC())
	if err != nil {
		return nil, err
	}
	var attempts []domain.ValidationAttempt
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String("event_id-created_at-index"),
			KeyConditionExpression: aws.String("event_id = :e AND created_at BETWEEN :f AND :t"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":e": &types.AttributeValueMemberS{Value: eventID},
				":f": fromAV,
				":t": toAV,
			},
			ScanIndexForward:  aws.Bool(false),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.ValidationAttempt
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		attempts = append(attempts, page...)
		if out.LastEvaluatedKey == nil {
			return attempts, nil
		}
		startKey = out.LastEvaluatedKey
	}
}
