package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/checkin-api/internal/domain"
)

// RegistrationRepo provides typed DynamoDB operations for the registrations table.
type RegistrationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewRegistrationRepo(client *dynamodb.Client, tableName string) *RegistrationRepo {
	return &RegistrationRepo{client: client, tableName: tableName}
}

func (r *RegistrationRepo) Put(ctx context.Context, reg *domain.Registration) error {
	item, err := attributevalue.MarshalMap(reg)
	if err != nil {
		return fmt.Errorf("marshal registration: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *RegistrationRepo) Get(ctx context.Context, registrationID string) (*domain.Registration, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("registration_id", registrationID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("registration %s: %w", registrationID, domain.ErrNotFound)
	}
	var reg domain.Registration
	if err := attributevalue.UnmarshalMap(out.Item, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// ListByEvent queries the event_id GSI and returns every registration of the event.
func (r *RegistrationRepo) ListByEvent(ctx context.Context, eventID string) ([]domain.Registration, error) {
	var regs []domain.Registration
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String("event_id-index"),
			KeyConditionExpression: aws.String("event_id = :e"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":e": &types.AttributeValueMemberS{Value: eventID},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.Registration
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		regs = append(regs, page...)
		if out.LastEvaluatedKey == nil {
			return regs, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// ListByEnrollmentKey returns every registration linked to the given
// enrollment key. More than one entry indicates duplicate enrollment; the
// resolver treats that as ambiguity.
func (r *RegistrationRepo) ListByEnrollmentKey(ctx context.Context, key string) ([]domain.Registration, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("enrollment_key-index"),
		KeyConditionExpression: aws.String("enrollment_key = :k"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":k": &types.AttributeValueMemberS{Value: key},
		},
	})
	if err != nil {
		return nil, err
	}
	var regs []domain.Registration
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &regs); err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *RegistrationRepo) Update(ctx context.Context, registrationID string, updates map[string]interface{}) error {
	updates[fieldUpdatedAt] = time.Now().UTC()
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("registration_id", registrationID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// MarkAttended transitions the registration to attended with a conditional
// write. The condition makes the precondition-check-then-write atomic at the
// store: if another writer got there first, DynamoDB rejects the update and
// domain.ErrAlreadyValidated is returned.
func (r *RegistrationRepo) MarkAttended(ctx context.Context, registrationID string, at time.Time) error {
	ts, err := attributevalue.Marshal(at)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("registration_id", registrationID),
		UpdateExpression:    aws.String("SET attendance_status = :att, validated_at = :ts, updated_at = :ts"),
		ConditionExpression: aws.String("attendance_status = :reg"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":att": &types.AttributeValueMemberS{Value: domain.AttendanceAttended},
			":reg": &types.AttributeValueMemberS{Value: domain.AttendanceRegistered},
			":ts":  ts,
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return domain.ErrAlreadyValidated
		}
		return err
	}
	return nil
}
