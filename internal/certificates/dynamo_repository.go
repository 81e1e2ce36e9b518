package certificates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBAPI is the subset of the DynamoDB client used by the registry
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// DynamoRepository keeps one item per (participant, exam), keyed by pk
type DynamoRepository struct {
	client DynamoDBAPI
	table  string
}

func NewDynamoRepository(client DynamoDBAPI, table string) *DynamoRepository {
	return &DynamoRepository{client: client, table: table}
}

type dynamoCertificate struct {
	PK            string          `dynamodbav:"pk"`
	ID            string          `dynamodbav:"id"`
	AttemptID     string          `dynamodbav:"attempt_id"`
	ParticipantID string          `dynamodbav:"participant_id"`
	ExamID        string          `dynamodbav:"exam_id"`
	Data          CertificateData `dynamodbav:"certificate_data"`
	PDFURL        string          `dynamodbav:"pdf_url"`
	GeneratedAt   time.Time       `dynamodbav:"generated_at"`
}

func partitionKey(participantID, examID string) string {
	return participantID + "#" + examID
}

func (r *DynamoRepository) FindByParticipantExam(ctx context.Context, participantID, examID string) (*CertificateRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: partitionKey(participantID, examID)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var item dynamoCertificate
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal certificate: %w", err)
	}
	return &CertificateRecord{
		ID:            item.ID,
		AttemptID:     item.AttemptID,
		ParticipantID: item.ParticipantID,
		ExamID:        item.ExamID,
		Data:          item.Data,
		PDFURL:        item.PDFURL,
		GeneratedAt:   item.GeneratedAt,
	}, nil
}

func (r *DynamoRepository) Register(ctx context.Context, rec *CertificateRecord) (*CertificateRecord, bool, error) {
	item, err := attributevalue.MarshalMap(dynamoCertificate{
		PK:            partitionKey(rec.ParticipantID, rec.ExamID),
		ID:            rec.ID,
		AttemptID:     rec.AttemptID,
		ParticipantID: rec.ParticipantID,
		ExamID:        rec.ExamID,
		Data:          rec.Data,
		PDFURL:        rec.PDFURL,
		GeneratedAt:   rec.GeneratedAt.UTC(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal certificate: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(pk)"),
	})
	if err == nil {
		return rec, true, nil
	}

	var conflict *types.ConditionalCheckFailedException
	if !errors.As(err, &conflict) {
		return nil, false, fmt.Errorf("failed to register certificate: %w", err)
	}

	winner, err := r.FindByParticipantExam(ctx, rec.ParticipantID, rec.ExamID)
	if err != nil {
		return nil, false, err
	}
	if winner == nil {
		return nil, false, ErrRegistryInconsistent
	}
	return winner, false, nil
}
