package certificates

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDynamoDB is a mock implementation of the DynamoDBAPI interface
type MockDynamoDB struct {
	mock.Mock
}

func (m *MockDynamoDB) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.PutItemOutput), args.Error(1)
}

func (m *MockDynamoDB) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dynamodb.GetItemOutput), args.Error(1)
}

func keyIs(pk string) interface{} {
	return mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		v, ok := in.Key["pk"].(*types.AttributeValueMemberS)
		return ok && v.Value == pk && aws.ToBool(in.ConsistentRead)
	})
}

func TestDynamoRegisterCreates(t *testing.T) {
	client := new(MockDynamoDB)
	repo := NewDynamoRepository(client, "certificates")
	rec := sampleRecord("CERT-1-A")

	client.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		pk, ok := in.Item["pk"].(*types.AttributeValueMemberS)
		return ok && pk.Value == "p1#e1" &&
			aws.ToString(in.TableName) == "certificates" &&
			aws.ToString(in.ConditionExpression) == "attribute_not_exists(pk)"
	})).Return(&dynamodb.PutItemOutput{}, nil)

	stored, created, err := repo.Register(context.Background(), rec)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, rec, stored)
	client.AssertExpectations(t)
}

func TestDynamoRegisterConflictReturnsWinner(t *testing.T) {
	client := new(MockDynamoDB)
	repo := NewDynamoRepository(client, "certificates")

	winner := sampleRecord("CERT-1-A")
	item, err := attributevalue.MarshalMap(dynamoCertificate{
		PK:            "p1#e1",
		ID:            winner.ID,
		AttemptID:     winner.AttemptID,
		ParticipantID: winner.ParticipantID,
		ExamID:        winner.ExamID,
		Data:          winner.Data,
		PDFURL:        winner.PDFURL,
		GeneratedAt:   winner.GeneratedAt,
	})
	require.NoError(t, err)

	client.On("PutItem", mock.Anything, mock.Anything).
		Return(nil, &types.ConditionalCheckFailedException{Message: aws.String("conditional request failed")})
	client.On("GetItem", mock.Anything, keyIs("p1#e1")).
		Return(&dynamodb.GetItemOutput{Item: item}, nil)

	stored, created, err := repo.Register(context.Background(), sampleRecord("CERT-2-B"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "CERT-1-A", stored.ID)
	assert.Equal(t, winner.Data, stored.Data)
	assert.True(t, winner.GeneratedAt.Equal(stored.GeneratedAt))
}

func TestDynamoRegisterError(t *testing.T) {
	client := new(MockDynamoDB)
	repo := NewDynamoRepository(client, "certificates")
	client.On("PutItem", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	_, _, err := repo.Register(context.Background(), sampleRecord("CERT-1-A"))
	assert.ErrorContains(t, err, "throttled")
	client.AssertNotCalled(t, "GetItem", mock.Anything, mock.Anything)
}

func TestDynamoFindMissing(t *testing.T) {
	client := new(MockDynamoDB)
	repo := NewDynamoRepository(client, "certificates")
	client.On("GetItem", mock.Anything, keyIs("p9#e9")).Return(&dynamodb.GetItemOutput{}, nil)

	rec, err := repo.FindByParticipantExam(context.Background(), "p9", "e9")
	require.NoError(t, err)
	assert.Nil(t, rec)
}
