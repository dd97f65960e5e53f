package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-errors/errors"
)

// DynamoAPI is the part of the DynamoDB client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// iniKey addresses one value. The partition key joins file and section so a
// section is a single partition.
type iniKey struct {
	PK string `dynamodbav:"pk"`
	SK string `dynamodbav:"sk"`
}

type iniItem struct {
	PK    string `dynamodbav:"pk"`
	SK    string `dynamodbav:"sk"`
	Value string `dynamodbav:"value"`
}

func partition(file, section string) string {
	return file + "\x00" + section
}

// DynamoStore keeps INI values in a DynamoDB table with a string partition
// key "pk" and a string sort key "sk".
type DynamoStore struct {
	api   DynamoAPI
	table string
}

func OpenDynamo(ctx context.Context, region, table string) (*DynamoStore, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Errorf("failed to load aws config: %v", err)
	}
	return NewDynamoStore(dynamodb.NewFromConfig(cfg), table), nil
}

func NewDynamoStore(api DynamoAPI, table string) *DynamoStore {
	if table == "" {
		table = "gmlvm_ini"
	}
	return &DynamoStore{api: api, table: table}
}

func (s *DynamoStore) key(file, section, key string) (map[string]types.AttributeValue, error) {
	av, err := attributevalue.MarshalMap(iniKey{PK: partition(file, section), SK: key})
	if err != nil {
		return nil, errors.Errorf("failed to marshal key: %v", err)
	}
	return av, nil
}

func (s *DynamoStore) Read(ctx context.Context, file, section, key string) (string, bool, error) {
	k, err := s.key(file, section, key)
	if err != nil {
		return "", false, err
	}
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            k,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", false, errors.Wrap(err, 0)
	}
	if out.Item == nil {
		return "", false, nil
	}

	var item iniItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return "", false, errors.Errorf("failed to unmarshal item: %v", err)
	}
	return item.Value, true, nil
}

func (s *DynamoStore) Write(ctx context.Context, file, section, key, value string) error {
	av, err := attributevalue.MarshalMap(iniItem{PK: partition(file, section), SK: key, Value: value})
	if err != nil {
		return errors.Errorf("failed to marshal item: %v", err)
	}
	if _, err := s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	}); err != nil {
		return errors.Wrap(err, 0)
	}
	return nil
}

func (s *DynamoStore) DeleteKey(ctx context.Context, file, section, key string) error {
	k, err := s.key(file, section, key)
	if err != nil {
		return err
	}
	if _, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       k,
	}); err != nil {
		return errors.Wrap(err, 0)
	}
	return nil
}

// keys lists the sort keys of a section, at most limit of them when limit
// is positive.
func (s *DynamoStore) keys(ctx context.Context, file, section string, limit int32) ([]string, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: partition(file, section)},
		},
		ConsistentRead: aws.Bool(true),
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}

	var keys []string
	for {
		out, err := s.api.Query(ctx, input)
		if err != nil {
			return nil, errors.Wrap(err, 0)
		}
		var items []iniItem
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, errors.Errorf("failed to unmarshal items: %v", err)
		}
		for _, item := range items {
			keys = append(keys, item.SK)
		}
		if len(out.LastEvaluatedKey) == 0 || (limit > 0 && len(keys) >= int(limit)) {
			return keys, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (s *DynamoStore) DeleteSection(ctx context.Context, file, section string) error {
	keys, err := s.keys(ctx, file, section, 0)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.DeleteKey(ctx, file, section, key); err != nil {
			return err
		}
	}
	return nil
}

func (s *DynamoStore) SectionExists(ctx context.Context, file, section string) (bool, error) {
	keys, err := s.keys(ctx, file, section, 1)
	if err != nil {
		return false, err
	}
	return len(keys) > 0, nil
}

func (s *DynamoStore) Close() error { return nil }
