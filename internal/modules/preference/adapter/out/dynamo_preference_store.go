package out

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"analyzeit/internal/modules/preference/domain"
	prefout "analyzeit/internal/modules/preference/port/out"
	"analyzeit/internal/platform/dynamo"
)

const maxUnprocessedRetries = 3

type preferenceItem struct {
	UID       string `dynamodbav:"uid"`
	SiteKey   string `dynamodbav:"site_key"`
	Domain    string `dynamodbav:"domain"`
	Category  string `dynamodbav:"category"`
	UpdatedAt string `dynamodbav:"updatedAt"`
}

// DynamoPreferenceStore keeps one item per (uid, site key).
type DynamoPreferenceStore struct {
	client dynamo.API
	table  string
}

func NewDynamoPreferenceStore(client dynamo.API, table string) prefout.PreferenceStore {
	return &DynamoPreferenceStore{client: client, table: table}
}

func siteKey(domainName string) string {
	return strings.ReplaceAll(domainName, ".", "_")
}

func toItem(uid string, pref domain.Preference) preferenceItem {
	return preferenceItem{
		UID:       uid,
		SiteKey:   siteKey(pref.Domain),
		Domain:    pref.Domain,
		Category:  pref.Category,
		UpdatedAt: pref.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *DynamoPreferenceStore) List(ctx context.Context, uid string) ([]domain.Preference, error) {
	var out []domain.Preference
	var lastEvaluatedKey map[string]types.AttributeValue
	for {
		input := &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			KeyConditionExpression: aws.String("#uid = :uid"),
			ExpressionAttributeNames: map[string]string{
				"#uid": "uid",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid": &types.AttributeValueMemberS{Value: uid},
			},
		}
		if lastEvaluatedKey != nil {
			input.ExclusiveStartKey = lastEvaluatedKey
		}
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query preferences: %w", err)
		}
		var items []preferenceItem
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
			return nil, fmt.Errorf("decode preferences: %w", err)
		}
		for _, item := range items {
			if item.Domain == "" {
				continue
			}
			updatedAt, _ := time.Parse(time.RFC3339, item.UpdatedAt)
			out = append(out, domain.Preference{Domain: item.Domain, Category: item.Category, UpdatedAt: updatedAt})
		}
		lastEvaluatedKey = result.LastEvaluatedKey
		if len(lastEvaluatedKey) == 0 {
			return out, nil
		}
	}
}

func (s *DynamoPreferenceStore) Put(ctx context.Context, uid string, pref domain.Preference) error {
	item, err := attributevalue.MarshalMap(toItem(uid, pref))
	if err != nil {
		return fmt.Errorf("encode preference: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(s.table), Item: item}); err != nil {
		return fmt.Errorf("put preference: %w", err)
	}
	return nil
}

func (s *DynamoPreferenceStore) PutBatch(ctx context.Context, uid string, prefs []domain.Preference) error {
	for start := 0; start < len(prefs); start += dynamo.MaxBatchWrite {
		end := min(start+dynamo.MaxBatchWrite, len(prefs))
		requests := make([]types.WriteRequest, 0, end-start)
		for _, pref := range prefs[start:end] {
			item, err := attributevalue.MarshalMap(toItem(uid, pref))
			if err != nil {
				return fmt.Errorf("encode preference: %w", err)
			}
			requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
		}
		if err := s.writeChunk(ctx, requests); err != nil {
			return err
		}
	}
	return nil
}

func (s *DynamoPreferenceStore) writeChunk(ctx context.Context, requests []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{s.table: requests}
	for attempt := 0; len(pending[s.table]) > 0; attempt++ {
		if attempt > maxUnprocessedRetries {
			return fmt.Errorf("batch write preferences: %d items left unprocessed", len(pending[s.table]))
		}
		result, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return fmt.Errorf("batch write preferences: %w", err)
		}
		pending = result.UnprocessedItems
		if pending == nil {
			return nil
		}
	}
	return nil
}

func (s *DynamoPreferenceStore) Delete(ctx context.Context, uid, domainName string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"uid":      &types.AttributeValueMemberS{Value: uid},
			"site_key": &types.AttributeValueMemberS{Value: siteKey(domainName)},
		},
	})
	if err != nil {
		return fmt.Errorf("delete preference: %w", err)
	}
	return nil
}
