package out

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"analyzeit/internal/modules/identity/domain"
	identityout "analyzeit/internal/modules/identity/port/out"
	"analyzeit/internal/platform/dynamo"
)

type DynamoUserDirectory struct {
	client dynamo.API
	table  string
}

func NewDynamoUserDirectory(client dynamo.API, table string) identityout.Directory {
	return &DynamoUserDirectory{client: client, table: table}
}

// Touch upserts the profile fields and lastActive, leaving other attributes alone.
func (d *DynamoUserDirectory) Touch(ctx context.Context, user domain.User, at time.Time) error {
	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.table),
		Key: map[string]types.AttributeValue{
			"uid": &types.AttributeValueMemberS{Value: user.UID},
		},
		UpdateExpression: aws.String("SET #email = :email, #name = :name, #photo = :photo, #lastActive = :lastActive"),
		ExpressionAttributeNames: map[string]string{
			"#email":      "email",
			"#name":       "name",
			"#photo":      "photo",
			"#lastActive": "lastActive",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email":      &types.AttributeValueMemberS{Value: user.Email},
			":name":       &types.AttributeValueMemberS{Value: user.Name},
			":photo":      &types.AttributeValueMemberS{Value: user.Photo},
			":lastActive": &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	return nil
}
