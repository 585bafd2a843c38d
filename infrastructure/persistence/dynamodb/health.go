package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// TableChecker reports whether the operations table is usable.
type TableChecker struct {
	client    API
	tableName string
}

func NewTableChecker(client API, tableName string) *TableChecker {
	return &TableChecker{client: client, tableName: tableName}
}

// Ping fails unless the table exists and is ACTIVE.
func (c *TableChecker) Ping(ctx context.Context) error {
	out, err := c.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(c.tableName)})
	if err != nil {
		return classify(err, "describe table")
	}
	if out.Table == nil || out.Table.TableStatus != types.TableStatusActive {
		return fmt.Errorf("table %s is not active", c.tableName)
	}
	return nil
}
