package dynamodb

import (
	"context"
	"fmt"

	"mathops/domain/core/valueobjects"
	"mathops/domain/operations"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// maxBatchWrite is the BatchWriteItem limit.
const maxBatchWrite = 25

// CostRepository reads operation prices from the operations table.
type CostRepository struct {
	client    API
	tableName string
	logger    *zap.Logger
}

// NewCostRepository creates a new CostRepository
func NewCostRepository(client API, tableName string, logger *zap.Logger) *CostRepository {
	return &CostRepository{client: client, tableName: tableName, logger: logger}
}

// Cost returns the configured price of name.
func (r *CostRepository) Cost(ctx context.Context, name string) (valueobjects.Credits, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       costKey(name),
	})
	if err != nil {
		return valueobjects.Credits{}, classify(err, "get operation cost")
	}
	if len(out.Item) == 0 {
		return valueobjects.Credits{}, fmt.Errorf("%w: no cost configured for %s", operations.ErrUnknownOperation, name)
	}

	var item costItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return valueobjects.Credits{}, fmt.Errorf("failed to unmarshal cost for %s: %w", name, err)
	}
	return item.Details.Cost.Credits, nil
}

// PutCosts writes prices in batches, retrying unprocessed items once.
func (r *CostRepository) PutCosts(ctx context.Context, costs map[string]valueobjects.Credits) error {
	requests := make([]types.WriteRequest, 0, len(costs))
	for name, cost := range costs {
		item, err := marshalCost(name, cost)
		if err != nil {
			return fmt.Errorf("failed to marshal cost for %s: %w", name, err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}

	for start := 0; start < len(requests); start += maxBatchWrite {
		end := start + maxBatchWrite
		if end > len(requests) {
			end = len(requests)
		}
		batch := map[string][]types.WriteRequest{r.tableName: requests[start:end]}

		for attempt := 0; attempt < 2 && len(batch[r.tableName]) > 0; attempt++ {
			out, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: batch})
			if err != nil {
				return classify(err, "put operation costs")
			}
			batch = out.UnprocessedItems
		}
		if n := len(batch[r.tableName]); n > 0 {
			return fmt.Errorf("%d operation costs were not written", n)
		}
	}

	r.logger.Info("Operation costs written", zap.Int("count", len(requests)))
	return nil
}
