package dynamodb

import (
	"context"
	"fmt"
	"sync"

	"mathops/application/ports"
	"mathops/domain/core/entities"
	"mathops/domain/core/valueobjects"
	"mathops/infrastructure/persistence/abstractions"
	"mathops/pkg/common"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HistoryStrategy selects how Query reads an owner's records.
type HistoryStrategy string

const (
	// HistoryQueryStrategy reads the owner's partition in key order.
	HistoryQueryStrategy HistoryStrategy = "query"
	// HistoryScanStrategy fans a filtered scan out over parallel segments
	// and orders the result in memory.
	HistoryScanStrategy HistoryStrategy = "scan"
)

// RecordRepository implements ports.AuditLog over the operations table.
type RecordRepository struct {
	client       API
	tableName    string
	strategy     HistoryStrategy
	scanSegments int
	logger       *zap.Logger
}

// NewRecordRepository creates a new RecordRepository
func NewRecordRepository(client API, tableName string, strategy HistoryStrategy, scanSegments int, logger *zap.Logger) *RecordRepository {
	if scanSegments <= 0 {
		scanSegments = 4
	}
	if strategy == "" {
		strategy = HistoryQueryStrategy
	}
	return &RecordRepository{
		client:       client,
		tableName:    tableName,
		strategy:     strategy,
		scanSegments: scanSegments,
		logger:       logger,
	}
}

// Append writes a record unless one already exists at the same key.
func (r *RecordRepository) Append(ctx context.Context, record *entities.OperationRecord) error {
	put, err := recordPut(r.tableName, record)
	if err != nil {
		return err
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                put.TableName,
		Item:                     put.Item,
		ConditionExpression:      put.ConditionExpression,
		ExpressionAttributeNames: put.ExpressionAttributeNames,
	})
	if _, ok := isConditionFailed(err); ok {
		return ports.ErrRecordExists
	}
	return classify(err, "append record")
}

func recordPut(table string, record *entities.OperationRecord) (*types.Put, error) {
	item, err := marshalRecord(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	cond := expression.AttributeNotExists(expression.Name(attrPK))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build record condition: %w", err)
	}
	return &types.Put{
		TableName:                aws.String(table),
		Item:                     item,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	}, nil
}

// Query returns one page of the owner's records.
func (r *RecordRepository) Query(ctx context.Context, owner valueobjects.Identity, q ports.HistoryQuery) (*ports.HistoryPage, error) {
	if r.strategy == HistoryScanStrategy {
		return r.scanPage(ctx, owner, q)
	}
	return r.queryPage(ctx, owner, q)
}

func (r *RecordRepository) queryPage(ctx context.Context, owner valueobjects.Identity, q ports.HistoryQuery) (*ports.HistoryPage, error) {
	after, hasCursor, err := abstractions.CursorAfter(owner, q.Cursor)
	if err != nil {
		return nil, err
	}

	keyCond := expression.Key(attrPK).Equal(expression.Value(owner.String())).
		And(expression.Key(attrSK).GreaterThan(expression.Value(entities.MinRecordTimestamp)))
	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if q.ExcludeRemoved {
		builder = builder.WithFilter(notRemoved())
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build history query: %w", err)
	}

	var startKey map[string]types.AttributeValue
	if hasCursor {
		startKey = recordKey(owner.String(), after)
	}

	// One extra record tells us whether another page exists.
	want := 0
	if q.Limit > 0 {
		want = q.Limit + 1
	}

	records := make([]*entities.OperationRecord, 0, want)
	for {
		input := &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ScanIndexForward:          aws.Bool(q.Order == ports.SortAscending),
			ExclusiveStartKey:         startKey,
		}
		if want > 0 {
			input.Limit = aws.Int32(int32(want - len(records)))
		}

		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, classify(err, "query history")
		}
		for _, item := range out.Items {
			rec, err := unmarshalRecord(item)
			if err != nil {
				r.logger.Warn("Skipping unreadable record", zap.Error(err))
				continue
			}
			records = append(records, rec)
		}

		if (want > 0 && len(records) >= want) || len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	page := &ports.HistoryPage{Records: records}
	if q.Limit > 0 && len(records) > q.Limit {
		page.Records = records[:q.Limit]
		last := page.Records[len(page.Records)-1]
		page.NextCursor = common.EncodeCursor(common.PageCursor{PK: owner.String(), SK: last.Timestamp})
	}
	return page, nil
}

// scanPage reads every record of the owner through a parallel segmented
// scan, then pages in memory.
func (r *RecordRepository) scanPage(ctx context.Context, owner valueobjects.Identity, q ports.HistoryQuery) (*ports.HistoryPage, error) {
	if _, _, err := abstractions.CursorAfter(owner, q.Cursor); err != nil {
		return nil, err
	}

	filter := expression.Name(attrPK).Equal(expression.Value(owner.String())).
		And(expression.Name(attrSK).GreaterThan(expression.Value(entities.MinRecordTimestamp)))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build history scan: %w", err)
	}

	var mu sync.Mutex
	var all []*entities.OperationRecord

	g, gctx := errgroup.WithContext(ctx)
	for segment := 0; segment < r.scanSegments; segment++ {
		segment := int32(segment)
		g.Go(func() error {
			var startKey map[string]types.AttributeValue
			for {
				out, err := r.client.Scan(gctx, &dynamodb.ScanInput{
					TableName:                 aws.String(r.tableName),
					Segment:                   aws.Int32(segment),
					TotalSegments:             aws.Int32(int32(r.scanSegments)),
					FilterExpression:          expr.Filter(),
					ExpressionAttributeNames:  expr.Names(),
					ExpressionAttributeValues: expr.Values(),
					ExclusiveStartKey:         startKey,
				})
				if err != nil {
					return classify(err, "scan history")
				}

				batch := make([]*entities.OperationRecord, 0, len(out.Items))
				for _, item := range out.Items {
					rec, err := unmarshalRecord(item)
					if err != nil {
						r.logger.Warn("Skipping unreadable record", zap.Error(err))
						continue
					}
					batch = append(batch, rec)
				}
				mu.Lock()
				all = append(all, batch...)
				mu.Unlock()

				if len(out.LastEvaluatedKey) == 0 {
					return nil
				}
				startKey = out.LastEvaluatedKey
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Debug("History scan complete",
		zap.String("identity", owner.String()),
		zap.Int("segments", r.scanSegments),
		zap.Int("records", len(all)),
	)
	return abstractions.PageRecords(owner, all, q)
}

// SoftRemove sets the removed flag on an existing record.
func (r *RecordRepository) SoftRemove(ctx context.Context, owner valueobjects.Identity, timestamp int64) error {
	cond := expression.AttributeExists(expression.Name(attrPK))
	upd := expression.Set(expression.Name("details.removed"), expression.Value(true))
	expr, err := expression.NewBuilder().WithCondition(cond).WithUpdate(upd).Build()
	if err != nil {
		return fmt.Errorf("failed to build soft remove: %w", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       recordKey(owner.String(), timestamp),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if _, ok := isConditionFailed(err); ok {
		return ports.ErrRecordNotFound
	}
	return classify(err, "soft remove record")
}

func notRemoved() expression.ConditionBuilder {
	removed := expression.Name("details.removed")
	return expression.AttributeNotExists(removed).Or(removed.Equal(expression.Value(false)))
}
