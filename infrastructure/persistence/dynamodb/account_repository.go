package dynamodb

import (
	"context"
	"fmt"

	"mathops/application/ports"
	"mathops/domain/core/entities"
	"mathops/domain/core/valueobjects"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// AccountRepository implements ports.CreditLedger over the operations table.
type AccountRepository struct {
	client    API
	tableName string
	logger    *zap.Logger
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(client API, tableName string, logger *zap.Logger) *AccountRepository {
	return &AccountRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// GetBalance reads the account with a strongly consistent read.
func (r *AccountRepository) GetBalance(ctx context.Context, identity valueobjects.Identity) (*entities.Account, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            accountKey(identity),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, classify(err, "get account")
	}
	if len(out.Item) == 0 {
		return nil, ports.ErrAccountNotFound
	}
	return unmarshalAccount(identity, out.Item)
}

// Debit applies a conditional balance update outside any transaction.
func (r *AccountRepository) Debit(ctx context.Context, identity valueobjects.Identity, expected, amount valueobjects.Credits) (valueobjects.Credits, error) {
	update, err := debitUpdate(r.tableName, identity, expected, amount)
	if err != nil {
		return valueobjects.Credits{}, err
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           update.TableName,
		Key:                                 update.Key,
		UpdateExpression:                    update.UpdateExpression,
		ConditionExpression:                 update.ConditionExpression,
		ExpressionAttributeNames:            update.ExpressionAttributeNames,
		ExpressionAttributeValues:           update.ExpressionAttributeValues,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		if ccf, ok := isConditionFailed(err); ok {
			if len(ccf.Item) == 0 {
				return valueobjects.Credits{}, ports.ErrAccountNotFound
			}
			r.logger.Debug("Debit condition failed",
				zap.String("identity", identity.String()),
				zap.String("expected", expected.String()),
			)
			return valueobjects.Credits{}, ports.ErrBalanceConflict
		}
		return valueobjects.Credits{}, classify(err, "debit account")
	}
	return expected.Sub(amount), nil
}

// PutAccount creates or replaces an account. Used by the seed command.
func (r *AccountRepository) PutAccount(ctx context.Context, account *entities.Account) error {
	item, err := marshalAccount(account)
	if err != nil {
		return fmt.Errorf("failed to marshal account: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return classify(err, "put account")
}

// debitUpdate builds the compare-and-set update shared by Debit and the
// transactional commit. A debit that would overdraw is rejected locally.
func debitUpdate(table string, identity valueobjects.Identity, expected, amount valueobjects.Credits) (*types.Update, error) {
	if expected.LessThan(amount) {
		return nil, ports.ErrBalanceConflict
	}
	balance := expression.Name("details.user_balance")

	cond := expression.AttributeExists(expression.Name(attrPK)).
		And(balance.Equal(expression.Value(creditsAttr{expected})))
	upd := expression.Set(balance, expression.Value(creditsAttr{expected.Sub(amount)}))

	expr, err := expression.NewBuilder().WithCondition(cond).WithUpdate(upd).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build debit expression: %w", err)
	}
	return &types.Update{
		TableName:                           aws.String(table),
		Key:                                 accountKey(identity),
		UpdateExpression:                    expr.Update(),
		ConditionExpression:                 expr.Condition(),
		ExpressionAttributeNames:            expr.Names(),
		ExpressionAttributeValues:           expr.Values(),
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	}, nil
}
