package dynamodb

import (
	"fmt"
	"strconv"

	"mathops/domain/core/entities"
	"mathops/domain/core/valueobjects"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Single-table layout. Accounts and prices sit at or below the record
// floor on the sort key; records use the millisecond timestamp.
const (
	attrPK      = "pk"
	attrSK      = "sk"
	attrDetails = "details"

	accountPrefix = "user#"
	accountSK     = entities.MinRecordTimestamp
	costSK        = 1
)

// creditsAttr stores Credits as a DynamoDB number without float rounding.
type creditsAttr struct {
	valueobjects.Credits
}

func (c creditsAttr) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: c.String()}, nil
}

func (c *creditsAttr) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return fmt.Errorf("credits must be a number attribute, got %T", av)
	}
	parsed, err := valueobjects.ParseCredits(n.Value)
	if err != nil {
		return err
	}
	c.Credits = parsed
	return nil
}

type accountItem struct {
	PK      string         `dynamodbav:"pk"`
	SK      int64          `dynamodbav:"sk"`
	Details accountDetails `dynamodbav:"details"`
}

type accountDetails struct {
	Status      string      `dynamodbav:"status"`
	UserBalance creditsAttr `dynamodbav:"user_balance"`
}

type costItem struct {
	PK      string      `dynamodbav:"pk"`
	SK      int64       `dynamodbav:"sk"`
	Details costDetails `dynamodbav:"details"`
}

type costDetails struct {
	Cost creditsAttr `dynamodbav:"cost"`
}

type recordItem struct {
	PK        string        `dynamodbav:"pk"`
	SK        int64         `dynamodbav:"sk"`
	Details   recordDetails `dynamodbav:"details"`
	RequestID string        `dynamodbav:"request_id,omitempty"`
}

type recordDetails struct {
	OperationType    string      `dynamodbav:"operation_type"`
	Amount           *float64    `dynamodbav:"amount,omitempty"`
	StringsGenerated []string    `dynamodbav:"strings_generated,omitempty"`
	UserBalance      creditsAttr `dynamodbav:"user_balance"`
	Removed          bool        `dynamodbav:"removed"`
}

func accountKey(identity valueobjects.Identity) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: accountPrefix + identity.String()},
		attrSK: &types.AttributeValueMemberN{Value: strconv.FormatInt(accountSK, 10)},
	}
}

func costKey(name string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: name},
		attrSK: &types.AttributeValueMemberN{Value: strconv.Itoa(costSK)},
	}
}

func recordKey(owner string, ts int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: owner},
		attrSK: &types.AttributeValueMemberN{Value: strconv.FormatInt(ts, 10)},
	}
}

func marshalAccount(account *entities.Account) (map[string]types.AttributeValue, error) {
	item := accountItem{
		PK: accountPrefix + account.Identity().String(),
		SK: accountSK,
		Details: accountDetails{
			Status:      string(account.Status()),
			UserBalance: creditsAttr{account.Balance()},
		},
	}
	return attributevalue.MarshalMap(item)
}

func unmarshalAccount(identity valueobjects.Identity, av map[string]types.AttributeValue) (*entities.Account, error) {
	var item accountItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	status := entities.AccountStatus(item.Details.Status)
	if status == "" {
		status = entities.AccountActive
	}
	return entities.NewAccount(identity, status, item.Details.UserBalance.Credits)
}

func marshalCost(name string, cost valueobjects.Credits) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(costItem{
		PK:      name,
		SK:      costSK,
		Details: costDetails{Cost: creditsAttr{cost}},
	})
}

func marshalRecord(rec *entities.OperationRecord) (map[string]types.AttributeValue, error) {
	details := recordDetails{
		OperationType: rec.Operation,
		UserBalance:   creditsAttr{rec.BalanceAfter},
		Removed:       rec.Removed,
	}
	if rec.Result.IsStrings() {
		details.StringsGenerated = rec.Result.Strings()
	} else {
		amount := rec.Result.Number()
		details.Amount = &amount
	}
	return attributevalue.MarshalMap(recordItem{
		PK:        rec.Owner.String(),
		SK:        rec.Timestamp,
		Details:   details,
		RequestID: rec.RequestID,
	})
}

func unmarshalRecord(av map[string]types.AttributeValue) (*entities.OperationRecord, error) {
	var item recordItem
	if err := attributevalue.UnmarshalMap(av, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	owner, err := valueobjects.NewIdentity(item.PK)
	if err != nil {
		return nil, err
	}

	result := valueobjects.StringsResult(item.Details.StringsGenerated)
	if item.Details.Amount != nil {
		result = valueobjects.NumberResult(*item.Details.Amount)
	}
	rec, err := entities.NewOperationRecord(owner, item.SK, item.Details.OperationType,
		result, item.Details.UserBalance.Credits, item.RequestID)
	if err != nil {
		return nil, fmt.Errorf("invalid record %s/%d: %w", item.PK, item.SK, err)
	}
	rec.Removed = item.Details.Removed
	return rec, nil
}
