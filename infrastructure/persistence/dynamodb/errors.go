package dynamodb

import (
	"errors"
	"fmt"

	appErrors "mathops/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// classify turns a DynamoDB failure into something the application layer
// can act on. Throttling and service faults become Unavailable; context
// errors pass through wrapped so callers still see them.
func classify(err error, operation string) error {
	if err == nil {
		return nil
	}

	var throughput *types.ProvisionedThroughputExceededException
	var limit *types.RequestLimitExceeded
	var internal *types.InternalServerError
	if errors.As(err, &throughput) || errors.As(err, &limit) || errors.As(err, &internal) {
		return appErrors.NewUnavailableError("dynamodb").WithCause(fmt.Errorf("%s: %w", operation, err))
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "ThrottlingException", "ServiceUnavailable", "InternalFailure":
			return appErrors.NewUnavailableError("dynamodb").WithCause(fmt.Errorf("%s: %w", operation, err))
		case "ResourceNotFoundException":
			return appErrors.NewInternalError("operations table not found").WithCause(err)
		}
		if ae.ErrorFault() == smithy.FaultServer {
			return appErrors.NewUnavailableError("dynamodb").WithCause(fmt.Errorf("%s: %w", operation, err))
		}
	}

	return fmt.Errorf("%s: %w", operation, err)
}

func isConditionFailed(err error) (*types.ConditionalCheckFailedException, bool) {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return ccf, true
	}
	return nil, false
}
