package commands

import (
	"bytes"
	"encoding/json"

	"mathops/domain/core/valueobjects"
	appErrors "mathops/pkg/errors"
)

// ExecuteOperationCommand asks for one metered operation on behalf of Email.
type ExecuteOperationCommand struct {
	Operation string          `json:"operation"`
	Email     string          `json:"email"`
	Params    json.RawMessage `json:"params"`
	RequestID string          `json:"request_id,omitempty"`
}

// ExecuteOperationResult is returned on success.
type ExecuteOperationResult struct {
	Operation       string
	Result          valueobjects.Result
	Cost            valueobjects.Credits
	BalanceAfter    valueobjects.Credits
	RecordTimestamp int64
}

// Validate rejects a missing identity or empty parameters.
func (c ExecuteOperationCommand) Validate() error {
	_, err := c.Parse()
	return err
}

// Parse returns the caller identity once the input is known to be usable.
func (c ExecuteOperationCommand) Parse() (valueobjects.Identity, error) {
	if c.Operation == "" {
		return valueobjects.Identity{}, appErrors.NewPreconditionFailedError("operation is required")
	}
	identity, err := valueobjects.NewIdentity(c.Email)
	if err != nil {
		return valueobjects.Identity{}, appErrors.NewPreconditionFailedError("email is required")
	}
	if isEmptyParams(c.Params) {
		return valueobjects.Identity{}, appErrors.NewPreconditionFailedError("params are required")
	}
	return identity, nil
}

func isEmptyParams(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		// Not an object; let the operation report the shape problem.
		return false
	}
	return len(obj) == 0
}
