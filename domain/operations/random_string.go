package operations

import (
	"context"
	"encoding/json"
	"fmt"

	"mathops/domain/core/valueobjects"
	"mathops/pkg/utils"
)

// StringGenerator produces random strings from an external source.
type StringGenerator interface {
	Generate(ctx context.Context, count, length int) ([]string, error)
}

// RandomStringParams bounds follow the random.org generateStrings limits.
type RandomStringParams struct {
	Num int `json:"num" validate:"required,min=1,max=10000"`
	Len int `json:"len" validate:"required,min=1,max=32"`
}

func randomStrings(gen StringGenerator) Func {
	return func(ctx context.Context, raw json.RawMessage) (valueobjects.Result, error) {
		var p RandomStringParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return valueobjects.Result{}, newDomainError(fmt.Sprintf("invalid random-str parameters: %v", err))
		}
		if err := utils.ValidateStruct(p); err != nil {
			return valueobjects.Result{}, newDomainError(err.Error())
		}
		out, err := gen.Generate(ctx, p.Num, p.Len)
		if err != nil {
			return valueobjects.Result{}, err
		}
		return valueobjects.StringsResult(out), nil
	}
}
