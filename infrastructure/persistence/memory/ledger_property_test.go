package memory

import (
	"context"
	"testing"

	"mathops/domain/core/entities"
	"mathops/domain/core/valueobjects"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestDebitProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("balance never goes negative and equals start minus accepted debits", prop.ForAll(
		func(start int64, amounts []int64) bool {
			ctx := context.Background()
			s := NewStore()
			acct, err := entities.NewAccount(owner, entities.AccountActive, valueobjects.NewCredits(start))
			if err != nil {
				return false
			}
			if err := s.PutAccount(ctx, acct); err != nil {
				return false
			}

			expected := valueobjects.NewCredits(start)
			for _, a := range amounts {
				amount := valueobjects.NewCredits(a)
				after, err := s.Debit(ctx, owner, expected, amount)
				if expected.LessThan(amount) {
					if err == nil {
						return false
					}
					continue
				}
				if err != nil {
					return false
				}
				expected = after
			}

			got, err := s.GetBalance(ctx, owner)
			if err != nil {
				return false
			}
			return got.Balance().Equals(expected) && !got.Balance().LessThan(valueobjects.NewCredits(0))
		},
		gen.Int64Range(0, 50),
		gen.SliceOf(gen.Int64Range(0, 10)),
	))

	properties.Property("a stale expected balance never changes the account", prop.ForAll(
		func(start, stale int64) bool {
			if start == stale {
				return true
			}
			ctx := context.Background()
			s := NewStore()
			acct, _ := entities.NewAccount(owner, entities.AccountActive, valueobjects.NewCredits(start))
			_ = s.PutAccount(ctx, acct)

			if _, err := s.Debit(ctx, owner, valueobjects.NewCredits(stale), valueobjects.NewCredits(0)); err == nil {
				return false
			}
			got, err := s.GetBalance(ctx, owner)
			return err == nil && got.Balance().Equals(valueobjects.NewCredits(start))
		},
		gen.Int64Range(0, 100),
		gen.Int64Range(0, 100),
	))

	properties.TestingRun(t)
}
