package operations

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"mathops/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	count, length int
	err           error
}

func (g *fakeGenerator) Generate(_ context.Context, count, length int) ([]string, error) {
	g.count, g.length = count, length
	if g.err != nil {
		return nil, g.err
	}
	out := make([]string, count)
	for i := range out {
		out[i] = string(make([]byte, length))
	}
	return out, nil
}

func testCatalog(gen StringGenerator) *Catalog {
	return NewCatalog(StaticCosts{
		Addition:     valueobjects.NewCredits(1),
		Division:     valueobjects.NewCredits(2),
		RandomString: valueobjects.NewCredits(5),
	}, gen)
}

func TestCatalog_Lookup(t *testing.T) {
	ctx := context.Background()
	catalog := testCatalog(&fakeGenerator{})

	t.Run("known operation", func(t *testing.T) {
		def, err := catalog.Lookup(ctx, Addition)
		require.NoError(t, err)
		assert.Equal(t, Addition, def.Name)
		assert.True(t, def.Cost.Equals(valueobjects.NewCredits(1)))

		result, err := def.Fn(ctx, json.RawMessage(`{"values":[2,3]}`))
		require.NoError(t, err)
		assert.Equal(t, float64(5), result.Number())
	})

	t.Run("unknown operation", func(t *testing.T) {
		_, err := catalog.Lookup(ctx, "modulo")
		assert.ErrorIs(t, err, ErrUnknownOperation)
	})

	t.Run("registered but unpriced", func(t *testing.T) {
		_, err := catalog.Lookup(ctx, Multiplication)
		assert.ErrorIs(t, err, ErrUnknownOperation)
	})

	t.Run("random-str absent without a generator", func(t *testing.T) {
		_, err := testCatalog(nil).Lookup(ctx, RandomString)
		assert.ErrorIs(t, err, ErrUnknownOperation)
	})
}

func TestRandomString(t *testing.T) {
	ctx := context.Background()

	t.Run("passes bounds to the generator", func(t *testing.T) {
		gen := &fakeGenerator{}
		def, err := testCatalog(gen).Lookup(ctx, RandomString)
		require.NoError(t, err)

		result, err := def.Fn(ctx, json.RawMessage(`{"num":3,"len":8}`))
		require.NoError(t, err)
		assert.True(t, result.IsStrings())
		assert.Len(t, result.Strings(), 3)
		assert.Equal(t, 3, gen.count)
		assert.Equal(t, 8, gen.length)
	})

	tests := []struct {
		name   string
		params string
	}{
		{"missing num", `{"len":8}`},
		{"missing len", `{"num":2}`},
		{"len too long", `{"num":1,"len":33}`},
		{"num too large", `{"num":10001,"len":4}`},
		{"wrong type", `{"num":"two","len":4}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{}
			def, err := testCatalog(gen).Lookup(ctx, RandomString)
			require.NoError(t, err)

			_, err = def.Fn(ctx, json.RawMessage(tt.params))
			assert.True(t, IsDomainError(err), "got %v", err)
			assert.Zero(t, gen.count)
		})
	}

	t.Run("generator failure is not a domain error", func(t *testing.T) {
		gen := &fakeGenerator{err: errors.New("upstream down")}
		def, err := testCatalog(gen).Lookup(ctx, RandomString)
		require.NoError(t, err)

		_, err = def.Fn(ctx, json.RawMessage(`{"num":1,"len":4}`))
		require.Error(t, err)
		assert.False(t, IsDomainError(err))
	})
}

func TestNumericParams(t *testing.T) {
	ctx := context.Background()
	def, err := testCatalog(nil).Lookup(ctx, Division)
	require.NoError(t, err)

	_, err = def.Fn(ctx, json.RawMessage(`{"values":[]}`))
	assert.ErrorIs(t, err, ErrEmptyValues)

	_, err = def.Fn(ctx, json.RawMessage(`{"values":"nope"}`))
	assert.True(t, IsDomainError(err))

	_, err = def.Fn(ctx, json.RawMessage(`{"values":[4,0]}`))
	assert.ErrorIs(t, err, ErrDivisionByZero)
}
