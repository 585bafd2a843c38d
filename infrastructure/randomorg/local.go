package randomorg

import (
	"context"
	"crypto/rand"
	"math/big"
)

// LocalGenerator draws alphanumeric strings from crypto/rand. It stands in
// for random.org when no API key is configured.
type LocalGenerator struct{}

func (LocalGenerator) Generate(ctx context.Context, count, length int) ([]string, error) {
	alphabet := big.NewInt(int64(len(Alphanumeric)))
	out := make([]string, count)
	buf := make([]byte, length)
	for i := range out {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := range buf {
			n, err := rand.Int(rand.Reader, alphabet)
			if err != nil {
				return nil, err
			}
			buf[j] = Alphanumeric[n.Int64()]
		}
		out[i] = string(buf)
	}
	return out, nil
}
