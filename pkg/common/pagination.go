package common

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// ErrMalformedCursor is returned when a page token cannot be decoded.
var ErrMalformedCursor = errors.New("malformed page token")

// PageCursor identifies the last record of a page: the owner (partition
// key) and the record timestamp (sort key).
type PageCursor struct {
	PK string `json:"pk"`
	SK int64  `json:"sk"`
}

// EncodeCursor renders a cursor as an opaque URL-safe token.
func EncodeCursor(c PageCursor) string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses a token produced by EncodeCursor.
func DecodeCursor(token string) (PageCursor, error) {
	var c PageCursor
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return c, ErrMalformedCursor
	}
	if err := json.Unmarshal(data, &c); err != nil || c.PK == "" {
		return c, ErrMalformedCursor
	}
	return c, nil
}

// PaginationParams represents history paging parameters
type PaginationParams struct {
	Limit  int
	Cursor string
	Order  string
}

// ExtractPaginationParams reads limit, lastEvaluated and sort from the
// query string. Invalid values are reported, not silently defaulted.
func ExtractPaginationParams(r *http.Request, defaultLimit, maxLimit int) (PaginationParams, error) {
	q := r.URL.Query()
	params := PaginationParams{
		Limit:  defaultLimit,
		Cursor: q.Get("lastEvaluated"),
		Order:  "DESC",
	}

	if limit := q.Get("limit"); limit != "" {
		l, err := strconv.Atoi(limit)
		if err != nil || l <= 0 {
			return params, errors.New("limit must be a positive integer")
		}
		if l > maxLimit {
			l = maxLimit
		}
		params.Limit = l
	}

	if sort := q.Get("sort"); sort != "" {
		switch strings.ToUpper(sort) {
		case "ASC", "DESC":
			params.Order = strings.ToUpper(sort)
		default:
			return params, errors.New("sort must be ASC or DESC")
		}
	}

	return params, nil
}
