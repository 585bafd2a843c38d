package queries

import (
	"strings"

	"mathops/application/ports"
	"mathops/domain/core/valueobjects"
	appErrors "mathops/pkg/errors"
)

// GetHistoryQuery asks for one page of a user's operation records.
type GetHistoryQuery struct {
	Email          string `json:"email"`
	Limit          int    `json:"limit,omitempty"`
	Cursor         string `json:"last_evaluated,omitempty"`
	Order          string `json:"sort,omitempty"`
	ExcludeRemoved bool   `json:"exclude_removed,omitempty"`
}

// Validate validates the query
func (q GetHistoryQuery) Validate() error {
	_, err := q.Parse()
	return err
}

// Parse returns the history owner once the query is known to be usable.
func (q GetHistoryQuery) Parse() (valueobjects.Identity, error) {
	owner, err := valueobjects.NewIdentity(q.Email)
	if err != nil {
		return valueobjects.Identity{}, appErrors.NewPreconditionFailedError("email is required")
	}
	if q.Limit < 0 {
		return valueobjects.Identity{}, appErrors.NewPreconditionFailedError("limit must be a positive integer")
	}
	switch strings.ToUpper(q.Order) {
	case "", string(ports.SortAscending), string(ports.SortDescending):
	default:
		return valueobjects.Identity{}, appErrors.NewPreconditionFailedError("sort must be ASC or DESC")
	}
	return owner, nil
}

// SortOrder returns the requested order, newest first when unset.
func (q GetHistoryQuery) SortOrder() ports.SortOrder {
	if strings.EqualFold(q.Order, string(ports.SortAscending)) {
		return ports.SortAscending
	}
	return ports.SortDescending
}

// HistoryRecord is one record as the history endpoint renders it.
type HistoryRecord struct {
	Timestamp   int64                `json:"timestamp"`
	Type        string               `json:"type"`
	Result      interface{}          `json:"result"`
	UserBalance valueobjects.Credits `json:"user_balance"`
	Removed     bool                 `json:"removed"`
	Date        string               `json:"date"`
}

// GetHistoryResult is one page of history.
type GetHistoryResult struct {
	Records  []HistoryRecord `json:"records"`
	NextPage string          `json:"nextPage,omitempty"`
}
