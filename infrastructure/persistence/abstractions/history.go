package abstractions

import (
	"fmt"
	"sort"

	"mathops/application/ports"
	"mathops/domain/core/entities"
	"mathops/domain/core/valueobjects"
	"mathops/pkg/common"
)

// SortRecords orders records by timestamp in place.
func SortRecords(records []*entities.OperationRecord, order ports.SortOrder) {
	sort.Slice(records, func(i, j int) bool {
		if order == ports.SortAscending {
			return records[i].Timestamp < records[j].Timestamp
		}
		return records[i].Timestamp > records[j].Timestamp
	})
}

// CursorAfter decodes a cursor and checks it belongs to owner. A zero
// token yields ok=false.
func CursorAfter(owner valueobjects.Identity, token string) (ts int64, ok bool, err error) {
	if token == "" {
		return 0, false, nil
	}
	c, err := common.DecodeCursor(token)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ports.ErrInvalidCursor, err)
	}
	if c.PK != owner.String() {
		return 0, false, fmt.Errorf("%w: cursor belongs to another owner", ports.ErrInvalidCursor)
	}
	return c.SK, true, nil
}

// PageRecords applies floor, filter, order and cursor to an owner's full
// record set and cuts one page. Used by backends without server-side
// ordering (the in-memory store and the parallel-scan strategy).
func PageRecords(owner valueobjects.Identity, all []*entities.OperationRecord, q ports.HistoryQuery) (*ports.HistoryPage, error) {
	after, hasCursor, err := CursorAfter(owner, q.Cursor)
	if err != nil {
		return nil, err
	}

	selected := make([]*entities.OperationRecord, 0, len(all))
	for _, r := range all {
		if r.Timestamp <= entities.MinRecordTimestamp {
			continue
		}
		if q.ExcludeRemoved && r.Removed {
			continue
		}
		if hasCursor {
			if q.Order == ports.SortAscending && r.Timestamp <= after {
				continue
			}
			if q.Order != ports.SortAscending && r.Timestamp >= after {
				continue
			}
		}
		selected = append(selected, r)
	}
	SortRecords(selected, q.Order)

	page := &ports.HistoryPage{Records: selected}
	if q.Limit > 0 && len(selected) > q.Limit {
		page.Records = selected[:q.Limit]
		last := page.Records[len(page.Records)-1]
		page.NextCursor = common.EncodeCursor(common.PageCursor{PK: owner.String(), SK: last.Timestamp})
	}
	return page, nil
}
