package handlers

import (
	"context"

	"mathops/application/commands"
	"mathops/application/ports"
	"mathops/application/queries"
	domainconfig "mathops/domain/config"
	"mathops/domain/core/entities"

	"go.uber.org/zap"
)

// historyDateLayout renders dates like "January 2, 2006".
const historyDateLayout = "January 2, 2006"

// GetHistoryHandler handles history queries
type GetHistoryHandler struct {
	audit  ports.AuditLog
	cfg    *domainconfig.DomainConfig
	logger *zap.Logger
}

// NewGetHistoryHandler creates a new history handler
func NewGetHistoryHandler(audit ports.AuditLog, cfg *domainconfig.DomainConfig, logger *zap.Logger) *GetHistoryHandler {
	return &GetHistoryHandler{
		audit:  audit,
		cfg:    cfg,
		logger: logger,
	}
}

// Handle executes the history query
func (h *GetHistoryHandler) Handle(ctx context.Context, query queries.GetHistoryQuery) (*queries.GetHistoryResult, error) {
	owner, err := query.Parse()
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := context.WithTimeout(ctx, h.cfg.StoreTimeout)
	defer cancel()

	page, err := h.audit.Query(storeCtx, owner, ports.HistoryQuery{
		Limit:          h.limit(query.Limit),
		Cursor:         query.Cursor,
		Order:          query.SortOrder(),
		ExcludeRemoved: query.ExcludeRemoved || h.cfg.ExcludeRemovedByDefault,
	})
	if err != nil {
		return nil, commands.MapStoreError(err, "query history")
	}

	h.logger.Debug("History page loaded",
		zap.String("identity", owner.String()),
		zap.Int("records", len(page.Records)),
		zap.Bool("has_more", page.NextCursor != ""),
	)

	result := &queries.GetHistoryResult{
		Records:  make([]queries.HistoryRecord, 0, len(page.Records)),
		NextPage: page.NextCursor,
	}
	for _, rec := range page.Records {
		result.Records = append(result.Records, FormatRecord(rec))
	}
	return result, nil
}

func (h *GetHistoryHandler) limit(requested int) int {
	switch {
	case requested <= 0:
		return h.cfg.DefaultHistoryLimit
	case requested > h.cfg.MaxHistoryLimit:
		return h.cfg.MaxHistoryLimit
	default:
		return requested
	}
}

// FormatRecord converts a stored record to its response shape.
func FormatRecord(rec *entities.OperationRecord) queries.HistoryRecord {
	return queries.HistoryRecord{
		Timestamp:   rec.Timestamp,
		Type:        rec.Operation,
		Result:      rec.Result.Value(),
		UserBalance: rec.BalanceAfter,
		Removed:     rec.Removed,
		Date:        rec.Time().Format(historyDateLayout),
	}
}
