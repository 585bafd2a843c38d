package handlers

import (
	"math"
	"net/http"
	"strconv"

	"mathops/application/commands"
	"mathops/application/commands/bus"
	"mathops/application/queries"
	querybus "mathops/application/queries/bus"
	"mathops/pkg/common"
	appErrors "mathops/pkg/errors"

	"go.uber.org/zap"
)

// HistoryHandler serves the audit log endpoints.
type HistoryHandler struct {
	commandBus   *bus.CommandBus
	queryBus     *querybus.QueryBus
	errorHandler *appErrors.ErrorHandler
	logger       *zap.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *appErrors.ErrorHandler,
	logger *zap.Logger,
) *HistoryHandler {
	return &HistoryHandler{
		commandBus:   commandBus,
		queryBus:     queryBus,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// HistoryResponse renders nextPage as null on the last page.
type HistoryResponse struct {
	Records  []queries.HistoryRecord `json:"records"`
	NextPage *string                 `json:"nextPage"`
}

// GetHistory handles GET /api/history
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	email, err := resolveEmail(r, q.Get("email"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	// Limits are defaulted and capped by the query handler.
	paging, err := common.ExtractPaginationParams(r, 0, math.MaxInt32)
	if err != nil {
		h.errorHandler.Handle(w, r, appErrors.NewPreconditionFailedError(err.Error()))
		return
	}

	excludeRemoved := false
	if raw := q.Get("excludeRemoved"); raw != "" {
		excludeRemoved, err = strconv.ParseBool(raw)
		if err != nil {
			h.errorHandler.Handle(w, r, appErrors.NewPreconditionFailedError("excludeRemoved must be true or false"))
			return
		}
	}

	result, err := h.queryBus.Ask(r.Context(), queries.GetHistoryQuery{
		Email:          email,
		Limit:          paging.Limit,
		Cursor:         paging.Cursor,
		Order:          paging.Order,
		ExcludeRemoved: excludeRemoved,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	page, ok := result.(*queries.GetHistoryResult)
	if !ok {
		h.errorHandler.Handle(w, r, appErrors.NewInternalError("unexpected query result"))
		return
	}

	resp := HistoryResponse{Records: page.Records}
	if page.NextPage != "" {
		next := page.NextPage
		resp.NextPage = &next
	}
	common.RespondJSON(w, http.StatusOK, resp)
}

// SoftRemoveRecord handles DELETE /api/soft-remove-record
func (h *HistoryHandler) SoftRemoveRecord(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	email, err := resolveEmail(r, q.Get("email"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	rawTimestamp := q.Get("timestamp")
	if email == "" || rawTimestamp == "" {
		h.errorHandler.Handle(w, r, appErrors.NewPreconditionFailedError("email and timestamp are required"))
		return
	}
	timestamp, err := strconv.ParseInt(rawTimestamp, 10, 64)
	if err != nil {
		h.errorHandler.Handle(w, r, appErrors.NewPreconditionFailedError("timestamp must be an integer"))
		return
	}

	if _, err := h.commandBus.Send(r.Context(), commands.SoftRemoveRecordCommand{
		Email:     email,
		Timestamp: timestamp,
	}); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondMessage(w, http.StatusOK, "Record removed correctly")
}
