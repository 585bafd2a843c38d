package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"mathops/application/commands"
	"mathops/application/commands/bus"
	"mathops/domain/core/valueobjects"
	"mathops/pkg/common"
	appErrors "mathops/pkg/errors"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// OperationHandler serves POST /api/{operation}.
type OperationHandler struct {
	commandBus   *bus.CommandBus
	errorHandler *appErrors.ErrorHandler
	logger       *zap.Logger
}

// NewOperationHandler creates a new operation handler
func NewOperationHandler(commandBus *bus.CommandBus, errorHandler *appErrors.ErrorHandler, logger *zap.Logger) *OperationHandler {
	return &OperationHandler{
		commandBus:   commandBus,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// ExecuteOperationRequest is the request body of every operation.
type ExecuteOperationRequest struct {
	Email  string          `json:"email"`
	Params json.RawMessage `json:"params"`
}

// ExecuteOperationResponse carries a number or a list of strings.
type ExecuteOperationResponse struct {
	Result valueobjects.Result `json:"result"`
}

// Execute handles POST /api/{operation}
func (h *OperationHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteOperationRequest
	if err := common.ParseJSONBody(r, &req); err != nil {
		if errors.Is(err, common.ErrEmptyBody) {
			h.errorHandler.Handle(w, r, appErrors.NewValidationError("No body provided"))
			return
		}
		h.errorHandler.Handle(w, r, appErrors.NewValidationError("Invalid request body"))
		return
	}

	email, err := resolveEmail(r, req.Email)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	cmd := commands.ExecuteOperationCommand{
		Operation: chi.URLParam(r, "operation"),
		Email:     email,
		Params:    req.Params,
		RequestID: common.ExtractRequestID(r),
	}

	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	out, ok := result.(*commands.ExecuteOperationResult)
	if !ok {
		h.errorHandler.Handle(w, r, appErrors.NewInternalError("unexpected command result"))
		return
	}

	common.RespondJSON(w, http.StatusOK, ExecuteOperationResponse{Result: out.Result})
}
