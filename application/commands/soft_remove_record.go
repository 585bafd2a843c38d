package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mathops/application/ports"
	"mathops/domain/core/entities"
	"mathops/domain/core/valueobjects"
	"mathops/domain/events"
	appErrors "mathops/pkg/errors"

	"go.uber.org/zap"
)

// SoftRemoveRecordCommand flags one record as removed.
type SoftRemoveRecordCommand struct {
	Email     string `json:"email"`
	Timestamp int64  `json:"timestamp"`
}

// Validate rejects missing identity or a timestamp outside the record range.
func (c SoftRemoveRecordCommand) Validate() error {
	_, err := c.Parse()
	return err
}

// Parse returns the record owner once the command is known to be usable.
func (c SoftRemoveRecordCommand) Parse() (valueobjects.Identity, error) {
	owner, err := valueobjects.NewIdentity(c.Email)
	if err != nil {
		return valueobjects.Identity{}, appErrors.NewPreconditionFailedError("email is required")
	}
	if c.Timestamp <= entities.MinRecordTimestamp {
		return valueobjects.Identity{}, appErrors.NewPreconditionFailedError("timestamp is required")
	}
	return owner, nil
}

// SoftRemoveRecordHandler handles the SoftRemoveRecordCommand
type SoftRemoveRecordHandler struct {
	audit     ports.AuditLog
	publisher ports.EventPublisher
	timeout   time.Duration
	logger    *zap.Logger
}

// NewSoftRemoveRecordHandler creates a new handler instance. publisher may be nil.
func NewSoftRemoveRecordHandler(
	audit ports.AuditLog,
	publisher ports.EventPublisher,
	timeout time.Duration,
	logger *zap.Logger,
) *SoftRemoveRecordHandler {
	return &SoftRemoveRecordHandler{
		audit:     audit,
		publisher: publisher,
		timeout:   timeout,
		logger:    logger,
	}
}

// Handle executes the soft remove command
func (h *SoftRemoveRecordHandler) Handle(ctx context.Context, cmd SoftRemoveRecordCommand) error {
	owner, err := cmd.Parse()
	if err != nil {
		return err
	}

	storeCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.audit.SoftRemove(storeCtx, owner, cmd.Timestamp); err != nil {
		if errors.Is(err, ports.ErrRecordNotFound) {
			return appErrors.NewNotFoundError("record")
		}
		return MapStoreError(err, "soft remove record")
	}

	h.logger.Info("Record soft-removed",
		zap.String("identity", owner.String()),
		zap.Int64("timestamp", cmd.Timestamp),
	)

	if h.publisher != nil {
		evt := events.NewRecordRemoved(owner.String(), cmd.Timestamp, time.Now().UTC())
		if err := h.publisher.Publish(ctx, evt); err != nil {
			h.logger.Warn("Failed to publish record removal", zap.Error(err))
		}
	}
	return nil
}

// MapStoreError turns an adapter failure into an application error.
// Deadlines become ServiceUnavailable; errors already classified by the
// adapter keep their kind; anything else is internal.
func MapStoreError(err error, op string) error {
	if err == nil {
		return nil
	}
	if appErrors.IsAppError(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return appErrors.NewUnavailableError("store").WithCause(err)
	}
	if errors.Is(err, ports.ErrInvalidCursor) {
		return appErrors.NewPreconditionFailedError("invalid lastEvaluated cursor")
	}
	return appErrors.NewInternalError(fmt.Sprintf("%s failed", op)).WithCause(err)
}
