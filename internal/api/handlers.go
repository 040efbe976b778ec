package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"push-dispatcher/internal/idempotency"
	"push-dispatcher/internal/observability"
	"push-dispatcher/internal/outbox"
)

// Store is the slice of the outbox contract the HTTP surface needs. The
// ingest path is a pure writer; it never talks to providers.
type Store interface {
	Insert(ctx context.Context, msg *outbox.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*outbox.Message, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*outbox.Message, error)
	List(ctx context.Context, status *outbox.Status, limit int) ([]*outbox.Message, error)
	Requeue(ctx context.Context, id uuid.UUID) error
	Health(ctx context.Context) error
}

type Handlers struct {
	logger     *zap.Logger
	store      Store
	cache      *idempotency.Cache
	metrics    *observability.Metrics
	maxRetries int
}

func NewHandlers(logger *zap.Logger, store Store, cache *idempotency.Cache, metrics *observability.Metrics, maxRetries int) *Handlers {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &Handlers{
		logger:     logger,
		store:      store,
		cache:      cache,
		metrics:    metrics,
		maxRetries: maxRetries,
	}
}

// CreateNotification handles POST /notifications
//
//	@Summary		Enqueue push notification
//	@Description	Validate and enqueue a notification for asynchronous delivery
//	@Tags			Notifications
//	@Accept			json
//	@Produce		json
//	@Param			request	body		api.IngestRequest	true	"Notification request"
//	@Success		202		{object}	api.IngestResponse	"Notification accepted"
//	@Failure		400		{object}	map[string]string	"Validation failure"
//	@Failure		409		{object}	api.IngestResponse	"Duplicate idempotency key"
//	@Router			/notifications [post]
func (h *Handlers) CreateNotification(c *fiber.Ctx) error {
	var req IngestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}

	// Redis fast path first, then the table; the unique constraint below is
	// the source of truth for races.
	if id, ok := h.cache.Get(c.Context(), key); ok {
		if existing, err := h.store.GetByID(c.Context(), id); err == nil {
			return h.conflict(c, existing)
		}
	}
	if existing, err := h.store.GetByIdempotencyKey(c.Context(), key); err == nil {
		return h.conflict(c, existing)
	}

	priority, _ := outbox.ParsePriority(req.Priority)
	data, err := outbox.EncodeData(req.Data)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid data payload"})
	}

	now := time.Now().UTC()
	msg := &outbox.Message{
		ID:             uuid.New(),
		IdempotencyKey: key,
		TargetPlatform: req.TargetPlatform,
		DeviceToken:    req.DeviceToken,
		Title:          req.Title,
		Body:           req.Body,
		Data:           data,
		Tags:           outbox.JoinTags(req.Tags),
		Priority:       priority,
		Status:         outbox.StatusPending,
		RetryCount:     0,
		MaxRetries:     h.maxRetries,
		CreatedAt:      now,
		UpdatedAt:      now,
		ScheduledFor:   req.ScheduledFor,
	}

	if err := h.store.Insert(c.Context(), msg); err != nil {
		if errors.Is(err, outbox.ErrDuplicateKey) {
			if existing, err := h.store.GetByIdempotencyKey(c.Context(), key); err == nil {
				return h.conflict(c, existing)
			}
		}
		h.logger.Error("failed to insert notification", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	h.cache.Store(c.Context(), key, msg.ID)

	h.logger.Info("notification accepted",
		zap.String("id", msg.ID.String()),
		zap.String("platform", msg.TargetPlatform),
		zap.String("priority", string(msg.Priority)))
	if h.metrics != nil {
		h.metrics.NotificationsAccepted.WithLabelValues(msg.TargetPlatform).Inc()
	}

	return c.Status(fiber.StatusAccepted).JSON(&IngestResponse{
		ID:      msg.ID,
		Status:  msg.Status,
		Message: "notification accepted",
	})
}

func (h *Handlers) conflict(c *fiber.Ctx, existing *outbox.Message) error {
	if h.metrics != nil {
		h.metrics.IdempotencyConflictsTotal.Inc()
	}
	return c.Status(fiber.StatusConflict).JSON(&IngestResponse{
		ID:      existing.ID,
		Status:  existing.Status,
		Message: "duplicate idempotency key",
	})
}

// GetNotification handles GET /notifications/:id
//
//	@Summary	Get notification status
//	@Tags		Notifications
//	@Produce	json
//	@Param		id	path		string	true	"Notification ID"
//	@Success	200	{object}	api.StatusResponse
//	@Failure	404	{object}	map[string]string	"Not found"
//	@Router		/notifications/{id} [get]
func (h *Handlers) GetNotification(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid notification ID"})
	}

	msg, err := h.store.GetByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, outbox.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "notification not found"})
		}
		h.logger.Error("failed to get notification", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	return c.JSON(newStatusResponse(msg))
}

// ListNotifications handles GET /notifications
func (h *Handlers) ListNotifications(c *fiber.Ctx) error {
	var status *outbox.Status
	if s := c.Query("status"); s != "" {
		st := outbox.Status(s)
		status = &st
	}
	limit := c.QueryInt("limit", 50)

	msgs, err := h.store.List(c.Context(), status, limit)
	if err != nil {
		h.logger.Error("failed to list notifications", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	resp := make([]*StatusResponse, 0, len(msgs))
	for _, msg := range msgs {
		resp = append(resp, newStatusResponse(msg))
	}
	return c.JSON(resp)
}

// RequeueNotification handles POST /notifications/:id/requeue, the operator
// path that returns a DeadLettered row to Pending.
func (h *Handlers) RequeueNotification(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid notification ID"})
	}

	if err := h.store.Requeue(c.Context(), id); err != nil {
		if errors.Is(err, outbox.ErrInvalidTransition) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "notification is not dead-lettered"})
		}
		h.logger.Error("failed to requeue notification", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}

	h.logger.Info("notification requeued", zap.String("id", id.String()))
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"id": id, "status": outbox.StatusPending})
}

// Health handles GET /health
//
//	@Summary	Health check
//	@Tags		System
//	@Produce	json
//	@Success	200	{object}	map[string]interface{}	"Health status"
//	@Router		/health [get]
func (h *Handlers) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "Healthy", "timestamp": time.Now().UTC()})
}

// Ready handles GET /readyz
func (h *Handlers) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	if err := h.store.Health(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready"})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}
