package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/config"
	"github.com/spec-kit/grievance-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	timeout    time.Duration
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := time.Duration(cfg.WebhookTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		timeout:    timeout,
	}
}

// RegisterHandlers subscribes Handle to every grievance event synchronously.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		n.dispatcher.Subscribe(eventType, n.Handle)
	}
}

// Handle logs the event and fans it out to the configured channels.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	n.logger.Info("grievance event",
		zap.String("event_type", string(event.Type)),
		zap.String("grievance_id", event.GrievanceID),
		zap.String("reference_no", event.ReferenceNo),
		zap.Any("payload", event.Payload))

	switch event.Type {
	case events.EventGrievanceCreated, events.EventStatusChanged, events.EventGrievanceAppealed:
		n.sendEmailNotificationStub(ctx, event)
	}
	return n.sendWebhook(ctx, event)
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("grievance_id", event.GrievanceID),
		zap.String("event_type", string(event.Type)))
}

// sendWebhook posts the event as JSON. Any non-2xx answer is an error.
func (n *NotificationService) sendWebhook(ctx context.Context, event events.Event) error {
	url := strings.TrimSpace(n.cfg.WebhookURL)
	if url == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	agent := fiber.Post(url)
	agent.Set("X-Event-Type", string(event.Type))
	agent.Timeout(n.timeout)
	agent.JSON(event)
	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("webhook %s: %w", event.Type, errs[0])
	}
	if status < fiber.StatusOK || status >= fiber.StatusMultipleChoices {
		return fmt.Errorf("webhook %s: status %d: %s", event.Type, status, strings.TrimSpace(string(body)))
	}
	n.logger.Debug("webhook delivered",
		zap.String("url", url),
		zap.String("event_type", string(event.Type)),
		zap.Int("status", status))
	return nil
}
