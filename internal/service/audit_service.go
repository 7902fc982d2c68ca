package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/events"
)

// AuditService records security events emitted by the auth flows.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to the security events worth auditing.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventAccountRegistered, a.handleEvent)
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.handleEvent)
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleEvent)
	a.dispatcher.Subscribe(events.EventTokenRejected, a.handleEvent)
}

func (a *AuditService) handleEvent(ctx context.Context, event events.Event) error {
	a.logger.Info("audit",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("subject", event.Subject),
		zap.Any("payload", event.Payload))
	return nil
}
