package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ortelius/tenancy-backend/model"
	"go.uber.org/zap"
)

// EventPublisher delivers membership events after the change is committed.
type EventPublisher interface {
	PublishMembershipEvent(ctx context.Context, event model.MembershipEvent) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

// PublishMembershipEvent implements EventPublisher.
func (NopPublisher) PublishMembershipEvent(context.Context, model.MembershipEvent) error {
	return nil
}

func newEvent(ctx context.Context, eventType, orgID, userID string, role model.Role) model.MembershipEvent {
	return model.MembershipEvent{
		EventType:      eventType,
		EventID:        uuid.New().String(),
		EventTime:      time.Now().UTC(),
		SchemaVersion:  "v1",
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
		ActorID:        actorID(ctx),
	}
}

// publish never fails the caller: the change it reports is already committed.
func (c *Coordinator) publish(ctx context.Context, event model.MembershipEvent) {
	if err := c.events.PublishMembershipEvent(ctx, event); err != nil {
		c.logger.Warn("Failed to publish membership event",
			zap.String("event_type", event.EventType),
			zap.String("organization_id", event.OrganizationID),
			zap.Error(err))
	}
}
