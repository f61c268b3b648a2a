package membership

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ortelius/tenancy-backend/model"
	"go.uber.org/zap"
)

// Reconciler repairs the user-side projection of one organization.
type Reconciler interface {
	ReconcileOrganization(ctx context.Context, orgID string) (int, error)
}

// HandleMembershipEvent decodes one event and reconciles the organization it names.
func HandleMembershipEvent(ctx context.Context, msg []byte, reconciler Reconciler, logger *zap.Logger) error {
	var event model.MembershipEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		return fmt.Errorf("failed to unmarshal MembershipEvent: %w", err)
	}

	if event.EventType == "" || event.OrganizationID == "" {
		return fmt.Errorf("invalid event: missing required fields")
	}

	repaired, err := reconciler.ReconcileOrganization(ctx, event.OrganizationID)
	if err != nil {
		return fmt.Errorf("reconcile organization %s: %w", event.OrganizationID, err)
	}

	logger.Debug("Processed membership event",
		zap.String("event_type", event.EventType),
		zap.String("event_id", event.EventID),
		zap.String("organization_id", event.OrganizationID),
		zap.Int("repaired", repaired))
	return nil
}
