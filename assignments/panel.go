package assignments

import (
	"context"

	"github.com/guslozua/bitacora-sync/client"
	"github.com/guslozua/bitacora-sync/logging"
	"github.com/guslozua/bitacora-sync/models"
)

// Panel manages the user-assignment list of one entity. It keeps no
// cache beyond the call at hand; every read goes to the backend.
type Panel struct {
	backend *client.BackendClient
}

func NewPanel(backend *client.BackendClient) *Panel {
	return &Panel{backend: backend}
}

// UnassignOutcome is the per-id result of a bulk unassign. Partial
// failure is expected and reported per id, never all-or-nothing.
type UnassignOutcome struct {
	UserID string `json:"userId"`
	Err    error  `json:"-"`
}

// List fetches the current assignment entries for an entity.
func (p *Panel) List(ctx context.Context, entityKey string) ([]models.AssignmentEntry, error) {
	entityType, id, err := models.SplitKey(entityKey)
	if err != nil {
		return nil, models.NewValidationError("malformed entity key: %q", entityKey)
	}
	return p.backend.Assignments(ctx, entityType, id)
}

// Assign adds users to an entity. Roles are forwarded only when the
// entity is a project; for tasks and subtasks the role channel is
// silently dropped. Users already assigned are skipped so the
// (entityKey, userId) pair stays unique.
func (p *Panel) Assign(ctx context.Context, entityKey string, userIDs []string, roles map[string]string) error {
	entityType, id, err := models.SplitKey(entityKey)
	if err != nil {
		return models.NewValidationError("malformed entity key: %q", entityKey)
	}
	if !models.SupportsRoles(entityType) {
		roles = nil
	}

	current, err := p.backend.Assignments(ctx, entityType, id)
	if err != nil {
		return err
	}
	assigned := make(map[string]bool, len(current))
	for _, entry := range current {
		assigned[entry.UserID] = true
	}

	for _, userID := range userIDs {
		if assigned[userID] {
			continue
		}
		if err := p.backend.Assign(ctx, entityType, id, userID, roles[userID]); err != nil {
			return err
		}
		assigned[userID] = true
	}
	return nil
}

// Unassign removes one user and then positively verifies the removal with
// a re-fetch. A backend that answers success without effecting the change
// yields a desync error, never a claimed success.
func (p *Panel) Unassign(ctx context.Context, entityKey, userID string) error {
	entityType, id, err := models.SplitKey(entityKey)
	if err != nil {
		return models.NewValidationError("malformed entity key: %q", entityKey)
	}

	if err := p.backend.Unassign(ctx, entityType, id, userID); err != nil {
		return err
	}

	return p.verifyAbsent(ctx, entityType, id, userID)
}

func (p *Panel) verifyAbsent(ctx context.Context, entityType models.EntityType, id, userID string) error {
	entries, err := p.backend.Assignments(ctx, entityType, id)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.UserID == userID {
			logging.Logger.Warnf("Event ID: ASSIGNMENT_DESYNC, Description: Backend reported success but user %s is still assigned to %s-%s", userID, entityType, id)
			return models.NewDesyncError("user %s is still assigned to %s after a successful unassign", userID, models.CompositeKey(entityType, id))
		}
	}
	return nil
}

// BulkUnassign removes several users, collecting a per-id outcome. Ids
// that the backend accepted are verified with a single re-fetch at the
// end; any still-present id is downgraded to a desync outcome.
func (p *Panel) BulkUnassign(ctx context.Context, entityKey string, userIDs []string) []UnassignOutcome {
	outcomes := make([]UnassignOutcome, 0, len(userIDs))

	entityType, id, err := models.SplitKey(entityKey)
	if err != nil {
		verr := models.NewValidationError("malformed entity key: %q", entityKey)
		for _, userID := range userIDs {
			outcomes = append(outcomes, UnassignOutcome{UserID: userID, Err: verr})
		}
		return outcomes
	}

	accepted := make([]int, 0, len(userIDs))
	for _, userID := range userIDs {
		err := p.backend.Unassign(ctx, entityType, id, userID)
		outcomes = append(outcomes, UnassignOutcome{UserID: userID, Err: err})
		if err == nil {
			accepted = append(accepted, len(outcomes)-1)
		}
	}

	if len(accepted) == 0 {
		return outcomes
	}

	entries, err := p.backend.Assignments(ctx, entityType, id)
	if err != nil {
		// Verification itself failed; the accepted removals keep their
		// success outcome, the caller resyncs on the next fetch.
		logging.Logger.Warnf("Event ID: ASSIGNMENT_VERIFY_FAILED, Description: Post-bulk verification fetch failed for %s: %v", entityKey, err)
		return outcomes
	}
	present := make(map[string]bool, len(entries))
	for _, entry := range entries {
		present[entry.UserID] = true
	}
	for _, idx := range accepted {
		if present[outcomes[idx].UserID] {
			outcomes[idx].Err = models.NewDesyncError("user %s is still assigned to %s after a successful unassign", outcomes[idx].UserID, entityKey)
		}
	}
	return outcomes
}

// SetRole changes a user's role on a project assignment. A role change is
// a self-loop on an existing assignment; it never unassigns. The endpoint
// exists only for projects, so any other entity type is rejected before
// the network call.
func (p *Panel) SetRole(ctx context.Context, entityKey, userID, role string) error {
	entityType, id, err := models.SplitKey(entityKey)
	if err != nil {
		return models.NewValidationError("malformed entity key: %q", entityKey)
	}
	if !models.SupportsRoles(entityType) {
		return models.NewValidationError("roles are only supported for projects, got %q", entityType)
	}
	return p.backend.UpdateRole(ctx, id, userID, role)
}
