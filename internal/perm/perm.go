package perm

import (
	"strings"

	"reblock-cli/internal/model"
	"reblock-cli/internal/store"
)

const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// CanUser enforces reblock ownership rules for an action on a reusable block.
//
// Rules:
// - Anyone can read.
// - Any known actor can create.
// - update/delete require a known actor that:
//   - owns the block, or
//   - is the human behind the agent that owns it, or
//   - acts on a block with no recorded owner (imported content).
//
// - A temporary block was never persisted, so it cannot be deleted from the store.
func CanUser(db *store.DB, action, actorID string, rb *model.ReusableBlock) bool {
	action = strings.ToLower(strings.TrimSpace(action))
	if action == ActionRead {
		return true
	}
	if db == nil {
		return false
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return false
	}
	actorHuman, ok := db.HumanUserIDForActor(actorID)
	if !ok || strings.TrimSpace(actorHuman) == "" {
		return false
	}

	switch action {
	case ActionCreate:
		return true
	case ActionUpdate, ActionDelete:
	default:
		return false
	}
	if rb == nil {
		return false
	}
	if action == ActionDelete && rb.IsTemporary {
		return false
	}

	owner := strings.TrimSpace(rb.OwnerActorID)
	if owner == "" || owner == actorID {
		return true
	}

	// Human override: a human user can edit blocks owned by their own agents.
	if ownerHuman, ok := db.HumanUserIDForActor(owner); ok && ownerHuman == actorHuman {
		o, _ := db.FindActor(owner)
		if o != nil && o.Kind == model.ActorKindAgent {
			return true
		}
	}
	return false
}
