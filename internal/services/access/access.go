// Package access decides which actors may manage an event.
package access

import (
	"context"

	"github.com/mcoot/teamdraw/internal/model"
)

// EventLookup resolves events for ownership checks
type EventLookup interface {
	GetEvent(ctx context.Context, id model.EventID) (*model.Event, error)
}

// AuthorizeEventManager allows admins, and organizers who own the event.
// Role is checked before any lookup so players and anonymous callers never
// learn whether an event exists.
func AuthorizeEventManager(ctx context.Context, events EventLookup, eventID model.EventID, actor *model.Actor) (*model.Event, error) {
	if actor == nil {
		return nil, model.ErrForbidden
	}
	switch actor.Role {
	case model.RoleAdmin, model.RoleOrganizer:
	default:
		return nil, model.ErrForbidden
	}

	event, err := events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if actor.Role == model.RoleOrganizer && event.OrganizerID != actor.UserID {
		return nil, model.ErrForbidden
	}
	return event, nil
}

// CanCreateEvents reports whether the actor may create new events
func CanCreateEvents(actor *model.Actor) bool {
	return actor != nil && (actor.Role == model.RoleAdmin || actor.Role == model.RoleOrganizer)
}
