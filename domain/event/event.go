// Package event defines the outbound domain events fanned out to
// connected sessions. Event names are the wire-level frame names.
package event

import (
	"dchat/domain"
)

type DomainEvent interface {
	// Name is the outbound frame name seen by clients.
	Name() string
}

// RoomScoped is implemented by events addressed to one room's
// subscriber set rather than to the whole connected population.
type RoomScoped interface {
	DomainEvent
	RoomID() domain.RoomID
}
