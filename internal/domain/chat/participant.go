package chat

import (
	"errors"
	"fmt"
	"strings"

	"ride-dispatch/internal/domain/apperr"
)

// Kind is the closed set of parties that may hold a conversation.
type Kind string

const (
	KindDriver     Kind = "driver"
	KindDispatcher Kind = "dispatcher"
	KindCustomer   Kind = "customer"
)

var ErrInvalidKind = errors.New("invalid participant kind")

// ParseKind normalizes (lowercases+trims) and validates a participant kind.
func ParseKind(in string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(in)))
	if k.Valid() {
		return k, nil
	}
	return "", ErrInvalidKind
}

func (k Kind) Valid() bool {
	switch k {
	case KindDriver, KindDispatcher, KindCustomer:
		return true
	default:
		return false
	}
}

func (k Kind) String() string { return string(k) }

// rank fixes the canonical order of the two participants.
func (k Kind) rank() int {
	switch k {
	case KindDriver:
		return 0
	case KindDispatcher:
		return 1
	case KindCustomer:
		return 2
	default:
		return 3
	}
}

// Participant identifies one side of a conversation.
type Participant struct {
	Kind Kind   `json:"type"`
	ID   string `json:"id"`
}

func (p Participant) Key() string {
	return string(p.Kind) + ":" + p.ID
}

func (p Participant) Validate() error {
	if !p.Kind.Valid() {
		return fmt.Errorf("%w: %s", apperr.ErrValidation, ErrInvalidKind)
	}
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: participant id is required", apperr.ErrValidation)
	}
	return nil
}

// Canonical orders a pair so that {a,b} and {b,a} map to the same key.
func Canonical(a, b Participant) (Participant, Participant) {
	if a.Kind.rank() > b.Kind.rank() || (a.Kind == b.Kind && a.ID > b.ID) {
		return b, a
	}
	return a, b
}

// Relationship is what the communication policy keys on.
type Relationship string

const (
	RelationshipDuty    Relationship = "duty"    // driver <-> dispatcher
	RelationshipBooking Relationship = "booking" // customer <-> driver
)

var ErrUnsupportedPair = fmt.Errorf("%w: only driver-dispatcher and customer-driver conversations are supported", apperr.ErrValidation)

// RelationshipOf classifies a pair of participants.
func RelationshipOf(a, b Participant) (Relationship, error) {
	a, b = Canonical(a, b)
	switch {
	case a.Kind == KindDriver && b.Kind == KindDispatcher:
		return RelationshipDuty, nil
	case a.Kind == KindDriver && b.Kind == KindCustomer:
		return RelationshipBooking, nil
	default:
		return "", ErrUnsupportedPair
	}
}
