package msr

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the lifecycle stage of a service instance. Values are ordered;
// an instance only ever moves to the next value.
type Status uint8

const (
	// StatusProvisional is assigned to every newly registered instance.
	StatusProvisional Status = iota
	StatusReleased
	StatusDeprecated
	// StatusWithdrawn is terminal.
	StatusWithdrawn
)

var statusNames = [...]string{
	StatusProvisional: "Provisional",
	StatusReleased:    "Released",
	StatusDeprecated:  "Deprecated",
	StatusWithdrawn:   "Withdrawn",
}

// Statuses lists every status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusProvisional, StatusReleased, StatusDeprecated, StatusWithdrawn}
}

func (s Status) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
	return statusNames[s]
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return int(s) < len(statusNames)
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusWithdrawn
}

// Next returns the single status reachable from s.
func (s Status) Next() (Status, bool) {
	if !s.Valid() || s.Terminal() {
		return s, false
	}
	return s + 1, true
}

// CanTransitionTo reports whether to is exactly one step ahead of s.
func (s Status) CanTransitionTo(to Status) bool {
	next, ok := s.Next()
	return ok && next == to
}

// ParseStatus converts a status name, case-insensitively.
func ParseStatus(value string) (Status, error) {
	trimmed := strings.TrimSpace(value)
	for i, name := range statusNames {
		if strings.EqualFold(name, trimmed) {
			return Status(i), nil
		}
	}
	return 0, failf(ErrInvalidArgument, "unknown status %q", value)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, failf(ErrInvalidArgument, "unknown status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// UnmarshalJSON accepts either the status name or its ordinal, since
// transports mirroring the contract ABI send enums as numbers.
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		return s.UnmarshalText([]byte(name))
	}
	var ordinal uint8
	if err := json.Unmarshal(data, &ordinal); err != nil {
		return failf(ErrInvalidArgument, "status must be a name or ordinal: %s", string(data))
	}
	if !Status(ordinal).Valid() {
		return failf(ErrInvalidArgument, "unknown status %d", ordinal)
	}
	*s = Status(ordinal)
	return nil
}
