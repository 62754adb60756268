// Package types provides domain models shared across Switchboard components.
//
// Minimal-dependency design: types.go and switches.go use only the standard library
// so the store, transport and editor packages can share them without pulling in each
// other's stacks. errors.go imports multierr to flatten aggregated field errors;
// ID utilities in ids.go import uuid.
//
// Separation from wire formats: the transport payload and the admin API carry their
// own encodings. This package holds the hand-written types those encodings convert to.
package types

import "regexp"

// SwitchState is the activation mode of a switch.
// Values match the integers submitted by the editing form.
type SwitchState int

const (
	StateDisabled  SwitchState = 1
	StateSelective SwitchState = 2
	StateGlobal    SwitchState = 3
)

// Valid reports whether s is one of the three known states.
func (s SwitchState) Valid() bool {
	return s >= StateDisabled && s <= StateGlobal
}

func (s SwitchState) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateSelective:
		return "selective"
	case StateGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// Limits enforced on switch headers.
const (
	// MaxSwitchNameLength matches the width of the name column and form field.
	MaxSwitchNameLength = 100
)

// switchNamePattern allows ASCII word characters and colons, e.g. "feature:a_b".
var switchNamePattern = regexp.MustCompile(`^[\w:]+$`)

// ValidSwitchName reports whether name is non-empty, within MaxSwitchNameLength,
// and contains only word, underscore and colon characters.
func ValidSwitchName(name string) bool {
	return len(name) <= MaxSwitchNameLength && switchNamePattern.MatchString(name)
}
