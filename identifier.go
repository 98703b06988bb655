package shop

import (
	"regexp"
	"strings"
)

// IdentifierKind tags how a signin identifier should be looked up
type IdentifierKind string

const (
	// IdentifierUsername resolves against the username column
	IdentifierUsername IdentifierKind = "username"
	// IdentifierPhone resolves against the phone column
	IdentifierPhone IdentifierKind = "phone"
	// IdentifierEmail resolves against the email column
	IdentifierEmail IdentifierKind = "email"
)

// Identifier is a classified signin input: the value plus the column it
// resolves against. Classification happens once, before the single store
// lookup.
type Identifier struct {
	Kind  IdentifierKind
	Value string
}

var phoneShapedPattern = regexp.MustCompile(`^[0-9]{10,15}$`)

// ClassifyIdentifier tags a raw usernameOrPhone input. A value of 10 to 15
// digits is treated as a phone number, anything else as a username.
func ClassifyIdentifier(raw string) Identifier {
	trimmed := strings.TrimSpace(raw)

	if phoneShapedPattern.MatchString(trimmed) {
		return Identifier{Kind: IdentifierPhone, Value: trimmed}
	}

	return Identifier{Kind: IdentifierUsername, Value: trimmed}
}

// UsernameIdentifier builds an explicit username identifier
func UsernameIdentifier(username string) Identifier {
	return Identifier{Kind: IdentifierUsername, Value: strings.TrimSpace(username)}
}

// EmailIdentifier builds an explicit email identifier
func EmailIdentifier(email string) Identifier {
	return Identifier{Kind: IdentifierEmail, Value: strings.TrimSpace(email)}
}
