package custody

import "regexp"

// validName enforces a strict alphanumeric-plus-underscore charset, at
// least one character.
var validName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateName is the first thing every custody operation does, before any
// file or crypto work — an invalid name never reaches the key-exists
// check, so it never leaks whether a colliding-but-invalid name exists.
func ValidateName(name string) error {
	if !validName.MatchString(name) {
		return ErrBadName
	}
	return nil
}
