package users

import "strings"

type Access byte

const (
	AccessUndefined Access = 0
	AccessForbidden Access = 1
	AccessAllowed   Access = 2
)

// SubjectAccess decides whether the authenticated subject may mutate target.
// Only the owner of a profile may mutate it.
func SubjectAccess(subject Email, target Email) Access {
	switch {
	case strings.TrimSpace(string(subject)) == "":
		return AccessUndefined
	case subject == target:
		return AccessAllowed
	default:
		return AccessForbidden
	}
}
