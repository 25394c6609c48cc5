package models

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the caller's self-described background.
type Role string

const (
	RoleStudent  Role = "Student"
	RoleInvestor Role = "Investor"
	RoleEmployee Role = "Employee"
)

var ErrUnknownRole = errors.New("unknown role")

// Roles lists the selectable roles in display order.
var Roles = []Role{RoleStudent, RoleInvestor, RoleEmployee}

// ParseRole matches s against the known roles, ignoring case and surrounding space.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	for _, r := range Roles {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want student, investor or employee)", ErrUnknownRole, s)
}

// Prompt returns the role as it appears inside a prompt.
func (r Role) Prompt() string {
	return strings.ToLower(string(r))
}

func (r Role) String() string { return string(r) }
