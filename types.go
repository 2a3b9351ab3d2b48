package access

import "github.com/cmsconsole/access/permission"

// AuthResult is returned by [Engine.Validate]. Mask is the permission mask
// the caller holds; Permissions lists the granted codes in catalogue order
// when Result.IncludePermissions is enabled.
type AuthResult struct {
	UserID  string
	Role    string
	TokenID string

	RoleVersion uint32
	Mask        permission.Mask64

	Permissions []Code
}

// RoleInfo describes one role and its assignment.
type RoleInfo struct {
	Name        string  `json:"name"`
	Version     uint32  `json:"version"`
	Permissions []Entry `json:"permissions"`
}
