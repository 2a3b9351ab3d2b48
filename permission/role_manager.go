package permission

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrRoleManagerFrozen is returned by RegisterRole after Freeze.
var ErrRoleManagerFrozen = errors.New("role manager frozen")

// RoleManager composes role masks from registered permission names.
//
// It holds only built-in defaults. Assignments written at runtime live in
// the role store and are never copied here.
type RoleManager struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string]Mask64
	frozen bool
}

func NewRoleManager(registry *Registry) *RoleManager {
	return &RoleManager{
		registry: registry,
		roles:    make(map[string]Mask64),
	}
}

// RegisterRole adds a role whose mask holds exactly permissionNames.
func (rm *RoleManager) RegisterRole(roleName string, permissionNames []string) error {
	mask, err := rm.Compose(permissionNames)
	if err != nil {
		return err
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.frozen {
		return ErrRoleManagerFrozen
	}

	if roleName == "" {
		return ErrEmptyName
	}

	if _, exists := rm.roles[roleName]; exists {
		return fmt.Errorf("role %q: %w", roleName, ErrDuplicate)
	}

	rm.roles[roleName] = mask
	return nil
}

// ReplaceRole sets or overwrites the mask for roleName.
func (rm *RoleManager) ReplaceRole(roleName string, mask Mask64) error {
	if roleName == "" {
		return ErrEmptyName
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.roles[roleName] = mask
	return nil
}

// Compose builds a mask from permission names without registering a role.
func (rm *RoleManager) Compose(permissionNames []string) (Mask64, error) {
	var mask Mask64
	for _, perm := range permissionNames {
		bit, ok := rm.registry.Bit(perm)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownPermission, perm)
		}
		mask.Set(bit)
	}
	return mask, nil
}

// GetMask returns a copy of the role's mask.
func (rm *RoleManager) GetMask(roleName string) (Mask64, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	mask, ok := rm.roles[roleName]
	return mask, ok
}

// Roles returns the known role names, sorted.
func (rm *RoleManager) Roles() []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	out := make([]string, 0, len(rm.roles))
	for name := range rm.roles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Freeze closes RegisterRole.
func (rm *RoleManager) Freeze() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.frozen = true
}

func (rm *RoleManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.roles)
}
