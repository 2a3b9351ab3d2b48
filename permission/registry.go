package permission

import (
	"errors"
	"sync"
)

// MaxBits is the width of every mask handled by this package.
const MaxBits = 64

var (
	// ErrRegistryFrozen is returned by Register after Freeze.
	ErrRegistryFrozen = errors.New("registry frozen")
	// ErrEmptyName is returned for an empty permission or role name.
	ErrEmptyName = errors.New("name cannot be empty")
	// ErrDuplicate is returned when a permission or role is registered twice.
	ErrDuplicate = errors.New("already registered")
	// ErrLimitExceeded is returned when no bit is left for a new permission.
	ErrLimitExceeded = errors.New("permission limit exceeded")
	// ErrUnknownPermission is returned when a role references an unregistered permission.
	ErrUnknownPermission = errors.New("permission not registered")
)

// Registry maps permission names to bit positions within a [Mask64].
type Registry struct {
	rootReserved bool
	rootBit      int

	mu        sync.RWMutex
	nameToBit map[string]int
	bitToName map[int]string
	frozen    bool
}

// NewRegistry creates an empty registry. rootReserved keeps the highest bit
// out of normal assignment and makes it a super-admin bit.
func NewRegistry(rootReserved bool) *Registry {
	r := &Registry{
		rootReserved: rootReserved,
		rootBit:      -1,
		nameToBit:    make(map[string]int),
		bitToName:    make(map[int]string),
	}
	if rootReserved {
		r.rootBit = MaxBits - 1
	}
	return r
}

// Register assigns the next available bit to the named permission and
// returns it. Must be called before [Registry.Freeze].
func (r *Registry) Register(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return -1, ErrRegistryFrozen
	}

	if name == "" {
		return -1, ErrEmptyName
	}

	if _, exists := r.nameToBit[name]; exists {
		return -1, ErrDuplicate
	}

	nextBit := len(r.nameToBit)

	if r.rootReserved && nextBit >= r.rootBit {
		return -1, ErrLimitExceeded
	}

	if nextBit >= MaxBits {
		return -1, ErrLimitExceeded
	}

	r.nameToBit[name] = nextBit
	r.bitToName[nextBit] = name

	return nextBit, nil
}

// Bit returns the bit index for the named permission, or false if not registered.
func (r *Registry) Bit(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bit, ok := r.nameToBit[name]
	return bit, ok
}

// Name returns the permission name for the given bit index, or false if unassigned.
func (r *Registry) Name(bit int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.bitToName[bit]
	return name, ok
}

// Names returns the registered permission names in bit order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.bitToName))
	for bit, name := range r.bitToName {
		out[bit] = name
	}
	return out
}

// Freeze prevents further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Count returns the number of registered permissions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nameToBit)
}

// RootBit returns the reserved root permission bit, or false if root-bit
// reservation is disabled.
func (r *Registry) RootBit() (int, bool) {
	if !r.rootReserved {
		return -1, false
	}
	return r.rootBit, true
}

// RootReserved reports whether the root bit is reserved.
func (r *Registry) RootReserved() bool {
	return r.rootReserved
}
