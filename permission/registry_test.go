package permission

import (
	"errors"
	"fmt"
	"testing"
)

func TestRegistryAssignsBitsInOrder(t *testing.T) {
	r := NewRegistry(false)
	names := []string{"admin:user:create", "admin:user:delete", "admin:news:create"}
	for i, name := range names {
		bit, err := r.Register(name)
		if err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
		if bit != i {
			t.Fatalf("expected bit %d for %s, got %d", i, name, bit)
		}
	}

	if got := r.Count(); got != len(names) {
		t.Fatalf("expected count %d, got %d", len(names), got)
	}
	if name, ok := r.Name(1); !ok || name != "admin:user:delete" {
		t.Fatalf("unexpected Name(1): %q %v", name, ok)
	}
	got := r.Names()
	for i := range names {
		if got[i] != names[i] {
			t.Fatalf("Names()[%d] = %q, want %q", i, got[i], names[i])
		}
	}
}

func TestRegistryRejects(t *testing.T) {
	r := NewRegistry(false)
	if _, err := r.Register(""); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if _, err := r.Register("a:b:c"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := r.Register("a:b:c"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	r.Freeze()
	if _, err := r.Register("a:b:d"); !errors.Is(err, ErrRegistryFrozen) {
		t.Fatalf("expected ErrRegistryFrozen, got %v", err)
	}
}

func TestRegistryLimits(t *testing.T) {
	cases := []struct {
		rootReserved bool
		capacity     int
	}{
		{rootReserved: false, capacity: 64},
		{rootReserved: true, capacity: 63},
	}

	for _, tc := range cases {
		r := NewRegistry(tc.rootReserved)
		for i := 0; i < tc.capacity; i++ {
			if _, err := r.Register(fmt.Sprintf("p:%d:x", i)); err != nil {
				t.Fatalf("root=%v register %d: %v", tc.rootReserved, i, err)
			}
		}
		if _, err := r.Register("overflow:x:y"); !errors.Is(err, ErrLimitExceeded) {
			t.Fatalf("root=%v expected ErrLimitExceeded, got %v", tc.rootReserved, err)
		}
		bit, ok := r.RootBit()
		if ok != tc.rootReserved {
			t.Fatalf("RootBit ok=%v, want %v", ok, tc.rootReserved)
		}
		if ok && bit != 63 {
			t.Fatalf("expected root bit 63, got %d", bit)
		}
	}
}

func TestMask64HasAndRoot(t *testing.T) {
	var m Mask64
	m.Set(3)
	m.Set(19)

	if !m.Has(3, false) || !m.Has(19, false) {
		t.Fatal("expected bits 3 and 19")
	}
	if m.Has(4, false) {
		t.Fatal("bit 4 should be clear")
	}
	if got := m.Bits(); len(got) != 2 || got[0] != 3 || got[1] != 19 {
		t.Fatalf("unexpected Bits(): %v", got)
	}

	m.Clear(3)
	if m.Has(3, false) {
		t.Fatal("bit 3 should be cleared")
	}

	var root Mask64
	root.Set(63)
	if !root.Has(5, true) {
		t.Fatal("root bit should grant every permission when reserved")
	}
	if root.Has(5, false) {
		t.Fatal("root bit must not grant when reservation is disabled")
	}
	if m.Has(-1, false) || m.Has(64, false) {
		t.Fatal("out of range bits must report false")
	}
}

func TestRoleManagerComposeAndReplace(t *testing.T) {
	r := NewRegistry(true)
	for _, name := range []string{"admin:news:find:list", "admin:news:create", "admin:news:delete"} {
		if _, err := r.Register(name); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	r.Freeze()

	rm := NewRoleManager(r)
	if err := rm.RegisterRole("editor", []string{"admin:news:find:list", "admin:news:create"}); err != nil {
		t.Fatalf("register role: %v", err)
	}
	if err := rm.RegisterRole("editor", nil); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := rm.RegisterRole("bad", []string{"admin:news:teleport"}); !errors.Is(err, ErrUnknownPermission) {
		t.Fatalf("expected ErrUnknownPermission, got %v", err)
	}

	mask, ok := rm.GetMask("editor")
	if !ok {
		t.Fatal("editor missing")
	}
	if mask.Raw() != 0b011 {
		t.Fatalf("unexpected editor mask %b", mask.Raw())
	}

	rm.Freeze()
	if err := rm.RegisterRole("late", nil); !errors.Is(err, ErrRoleManagerFrozen) {
		t.Fatalf("expected ErrRoleManagerFrozen, got %v", err)
	}

	if err := rm.ReplaceRole("editor", Mask64(0b100)); err != nil {
		t.Fatalf("replace: %v", err)
	}
	mask, _ = rm.GetMask("editor")
	if mask.Raw() != 0b100 {
		t.Fatalf("replace not applied: %b", mask.Raw())
	}

	if err := rm.ReplaceRole("reviewer", Mask64(1)); err != nil {
		t.Fatalf("replace new role: %v", err)
	}
	roles := rm.Roles()
	if len(roles) != 2 || roles[0] != "editor" || roles[1] != "reviewer" {
		t.Fatalf("unexpected roles %v", roles)
	}
	if rm.Count() != 2 {
		t.Fatalf("expected 2 roles, got %d", rm.Count())
	}
}
