package access

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cmsconsole/access/permission"
	"github.com/cmsconsole/access/rolestore"
)

func TestIssueAndValidateJWTOnly(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	token, err := engine.IssueAccess(ctx, "u-1", "editor")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	res, err := engine.Validate(ctx, token, ModeInherit)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.UserID != "u-1" || res.Role != "editor" || res.TokenID == "" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.RoleVersion != 1 {
		t.Fatalf("expected seeded role version 1, got %d", res.RoleVersion)
	}
	want := []Code{AdminNewsFindList, AdminNewsFindDetail, AdminNewsUpdateInfo}
	if len(res.Permissions) != len(want) {
		t.Fatalf("expected %v, got %v", want, res.Permissions)
	}
	for i := range want {
		if res.Permissions[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, res.Permissions)
		}
	}
}

func TestIssueAccessRejectsUnknownRoleAndEmptyUser(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.IssueAccess(ctx, "u-1", "ghost"); !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound, got %v", err)
	}
	if _, err := engine.IssueAccess(ctx, "u-1", "bad role"); !errors.Is(err, ErrRoleInvalid) {
		t.Fatalf("expected ErrRoleInvalid, got %v", err)
	}
	if _, err := engine.IssueAccess(ctx, "", "editor"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestValidateRejectsBadTokens(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.Validate(ctx, "", ModeInherit); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("empty token: expected ErrUnauthorized, got %v", err)
	}
	if _, err := engine.Validate(ctx, "a.b.c", ModeInherit); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("garbage token: expected ErrTokenInvalid, got %v", err)
	}

	token, err := engine.IssueAccess(ctx, "u-1", "editor")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	tampered := token[:len(token)-2] + "xx"
	if strings.HasSuffix(token, "xx") {
		tampered = token[:len(token)-2] + "yy"
	}
	if _, err := engine.Validate(ctx, tampered, ModeInherit); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("tampered token: expected ErrTokenInvalid, got %v", err)
	}

	if _, err := engine.Validate(ctx, token, ValidationMode(7)); !errors.Is(err, ErrInvalidRouteMode) {
		t.Fatalf("expected ErrInvalidRouteMode, got %v", err)
	}

	other := testConfig()
	other.JWT.PrivateKey = []byte("another-32-byte-secret-for-tests!")
	_, rdb := newTestRedis(t)
	foreign := buildTestEngine(t, other, rdb, nil)
	if _, err := foreign.Validate(ctx, token, ModeInherit); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("foreign key: expected ErrTokenInvalid, got %v", err)
	}
}

func TestAuthorize(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	token, _ := engine.IssueAccess(ctx, "u-1", "editor")
	res, err := engine.Validate(ctx, token, ModeJWTOnly)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if err := engine.Authorize(ctx, res, AdminNewsUpdateInfo); err != nil {
		t.Fatalf("expected grant, got %v", err)
	}
	if err := engine.Authorize(ctx, res, AdminNewsDelete); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if err := engine.Authorize(ctx, res, Code(99)); !errors.Is(err, ErrPermissionNotFound) {
		t.Fatalf("expected ErrPermissionNotFound, got %v", err)
	}
	if err := engine.Authorize(ctx, nil, AdminNewsFindList); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if err := engine.AuthorizeCode(ctx, res, "admin:news:find:detail"); err != nil {
		t.Fatalf("AuthorizeCode grant: %v", err)
	}
	if err := engine.AuthorizeCode(ctx, res, "admin:news:teleport"); !errors.Is(err, ErrPermissionNotFound) {
		t.Fatalf("AuthorizeCode unknown: expected ErrPermissionNotFound, got %v", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricPermissionGranted] != 2 {
		t.Fatalf("granted = %d", snap.Counters[MetricPermissionGranted])
	}
	if snap.Counters[MetricPermissionDenied] != 1 {
		t.Fatalf("denied = %d", snap.Counters[MetricPermissionDenied])
	}
	if snap.Counters[MetricUnknownPermission] != 2 {
		t.Fatalf("unknown = %d", snap.Counters[MetricUnknownPermission])
	}
}

func TestRootRoleHoldsEveryCode(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	token, err := engine.IssueAccess(ctx, "u-0", "root")
	if err != nil {
		t.Fatalf("IssueAccess root: %v", err)
	}
	for _, mode := range []RouteMode{ModeJWTOnly, ModeStrict} {
		res, err := engine.Validate(ctx, token, mode)
		if err != nil {
			t.Fatalf("Validate(%s): %v", mode, err)
		}
		if len(res.Permissions) != CodeCount() {
			t.Fatalf("root holds %d codes, want %d", len(res.Permissions), CodeCount())
		}
		for _, c := range Codes() {
			if err := engine.Authorize(ctx, res, c); err != nil {
				t.Fatalf("root denied %s: %v", c, err)
			}
		}
	}
}

func TestRootBitNotReserved(t *testing.T) {
	cfg := testConfig()
	cfg.Permission.RootBitReserved = false
	_, rdb := newTestRedis(t)
	engine := buildTestEngine(t, cfg, rdb, nil)

	if _, err := engine.IssueAccess(context.Background(), "u-0", "root"); !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("expected no root role, got %v", err)
	}

	var mask permission.Mask64
	mask.Set(permission.MaxBits - 1)
	if engine.HasPermission(mask, AdminUserCreate) {
		t.Fatal("bit 63 granted a code without a reserved root bit")
	}
}

func TestSetRolePermissionsValidatesEveryCode(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.SetRolePermissions(ctx, "editor", []string{"admin:news:create", "admin:news:teleport"})
	if !errors.Is(err, ErrPermissionNotFound) {
		t.Fatalf("expected ErrPermissionNotFound, got %v", err)
	}

	info, err := engine.RolePermissions(ctx, "editor")
	if err != nil {
		t.Fatalf("RolePermissions: %v", err)
	}
	if info.Version != 1 || len(info.Permissions) != 3 {
		t.Fatalf("rejected update changed the role: %+v", info)
	}

	if engine.MetricsSnapshot().Counters[MetricRoleRejected] != 1 {
		t.Fatal("expected role rejection to be counted")
	}
}

func TestSetRolePermissionsRejectsRootAndBadNames(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	for _, role := range []string{"root", "", "has space", "a:b", strings.Repeat("r", 65)} {
		if _, err := engine.SetRolePermissions(ctx, role, nil); !errors.Is(err, ErrRoleInvalid) {
			t.Fatalf("role %q: expected ErrRoleInvalid, got %v", role, err)
		}
	}
	if err := engine.DeleteRole(ctx, "root"); !errors.Is(err, ErrRoleInvalid) {
		t.Fatalf("DeleteRole(root): expected ErrRoleInvalid, got %v", err)
	}
}

func TestSetRolePermissionsCreatesAndVersions(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	v, err := engine.SetRolePermissions(ctx, "news_admin", []string{"admin:news:delete", "admin:news:create"})
	if err != nil {
		t.Fatalf("SetRolePermissions: %v", err)
	}
	if v != 1 {
		t.Fatalf("expected version 1 for a new role, got %d", v)
	}

	info, err := engine.RolePermissions(ctx, "news_admin")
	if err != nil {
		t.Fatalf("RolePermissions: %v", err)
	}
	if len(info.Permissions) != 2 || info.Permissions[0].Code != AdminNewsCreate || info.Permissions[1].Code != AdminNewsDelete {
		t.Fatalf("expected catalogue order, got %+v", info.Permissions)
	}
	if info.Permissions[0].Label != "创建新闻" {
		t.Fatalf("unexpected label %q", info.Permissions[0].Label)
	}

	v, err = engine.SetRolePermissions(ctx, "news_admin", nil)
	if err != nil || v != 2 {
		t.Fatalf("second write: v=%d err=%v", v, err)
	}
	info, _ = engine.RolePermissions(ctx, "news_admin")
	if len(info.Permissions) != 0 {
		t.Fatalf("expected empty assignment, got %+v", info.Permissions)
	}
}

func TestStrictModeRejectsStaleRoleVersion(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	token, _ := engine.IssueAccess(ctx, "u-1", "editor")
	if _, err := engine.Validate(ctx, token, ModeStrict); err != nil {
		t.Fatalf("strict before change: %v", err)
	}

	if _, err := engine.SetRolePermissions(ctx, "editor", []string{"admin:news:find:list"}); err != nil {
		t.Fatalf("SetRolePermissions: %v", err)
	}

	if _, err := engine.Validate(ctx, token, ModeStrict); !errors.Is(err, ErrRoleVersionStale) {
		t.Fatalf("expected ErrRoleVersionStale, got %v", err)
	}

	res, err := engine.Validate(ctx, token, ModeJWTOnly)
	if err != nil {
		t.Fatalf("jwt-only after change: %v", err)
	}
	if err := engine.Authorize(ctx, res, AdminNewsUpdateInfo); err != nil {
		t.Fatalf("jwt-only keeps the issued mask until expiry: %v", err)
	}

	fresh, _ := engine.IssueAccess(ctx, "u-1", "editor")
	res, err = engine.Validate(ctx, fresh, ModeStrict)
	if err != nil {
		t.Fatalf("strict with fresh token: %v", err)
	}
	if err := engine.Authorize(ctx, res, AdminNewsUpdateInfo); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected new assignment to apply, got %v", err)
	}

	if engine.MetricsSnapshot().Counters[MetricRoleVersionStale] != 1 {
		t.Fatal("expected stale rejection to be counted")
	}
}

func TestRedisOutage(t *testing.T) {
	mr, rdb := newTestRedis(t)
	engine := buildTestEngine(t, testConfig(), rdb, nil)
	ctx := context.Background()

	token, err := engine.IssueAccess(ctx, "u-1", "editor")
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	mr.Close()

	if _, err := engine.Validate(ctx, token, ModeJWTOnly); err != nil {
		t.Fatalf("jwt-only must not need redis: %v", err)
	}
	if _, err := engine.Validate(ctx, token, ModeStrict); !errors.Is(err, ErrRoleStoreUnavailable) {
		t.Fatalf("strict: expected ErrRoleStoreUnavailable, got %v", err)
	}
	if _, err := engine.SetRolePermissions(ctx, "editor", nil); !errors.Is(err, ErrRoleStoreUnavailable) {
		t.Fatalf("write: expected ErrRoleStoreUnavailable, got %v", err)
	}
	if _, err := engine.Roles(ctx); !errors.Is(err, ErrRoleStoreUnavailable) {
		t.Fatalf("Roles: expected ErrRoleStoreUnavailable, got %v", err)
	}
}

func TestDeleteRoleAndRoles(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	if _, err := engine.SetRolePermissions(ctx, "auditor", []string{"admin:role:find:list"}); err != nil {
		t.Fatalf("SetRolePermissions: %v", err)
	}

	roles, err := engine.Roles(ctx)
	if err != nil {
		t.Fatalf("Roles: %v", err)
	}
	want := []string{"auditor", "editor", "root", "user_admin"}
	if strings.Join(roles, ",") != strings.Join(want, ",") {
		t.Fatalf("Roles = %v, want %v", roles, want)
	}

	if err := engine.DeleteRole(ctx, "editor"); err != nil {
		t.Fatalf("DeleteRole: %v", err)
	}
	if _, err := engine.RolePermissions(ctx, "editor"); !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("expected ErrRoleNotFound after delete, got %v", err)
	}
	if err := engine.DeleteRole(ctx, "editor"); !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("second delete: expected ErrRoleNotFound, got %v", err)
	}

	roles, _ = engine.Roles(ctx)
	if strings.Join(roles, ",") != "auditor,root,user_admin" {
		t.Fatalf("Roles after delete = %v", roles)
	}
}

func TestStoredAssignmentWinsOverSeed(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	first := buildTestEngine(t, testConfig(), rdb, nil)
	if _, err := first.SetRolePermissions(ctx, "editor", []string{"admin:news:delete"}); err != nil {
		t.Fatalf("SetRolePermissions: %v", err)
	}

	second := buildTestEngine(t, testConfig(), rdb, nil)
	info, err := second.RolePermissions(ctx, "editor")
	if err != nil {
		t.Fatalf("RolePermissions: %v", err)
	}
	if info.Version != 2 || len(info.Permissions) != 1 || info.Permissions[0].Code != AdminNewsDelete {
		t.Fatalf("seed overwrote stored assignment: %+v", info)
	}
}

func TestBuiltinRoleWithoutSeed(t *testing.T) {
	cfg := testConfig()
	cfg.Roles.SeedOnBuild = false
	_, rdb := newTestRedis(t)
	engine := buildTestEngine(t, cfg, rdb, nil)
	ctx := context.Background()

	store := rolestore.NewStore(rdb, cfg.Roles.RedisPrefix)
	if _, _, err := store.Load(ctx, "editor"); !errors.Is(err, rolestore.ErrRoleNotFound) {
		t.Fatalf("expected nothing seeded, got %v", err)
	}

	info, err := engine.RolePermissions(ctx, "editor")
	if err != nil {
		t.Fatalf("RolePermissions: %v", err)
	}
	if info.Version != 0 || len(info.Permissions) != 3 {
		t.Fatalf("expected built-in default at version 0, got %+v", info)
	}

	token, _ := engine.IssueAccess(ctx, "u-1", "editor")
	if _, err := engine.Validate(ctx, token, ModeStrict); err != nil {
		t.Fatalf("strict with built-in role: %v", err)
	}
}

func TestBuilderErrors(t *testing.T) {
	_, rdb := newTestRedis(t)

	if _, err := New().WithConfig(testConfig()).Build(); err == nil {
		t.Fatal("expected error without redis")
	}

	_, err := New().WithConfig(testConfig()).WithRedis(rdb).
		WithRoles(map[string][]string{"x": {"admin:user:teleport"}}).Build()
	if !errors.Is(err, ErrPermissionNotFound) {
		t.Fatalf("expected ErrPermissionNotFound, got %v", err)
	}

	_, err = New().WithConfig(testConfig()).WithRedis(rdb).
		WithRoles(map[string][]string{"root": {"admin:user:create"}}).Build()
	if !errors.Is(err, ErrRoleInvalid) {
		t.Fatalf("expected ErrRoleInvalid for root, got %v", err)
	}

	_, err = New().WithConfig(testConfig()).WithRedis(rdb).
		WithRoles(map[string][]string{"bad name": nil}).Build()
	if !errors.Is(err, ErrRoleInvalid) {
		t.Fatalf("expected ErrRoleInvalid for bad name, got %v", err)
	}

	b := New().WithConfig(testConfig()).WithRedis(rdb)
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected builder reuse to fail")
	}
}

func TestNilEngine(t *testing.T) {
	var e *Engine
	ctx := context.Background()

	if _, err := e.IssueAccess(ctx, "u", "r"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("IssueAccess: %v", err)
	}
	if _, err := e.Validate(ctx, "t", ModeInherit); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("Validate: %v", err)
	}
	if err := e.Authorize(ctx, &AuthResult{}, AdminUserCreate); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("Authorize: %v", err)
	}
	if _, err := e.SetRolePermissions(ctx, "r", nil); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("SetRolePermissions: %v", err)
	}
	if e.AuditDropped() != 0 || len(e.MetricsSnapshot().Counters) != 0 {
		t.Fatal("nil engine reported state")
	}
	e.Close()
}

func TestValidateLatencyHistogram(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	token, _ := engine.IssueAccess(ctx, "u-1", "editor")
	for i := 0; i < 5; i++ {
		if _, err := engine.Validate(ctx, token, ModeJWTOnly); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	}

	var total uint64
	for _, n := range engine.MetricsSnapshot().Histograms[MetricValidateLatency] {
		total += n
	}
	if total != 5 {
		t.Fatalf("expected 5 latency samples, got %d", total)
	}
}
