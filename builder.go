package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmsconsole/access/internal/rate"
	"github.com/cmsconsole/access/jwt"
	"github.com/cmsconsole/access/permission"
	"github.com/cmsconsole/access/rolestore"
	"github.com/redis/go-redis/v9"
)

const seedTimeout = 5 * time.Second

// Builder assembles an [Engine]. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	roles map[string][]string

	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRoles sets the built-in roles as role name -> permission codes.
// Every code must be in the catalogue.
func (b *Builder) WithRoles(r map[string][]string) *Builder {
	b.roles = r
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, lays the catalogue out in a permission
// registry, and seeds built-in roles into Redis when configured to.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- PERMISSION REGISTRY --------
	registry, err := newCatalogueRegistry(cfg.Permission.RootBitReserved)
	if err != nil {
		return nil, err
	}

	// -------- ROLE MANAGER --------
	roleManager := permission.NewRoleManager(registry)
	rootRole := ""
	if cfg.Permission.RootBitReserved {
		rootRole = cfg.Roles.RootRole
	}

	for roleName, codes := range b.roles {
		if roleName == rootRole && rootRole != "" {
			return nil, fmt.Errorf("%w: %q is reserved for the root role", ErrRoleInvalid, roleName)
		}
		if err := rolestore.ValidateRoleName(roleName); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrRoleInvalid, roleName)
		}
		if _, err := ParseCodes(codes); err != nil {
			return nil, fmt.Errorf("role %q: %w", roleName, err)
		}
		if err := roleManager.RegisterRole(roleName, codes); err != nil {
			return nil, err
		}
	}

	if rootRole != "" {
		var root permission.Mask64
		bit, _ := registry.RootBit()
		root.Set(bit)
		if err := roleManager.ReplaceRole(rootRole, root); err != nil {
			return nil, err
		}
	}

	roleManager.Freeze()

	// -------- ROLE STORE --------
	store := rolestore.NewStore(b.redis, cfg.Roles.RedisPrefix)

	if cfg.Roles.SeedOnBuild {
		ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
		err := seedRoles(ctx, store, roleManager, b.roles)
		cancel()
		if err != nil {
			return nil, err
		}
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		RequireIAT:    cfg.JWT.RequireIAT,
		MaxFutureIAT:  cfg.JWT.MaxFutureIAT,
		KeyID:         cfg.JWT.KeyID,
		VerifyKeys:    cloneKeys(cfg.JWT.VerifyKeys),
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:      cloneConfig(cfg),
		registry:    registry,
		roleManager: roleManager,
		roleStore:   store,
		jwtManager:  jm,
		rootRole:    rootRole,
	}
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)
	if cfg.RateLimit.Enabled {
		engine.limiter = rate.New(b.redis, rate.Config{
			Prefix:            cfg.Roles.RedisPrefix,
			MaxIssuePerWindow: cfg.RateLimit.MaxIssuePerWindow,
			Window:            cfg.RateLimit.Window,
		})
	}

	b.built = true
	return engine, nil
}

// newCatalogueRegistry registers every catalogue code in declaration order,
// so that bit i is Code(i).
func newCatalogueRegistry(rootReserved bool) (*permission.Registry, error) {
	registry := permission.NewRegistry(rootReserved)
	for _, c := range Codes() {
		bit, err := registry.Register(c.String())
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", c, err)
		}
		if bit != int(c) {
			return nil, fmt.Errorf("permission %s assigned bit %d, want %d", c, bit, int(c))
		}
	}
	registry.Freeze()
	return registry, nil
}

// seedRoles writes built-in roles that have no stored assignment yet.
// Stored assignments always win over built-in defaults.
func seedRoles(ctx context.Context, store *rolestore.Store, rm *permission.RoleManager, roles map[string][]string) error {
	for roleName := range roles {
		_, _, err := store.Load(ctx, roleName)
		if err == nil || errors.Is(err, rolestore.ErrRoleDeleted) {
			continue
		}
		if !errors.Is(err, rolestore.ErrRoleNotFound) {
			return fmt.Errorf("%w: %w", ErrRoleStoreUnavailable, err)
		}
		mask, _ := rm.GetMask(roleName)
		if _, err := store.Save(ctx, roleName, mask); err != nil {
			return fmt.Errorf("%w: %w", ErrRoleStoreUnavailable, err)
		}
	}
	return nil
}
