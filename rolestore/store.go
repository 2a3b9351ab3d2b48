package rolestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cmsconsole/access/permission"
	"github.com/redis/go-redis/v9"
)

// ErrRoleNotFound is returned when a role has no stored assignment.
var ErrRoleNotFound = errors.New("role not found")

// ErrRoleDeleted is returned by Load for a role removed with Delete and not
// saved since. It matches ErrRoleNotFound.
var ErrRoleDeleted = fmt.Errorf("%w: deleted", ErrRoleNotFound)

// ErrRedisUnavailable is returned when a Redis command fails.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrCorruptMask is returned when a stored mask cannot be decoded.
var ErrCorruptMask = errors.New("stored role mask corrupt")

// ErrInvalidRole is returned for role names that cannot be used as keys.
var ErrInvalidRole = errors.New("invalid role name")

const maxRoleNameLen = 64

const (
	fieldMask    = "mask"
	fieldVersion = "v"
)

// The version counter lives in its own key so it keeps counting across
// Delete; a recreated role never reuses a version.
const saveRoleScript = `
local v = redis.call("INCR", KEYS[3])
redis.call("HSET", KEYS[1], "mask", ARGV[1], "v", v)
redis.call("SADD", KEYS[2], ARGV[2])
redis.call("SREM", KEYS[4], ARGV[2])
return v
`

const deleteRoleScript = `
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[2], ARGV[1])
redis.call("SADD", KEYS[3], ARGV[1])
return 1
`

var (
	saveRoleLua   = redis.NewScript(saveRoleScript)
	deleteRoleLua = redis.NewScript(deleteRoleScript)
)

// Store is a Redis-backed role assignment store.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a [Store] using prefix as the key namespace.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "acr"
	}
	return &Store{
		redis:  client,
		prefix: prefix,
	}
}

func (s *Store) key(role string) string {
	return s.prefix + ":role:" + role
}

func (s *Store) indexKey() string {
	return s.prefix + ":roles"
}

func (s *Store) versionKey(role string) string {
	return s.prefix + ":rolever:" + role
}

func (s *Store) deletedKey() string {
	return s.prefix + ":roles:deleted"
}

// ValidateRoleName rejects empty names, names longer than 64 bytes, and
// names containing whitespace or ':'.
func ValidateRoleName(role string) error {
	if role == "" || len(role) > maxRoleNameLen {
		return ErrInvalidRole
	}
	if strings.ContainsAny(role, ": \t\r\n") {
		return ErrInvalidRole
	}
	return nil
}

// Save replaces the mask stored for role and returns the new version.
// Versions start at 1 and increase by one on every Save, including a Save
// after Delete. Saving clears a deletion marker.
//
//	Performance: 1 Redis EVALSHA.
func (s *Store) Save(ctx context.Context, role string, mask permission.Mask64) (uint32, error) {
	if err := ValidateRoleName(role); err != nil {
		return 0, err
	}

	data := permission.EncodeMask(&mask)
	keys := []string{s.key(role), s.indexKey(), s.versionKey(role), s.deletedKey()}
	v, err := saveRoleLua.Run(ctx, s.redis, keys, data, role).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return uint32(v), nil
}

// Load returns the stored mask and version for role. A role removed with
// Delete yields ErrRoleDeleted; one never stored yields ErrRoleNotFound.
//
//	Performance: 1 Redis round-trip (HMGET + SISMEMBER pipelined).
func (s *Store) Load(ctx context.Context, role string) (permission.Mask64, uint32, error) {
	if err := ValidateRoleName(role); err != nil {
		return 0, 0, err
	}

	var (
		hm      *redis.SliceCmd
		deleted *redis.BoolCmd
	)
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		hm = pipe.HMGet(ctx, s.key(role), fieldMask, fieldVersion)
		deleted = pipe.SIsMember(ctx, s.deletedKey(), role)
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	vals := hm.Val()
	if len(vals) != 2 || vals[0] == nil {
		if deleted.Val() {
			return 0, 0, ErrRoleDeleted
		}
		return 0, 0, ErrRoleNotFound
	}

	raw, ok := vals[0].(string)
	if !ok {
		return 0, 0, ErrCorruptMask
	}
	mask, err := permission.DecodeMask([]byte(raw))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrCorruptMask, err)
	}

	var version uint32
	if vs, ok := vals[1].(string); ok {
		parsed, err := strconv.ParseUint(vs, 10, 32)
		if err != nil {
			return 0, 0, fmt.Errorf("%w: version %q", ErrCorruptMask, vs)
		}
		version = uint32(parsed)
	}

	return *mask, version, nil
}

// Delete removes role, drops it from the index, and records a deletion
// marker so built-in defaults of the same name stay deleted for every
// instance sharing the store. Deleting a missing role is not an error.
//
//	Performance: 1 Redis EVALSHA.
func (s *Store) Delete(ctx context.Context, role string) error {
	if err := ValidateRoleName(role); err != nil {
		return err
	}

	keys := []string{s.key(role), s.indexKey(), s.deletedKey()}
	if err := deleteRoleLua.Run(ctx, s.redis, keys, role).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// List returns the stored role names, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	roles, err := s.redis.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	sort.Strings(roles)
	return roles, nil
}

// Deleted returns the names carrying a deletion marker, sorted.
func (s *Store) Deleted(ctx context.Context) ([]string, error) {
	roles, err := s.redis.SMembers(ctx, s.deletedKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	sort.Strings(roles)
	return roles, nil
}
