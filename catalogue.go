package access

import (
	"fmt"
	"strings"
)

// Code identifies one grantable capability of the admin console. The set of
// codes is closed; the zero value is AdminCUserFindList.
type Code uint8

const (
	// AdminCUserFindList lists end-user (C-side) accounts.
	AdminCUserFindList Code = iota
	// AdminCUserUpdateStatus changes an end-user account status.
	AdminCUserUpdateStatus
	// AdminUserFindList lists administrators.
	AdminUserFindList
	// AdminUserCreate creates an administrator.
	AdminUserCreate
	// AdminUserUpdateInfo edits an administrator's basic profile.
	AdminUserUpdateInfo
	// AdminUserDelete deletes an administrator.
	AdminUserDelete
	// AdminUserUpdatePassword resets an administrator's password.
	AdminUserUpdatePassword
	// AdminUserUpdateStatus enables or disables an administrator.
	AdminUserUpdateStatus
	// AdminUserUpdateRole changes an administrator's role.
	AdminUserUpdateRole
	// AdminUserUploadFile uploads a file to local storage.
	AdminUserUploadFile
	// AdminRoleFindList lists administrator roles.
	AdminRoleFindList
	// AdminRoleCreate creates an administrator role.
	AdminRoleCreate
	// AdminRoleUpdateInfo edits an administrator role.
	AdminRoleUpdateInfo
	// AdminRoleDelete deletes an administrator role.
	AdminRoleDelete
	// AdminRoleUpdateCode replaces the permission codes held by a role.
	AdminRoleUpdateCode
	// AdminNewsFindList lists news articles.
	AdminNewsFindList
	// AdminNewsFindDetail reads a single news article.
	AdminNewsFindDetail
	// AdminNewsCreate publishes a news article.
	AdminNewsCreate
	// AdminNewsUpdateInfo edits a news article.
	AdminNewsUpdateInfo
	// AdminNewsDelete deletes a news article.
	AdminNewsDelete

	codeCount
)

// Entry pairs a permission code with its display label.
type Entry struct {
	Code  Code   `json:"code"`
	Label string `json:"label"`
}

type catalogueRow struct {
	code  string
	label string
}

// Rows are indexed by Code; order is the console's display order.
var catalogue = [codeCount]catalogueRow{
	AdminCUserFindList:      {"admin:c_user:find:list", "查询C端用户列表"},
	AdminCUserUpdateStatus:  {"admin:c_user:update:status", "修改C端用户状态"},
	AdminUserFindList:       {"admin:user:find:list", "查询管理员列表"},
	AdminUserCreate:         {"admin:user:create", "创建管理员"},
	AdminUserUpdateInfo:     {"admin:user:update:info", "修改管理员基本信息"},
	AdminUserDelete:         {"admin:user:delete", "删除管理员"},
	AdminUserUpdatePassword: {"admin:user:update:password", "修改管理员密码"},
	AdminUserUpdateStatus:   {"admin:user:update:status", "修改管理员状态"},
	AdminUserUpdateRole:     {"admin:user:update:role", "修改管理员角色"},
	AdminUserUploadFile:     {"admin:user:upload:file", "上传文件到本地"},
	AdminRoleFindList:       {"admin:role:find:list", "查询管理员角色列表"},
	AdminRoleCreate:         {"admin:role:create", "创建管理员角色"},
	AdminRoleUpdateInfo:     {"admin:role:update:info", "修改管理员角色信息"},
	AdminRoleDelete:         {"admin:role:delete", "删除管理员角色"},
	AdminRoleUpdateCode:     {"admin:role:update:code", "修改管理角色权限码"},
	AdminNewsFindList:       {"admin:news:find:list", "查询新闻列表"},
	AdminNewsFindDetail:     {"admin:news:find:detail", "查询新闻详情"},
	AdminNewsCreate:         {"admin:news:create", "创建新闻"},
	AdminNewsUpdateInfo:     {"admin:news:update:info", "修改新闻信息"},
	AdminNewsDelete:         {"admin:news:delete", "删除新闻"},
}

var codeIndex map[string]Code

func init() {
	idx, err := buildCodeIndex(catalogue[:])
	if err != nil {
		panic("access: " + err.Error())
	}
	codeIndex = idx
}

func buildCodeIndex(rows []catalogueRow) (map[string]Code, error) {
	idx := make(map[string]Code, len(rows))
	for i, row := range rows {
		if err := checkCodeFormat(row.code); err != nil {
			return nil, err
		}
		if row.label == "" {
			return nil, fmt.Errorf("permission %q has empty label", row.code)
		}
		if prev, dup := idx[row.code]; dup {
			return nil, fmt.Errorf("permission %q declared twice (positions %d and %d)", row.code, prev, i)
		}
		idx[row.code] = Code(i)
	}
	return idx, nil
}

// checkCodeFormat enforces <domain>:<resource>:<action>[:<qualifier>].
func checkCodeFormat(code string) error {
	parts := strings.Split(code, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return fmt.Errorf("permission %q must have 3 or 4 colon-separated segments", code)
	}
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("permission %q has an empty segment", code)
		}
	}
	return nil
}

// String returns the wire form of c, e.g. "admin:user:create".
// Out-of-range values render as "Code(n)".
func (c Code) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Code(%d)", uint8(c))
	}
	return catalogue[c].code
}

// Label returns the display label for c, or "" if c is out of range.
func (c Code) Label() string {
	if !c.Valid() {
		return ""
	}
	return catalogue[c].label
}

// Valid reports whether c is a member of the catalogue.
func (c Code) Valid() bool {
	return c < codeCount
}

func (c Code) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: Code(%d)", ErrPermissionNotFound, uint8(c))
	}
	return []byte(catalogue[c].code), nil
}

func (c *Code) UnmarshalText(text []byte) error {
	parsed, err := ParseCode(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCode converts a wire code into a Code. Unknown input returns an error
// matching ErrPermissionNotFound. No trimming or case folding is applied.
func ParseCode(s string) (Code, error) {
	c, ok := codeIndex[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrPermissionNotFound, s)
	}
	return c, nil
}

// ParseCodes converts a list of wire codes, failing on the first code that
// is not in the catalogue. Duplicates are preserved.
func ParseCodes(codes []string) ([]Code, error) {
	out := make([]Code, 0, len(codes))
	for _, s := range codes {
		c, err := ParseCode(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ListCodes returns every permission code in declaration order. The slice is
// freshly allocated; callers may modify it.
func ListCodes() []string {
	out := make([]string, 0, codeCount)
	for i := range catalogue {
		out = append(out, catalogue[i].code)
	}
	return out
}

// LabelOf returns the display label for a wire code.
//
// An unknown code yields an error matching ErrPermissionNotFound, never an
// empty label.
func LabelOf(code string) (string, error) {
	c, err := ParseCode(code)
	if err != nil {
		return "", err
	}
	return catalogue[c].label, nil
}

// IsValidCode reports whether code is a member of the catalogue.
func IsValidCode(code string) bool {
	_, ok := codeIndex[code]
	return ok
}

// Codes returns every Code in declaration order.
func Codes() []Code {
	out := make([]Code, 0, codeCount)
	for c := Code(0); c < codeCount; c++ {
		out = append(out, c)
	}
	return out
}

// Entries returns the full catalogue in declaration order.
func Entries() []Entry {
	out := make([]Entry, 0, codeCount)
	for c := Code(0); c < codeCount; c++ {
		out = append(out, Entry{Code: c, Label: catalogue[c].label})
	}
	return out
}

// CodeCount is the size of the catalogue.
func CodeCount() int {
	return int(codeCount)
}
