package rbac

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/stockroom/stockroom/internal/shared"
)

// synonyms maps folded spellings (lowercase, no diacritics, single spaces)
// to ranks. Vietnamese labels appear with and without tone marks in
// existing data, folding makes both spellings hit the same key.
var synonyms = map[string]Role{
	"employee":      RoleEmployee,
	"staff":         RoleEmployee,
	"nhan vien":     RoleEmployee,
	"manager":       RoleManager,
	"quan ly":       RoleManager,
	"admin":         RoleAdmin,
	"administrator": RoleAdmin,
	"quan tri":      RoleAdmin,
	"quan tri vien": RoleAdmin,
}

// ParseRole maps a free-text role label to a rank. Unknown labels are
// rejected with ErrInvalidArgument.
func ParseRole(raw string) (Role, error) {
	if role, ok := synonyms[foldRole(raw)]; ok {
		return role, nil
	}
	return 0, fmt.Errorf("unknown role %q: %w", raw, shared.ErrInvalidArgument)
}

// RoleOrLowest parses a stored role, falling back to RoleEmployee so that
// unrecognised values never grant elevated access.
func RoleOrLowest(raw string) Role {
	role, err := ParseRole(raw)
	if err != nil {
		return RoleEmployee
	}
	return role
}

func foldRole(raw string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(raw))
	if err != nil {
		folded = strings.ToLower(raw)
	}
	// đ has no decomposition
	folded = strings.ReplaceAll(folded, "đ", "d")
	return strings.Join(strings.Fields(folded), " ")
}
