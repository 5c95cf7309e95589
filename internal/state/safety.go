package state

import (
	"fmt"
	"regexp"
	"strings"
)

// maxChangeIDLen bounds change ids to a single sane path segment.
const maxChangeIDLen = 255

var changeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidateChangeID enforces the segment-safety rule for change ids: letters,
// digits, hyphens, underscores and dots only; non-empty; at most 255 chars;
// no ".." and no path separators.
func ValidateChangeID(id string) error {
	if id == "" {
		return fmt.Errorf("unsafe change id: empty")
	}
	if len(id) > maxChangeIDLen {
		return fmt.Errorf("unsafe change id: %d chars exceeds %d", len(id), maxChangeIDLen)
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("unsafe change id %q: contains \"..\"", id)
	}
	if !changeIDPattern.MatchString(id) {
		return fmt.Errorf("unsafe change id %q: only letters, digits, \"-\", \"_\" and \".\" are allowed", id)
	}
	return nil
}

// ModuleOf returns the module segment of a change id: everything before the
// first hyphen, or the whole id when there is none.
func ModuleOf(changeID string) string {
	if i := strings.Index(changeID, "-"); i >= 0 {
		return changeID[:i]
	}
	return changeID
}
