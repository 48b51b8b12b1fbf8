// Package symlink resolves symbolic links to the canonical path of their
// final target.
package symlink

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dshills/fileindex-mcp/pkg/types"
)

// MaxHops bounds the length of a link chain, matching the usual kernel limit
const MaxHops = 40

// Resolve follows the link chain starting at path and returns the canonical
// absolute path of its ultimate target. A chain that revisits a link or
// exceeds MaxHops is reported as ErrLinkCycle; a missing target as
// ErrBrokenLink. path need not be a link, in which case it is canonicalised.
func Resolve(path string) (string, error) {
	current, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", types.ErrUnreadableEntry, path, err)
	}

	visited := make(map[string]struct{})
	for hops := 0; ; hops++ {
		info, err := os.Lstat(current)
		if err != nil {
			return "", classifyError(path, err)
		}
		if info.Mode()&fs.ModeSymlink == 0 {
			break
		}

		if _, seen := visited[current]; seen || hops >= MaxHops {
			return "", fmt.Errorf("%w: %s", types.ErrLinkCycle, path)
		}
		visited[current] = struct{}{}

		target, err := os.Readlink(current)
		if err != nil {
			return "", classifyError(path, err)
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(current), target)
		}
		current = filepath.Clean(target)
	}

	// Directory components along the way may themselves be links
	canonical, err := filepath.EvalSymlinks(current)
	if err != nil {
		return "", classifyError(path, err)
	}
	return canonical, nil
}

// Within reports whether path lies inside root. Both must be canonical.
func Within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// classifyError maps a filesystem error met while resolving into an error kind
func classifyError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		return fmt.Errorf("%w: %s", types.ErrBrokenLink, path)
	case errors.Is(err, syscall.ELOOP), strings.Contains(err.Error(), "too many links"):
		return fmt.Errorf("%w: %s", types.ErrLinkCycle, path)
	default:
		return fmt.Errorf("%w: %s: %v", types.ErrUnreadableEntry, path, err)
	}
}
