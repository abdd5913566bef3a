// Package sandbox decides whether filesystem paths may be read or written.
//
// All file-affecting tools resolve their paths through a Policy before
// touching disk. The policy is built once at startup and is read-only
// afterwards; per-session approvals live upstream in the agent, which
// re-invokes a tool with allowOutsideRoot set after the caller confirms.
package sandbox

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Sentinel errors for the three policy outcomes that callers branch on.
var (
	// ErrPathDenied means the path is under a denylist entry. No flag or
	// approval can clear it.
	ErrPathDenied = errors.New("path denied by admin denylist")

	// ErrOutsideRead means the path is outside every allowed read location.
	// Upstream this triggers the confirmation handshake.
	ErrOutsideRead = errors.New("path outside allowed read locations")

	// ErrOutsideWrite means the path is outside the root and no write
	// override applies. Upstream this triggers the confirmation handshake.
	ErrOutsideWrite = errors.New("path outside allowed write locations")
)

// Policy holds the static path rules for one process.
type Policy struct {
	// Root is the base directory; everything under it is readable and
	// writable unconditionally (denylist aside). Relative paths are
	// resolved against it.
	Root string

	// Denylist entries are absolute prefixes that always refuse access,
	// regardless of any other setting.
	Denylist []string

	// ReadOnlyDirs are additional directories readable without approval.
	ReadOnlyDirs []string

	// GlobalRead and GlobalWrite open reads or writes everywhere except
	// the denylist. Admin-level switches, off by default.
	GlobalRead  bool
	GlobalWrite bool
}

// NewPolicy normalizes all configured directories to absolute cleaned paths.
func NewPolicy(root string, denylist, readOnlyDirs []string, globalRead, globalWrite bool) (*Policy, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid sandbox root %q: %w", root, err)
	}
	return &Policy{
		Root:         filepath.Clean(absRoot),
		Denylist:     cleanAll(denylist),
		ReadOnlyDirs: cleanAll(readOnlyDirs),
		GlobalRead:   globalRead,
		GlobalWrite:  globalWrite,
	}, nil
}

func cleanAll(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if d == "" {
			continue
		}
		abs, err := filepath.Abs(d)
		if err != nil {
			continue
		}
		out = append(out, filepath.Clean(abs))
	}
	return out
}

// Resolve turns path into the absolute form the policy reasons about.
// Relative paths are joined against the root.
func (p *Policy) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(p.Root, path)
}

// ResolveReadable approves path for reading, returning its absolute form.
//
// Order: denylist (always wins), root containment, per-call approval,
// global read, configured read-only dirs. Anything else is ErrOutsideRead.
func (p *Policy) ResolveReadable(path string, allowOutsideRoot bool) (string, error) {
	abs := p.Resolve(path)
	if p.denied(abs) {
		return "", ErrPathDenied
	}
	if isUnder(abs, p.Root) {
		return abs, nil
	}
	if allowOutsideRoot {
		return abs, nil
	}
	if p.GlobalRead {
		return abs, nil
	}
	for _, base := range p.ReadOnlyDirs {
		if isUnder(abs, base) {
			return abs, nil
		}
	}
	return "", ErrOutsideRead
}

// ResolveWritable approves path for writing, returning its absolute form.
// Writes have only two routes out of the root: the global write flag or an
// explicit per-call approval.
func (p *Policy) ResolveWritable(path string, allowOutsideRoot bool) (string, error) {
	abs := p.Resolve(path)
	if p.denied(abs) {
		return "", ErrPathDenied
	}
	if isUnder(abs, p.Root) {
		return abs, nil
	}
	if p.GlobalWrite || allowOutsideRoot {
		return abs, nil
	}
	return "", ErrOutsideWrite
}

func (p *Policy) denied(abs string) bool {
	for _, d := range p.Denylist {
		if isUnder(abs, d) {
			return true
		}
	}
	return false
}

// isUnder reports whether abs equals base or lives below it. Both arguments
// must already be cleaned absolute paths.
func isUnder(abs, base string) bool {
	if abs == base {
		return true
	}
	if base == string(filepath.Separator) {
		return strings.HasPrefix(abs, base)
	}
	return strings.HasPrefix(abs, base+string(filepath.Separator))
}
