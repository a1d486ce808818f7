package scan

import (
	"path"
	"path/filepath"
	"strings"
)

// Exclusions decides which folders a walk prunes.
// Names match a folder name exactly (case-insensitive); patterns are
// wildcards matched against the folder name, or against the relative path
// when they contain a '/'. A trailing '/' is ignored and "**/" matches at
// any depth.
type Exclusions struct {
	names    map[string]struct{}
	patterns []string
}

// NewExclusions builds exclusion rules. Empty entries are ignored.
func NewExclusions(names, patterns []string) *Exclusions {
	e := &Exclusions{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			e.names[strings.ToLower(n)] = struct{}{}
		}
	}
	for _, p := range patterns {
		p = strings.TrimSuffix(filepath.ToSlash(strings.TrimSpace(p)), "/")
		if p != "" {
			e.patterns = append(e.patterns, p)
		}
	}
	return e
}

// Empty reports whether no rule is configured
func (e *Exclusions) Empty() bool {
	return e == nil || (len(e.names) == 0 && len(e.patterns) == 0)
}

// Folder reports whether the folder at rel (forward slashes, relative to
// its root) is excluded
func (e *Exclusions) Folder(rel string) bool {
	if e.Empty() || rel == "" {
		return false
	}

	rel = filepath.ToSlash(rel)
	name := path.Base(rel)
	if _, ok := e.names[strings.ToLower(name)]; ok {
		return true
	}

	for _, pattern := range e.patterns {
		if matchPattern(pattern, rel, name) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, rel, name string) bool {
	// **/x matches x at any depth
	if suffix, ok := strings.CutPrefix(pattern, "**/"); ok {
		if match(suffix, name) {
			return true
		}
		parts := strings.Split(rel, "/")
		depth := strings.Count(suffix, "/") + 1
		for i := 0; i+depth <= len(parts); i++ {
			if match(suffix, strings.Join(parts[i:i+depth], "/")) {
				return true
			}
		}
		return false
	}

	if strings.Contains(pattern, "/") {
		return match(pattern, rel)
	}
	return match(pattern, name)
}

func match(pattern, s string) bool {
	ok, _ := path.Match(pattern, s)
	if !ok {
		ok, _ = path.Match(strings.ToLower(pattern), strings.ToLower(s))
	}
	return ok
}
