package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// NormalizePath returns the cleaned absolute form of path
func NormalizePath(path string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}

	// On Windows, ensure UNC paths are preserved
	if IsUNCPath(path) {
		normalized := filepath.Clean(path)
		if !strings.HasPrefix(normalized, "\\\\") {
			normalized = "\\\\" + strings.TrimLeft(normalized, "\\/")
		}
		return normalized, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &PathError{Path: path, Message: err.Error()}
	}
	return abs, nil
}

// NormalizePaths normalizes every path, failing on the first invalid one
func NormalizePaths(paths []string) ([]string, error) {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		n, err := NormalizePath(p)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// IsUNCPath checks if a path is a UNC path (Windows network share)
func IsUNCPath(path string) bool {
	if runtime.GOOS != "windows" {
		return false
	}
	return strings.HasPrefix(path, "\\\\") || strings.HasPrefix(path, "//")
}

// ValidatePath checks if a path is valid for the current platform
func ValidatePath(path string) error {
	if path == "" {
		return &PathError{Path: path, Message: "path is empty"}
	}

	// Check for invalid characters based on OS
	if runtime.GOOS == "windows" {
		invalidChars := []string{"<", ">", "\"", "|", "?", "*"}
		for _, char := range invalidChars {
			if strings.Contains(path, char) {
				return &PathError{Path: path, Message: "path contains invalid character: " + char}
			}
		}
	}

	return nil
}

// RequireFolder checks that path exists and is a folder
func RequireFolder(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return &PathError{Path: path, Message: "does not exist"}
	}
	if err != nil {
		return &PathError{Path: path, Message: err.Error()}
	}
	if !info.IsDir() {
		return &PathError{Path: path, Message: "exists but is not a folder"}
	}
	return nil
}

// EnsureFolder creates path when missing
func EnsureFolder(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", path, err)
	}
	return RequireFolder(path)
}

// Contains reports whether child is parent or lies inside it.
// Both paths must be normalized.
func Contains(parent, child string) bool {
	if samePath(parent, child) {
		return true
	}
	prefix := parent
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	if runtime.GOOS == "windows" {
		return strings.HasPrefix(strings.ToLower(child), strings.ToLower(prefix))
	}
	return strings.HasPrefix(child, prefix)
}

// CheckDisjoint fails when target equals, contains or lies inside any root
func CheckDisjoint(target string, roots []string) error {
	for _, root := range roots {
		switch {
		case samePath(root, target):
			return fmt.Errorf("%s is used as both source and destination", target)
		case Contains(root, target):
			return fmt.Errorf("destination %s cannot be inside %s", target, root)
		case Contains(target, root):
			return fmt.Errorf("%s cannot be inside destination %s", root, target)
		}
	}
	return nil
}

func samePath(a, b string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// PathError represents a path validation error
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return "invalid path '" + e.Path + "': " + e.Message
}
