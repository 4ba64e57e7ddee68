package dependency

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrOutsideRoot is returned when a path resolves outside the output root.
var ErrOutsideRoot = errors.New("path is outside the output root")

// PathManager confines generated and served files to a single output root
// (./output by default) and names generated files.
//
// Layout under the root:
//   - captions/YYYYMMDD_HHMMSS_ffffff.ass
//   - videos/YYYYMMDD_HHMMSS_ffffff.mp4
//   - tmp/slideshow_YYYYMMDD_HHMMSS_<id>/ (per-build work directories)
type PathManager struct {
	root string
}

// NewPathManager creates a PathManager rooted at root. Relative roots are
// resolved against the working directory once, at construction.
func NewPathManager(root string) *PathManager {
	if root == "" {
		root = "./output"
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = filepath.Clean(root)
	}
	return &PathManager{root: abs}
}

// Root returns the absolute output root.
func (pm *PathManager) Root() string {
	return pm.root
}

// Contains reports whether the absolute path abs lies in the root.
func (pm *PathManager) Contains(abs string) bool {
	rel, err := filepath.Rel(pm.root, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Resolve makes p absolute and checks it lies in the root.
func (pm *PathManager) Resolve(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if !pm.Contains(abs) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, p)
	}
	return abs, nil
}

// ResolveExisting resolves p like Resolve and additionally requires it to
// exist. A missing file yields an error wrapping os.ErrNotExist.
func (pm *PathManager) ResolveExisting(p string) (string, error) {
	abs, err := pm.Resolve(p)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("stat %s: %w", p, err)
	}
	return abs, nil
}

// ResolveOutput returns the path to write to: p itself when given (after
// the root check), otherwise a fresh timestamped file in the sub directory.
// The parent directory is created.
func (pm *PathManager) ResolveOutput(p, sub, ext string) (string, error) {
	if p == "" {
		return pm.DefaultFile(sub, ext)
	}
	abs, err := pm.Resolve(p)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return abs, nil
}

// DefaultFile returns root/sub/YYYYMMDD_HHMMSS_ffffff<ext>, creating root/sub.
func (pm *PathManager) DefaultFile(sub, ext string) (string, error) {
	dir := filepath.Join(pm.root, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return filepath.Join(dir, Timestamp(time.Now())+ext), nil
}

// TempDir creates a unique work directory under root/tmp.
func (pm *PathManager) TempDir(prefix string) (string, error) {
	name := fmt.Sprintf("%s_%s_%s", prefix, time.Now().Format("20060102_150405"), uuid.NewString()[:8])
	dir := filepath.Join(pm.root, "tmp", name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create work directory: %w", err)
	}
	return dir, nil
}

// ValidatePath checks a working directory: inside the root, no traversal,
// no system directory, not a symlink.
func (pm *PathManager) ValidatePath(path string) error {
	if strings.Contains(path, "..") {
		return fmt.Errorf("path contains dangerous characters '..'")
	}
	abs, err := pm.Resolve(path)
	if err != nil {
		return err
	}
	for _, prefix := range forbiddenPrefixes {
		if strings.HasPrefix(abs, prefix+"/") {
			return fmt.Errorf("access to system directory %s is forbidden", prefix)
		}
	}
	info, err := os.Lstat(abs)
	if err == nil && info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("symbolic links are not allowed")
	}
	return nil
}

// Timestamp formats t as YYYYMMDD_HHMMSS_ffffff (microseconds).
func Timestamp(t time.Time) string {
	return fmt.Sprintf("%s_%06d", t.Format("20060102_150405"), t.Nanosecond()/1000)
}
