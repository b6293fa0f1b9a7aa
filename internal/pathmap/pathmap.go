// Package pathmap maps object keys to local paths and back.
//
// Every local path produced here is checked to stay strictly inside the local
// root before any transfer for it starts.
package pathmap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/internal/validation"
)

// PrefixLength returns how many leading bytes of a key are removed to form
// its relative path. When slash correction is disabled and the prefix does
// not end in '/', only the part up to and including the last '/' is removed,
// so "docs/rep" maps "docs/report.txt" to "report.txt".
func PrefixLength(prefix string, disableSlashCorrection bool) int {
	if disableSlashCorrection && !strings.HasSuffix(prefix, "/") {
		return strings.LastIndex(prefix, "/") + 1
	}
	return len(prefix)
}

// LocalPath maps a relative key to a path under root. The result must be
// inside root and must not be root itself; otherwise ErrPathEscape is returned.
func LocalPath(root, relKey string) (string, error) {
	if relKey == "" {
		return "", escapeError(relKey, "key maps to the local directory itself")
	}

	native := strings.ReplaceAll(relKey, "/", string(filepath.Separator))
	if filepath.IsAbs(native) || filepath.VolumeName(native) != "" {
		return "", escapeError(relKey, "key maps to an absolute path")
	}

	cleanRoot := filepath.Clean(root)
	local := filepath.Join(cleanRoot, native)

	rel, err := filepath.Rel(cleanRoot, local)
	if err != nil {
		return "", escapeError(relKey, err.Error())
	}
	if rel == "." {
		return "", escapeError(relKey, "key maps to the local directory itself")
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", escapeError(relKey, "key escapes the local directory")
	}

	return local, nil
}

// RemoteKey maps a file under root to its object key. The normalized prefix
// is prepended as-is, so with slash correction disabled it acts as a key
// fragment.
func RemoteKey(root, localPath, prefix string) (string, error) {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(localPath))
	if err != nil {
		return "", errors.NewError("remoteKey", fmt.Errorf("%w: %w", errors.ErrPathEscape, err))
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", escapeError(localPath, "file is outside the local directory")
	}

	key := prefix + filepath.ToSlash(rel)
	if err := validation.ValidateObjectKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// EnsureRoot prepares the local root of a download. It fails with
// ErrFileCollision if root exists as a plain file and creates the directory
// chain otherwise.
func EnsureRoot(fs billy.Filesystem, root string) error {
	info, err := fs.Stat(root)
	switch {
	case err == nil && !info.IsDir():
		return errors.NewError("ensureRoot", errors.ErrFileCollision).WithMessage(root)
	case err == nil:
		return nil
	case !os.IsNotExist(err):
		return errors.NewError("ensureRoot", err)
	}

	if err := fs.MkdirAll(root, 0o755); err != nil {
		return errors.NewError("ensureRoot", err)
	}
	return nil
}

// EnsureParent creates the directory that will hold path.
func EnsureParent(fs billy.Filesystem, path string) error {
	return fs.MkdirAll(filepath.Dir(path), 0o755)
}

func escapeError(subject, message string) error {
	return errors.NewError("pathmap", errors.ErrPathEscape).WithKey(subject).WithMessage(message)
}
