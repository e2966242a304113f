package config

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/keshon/bvctree/internal/fs"
)

var ErrNoRepository = errors.New("not inside a bvctree repository (or any parent)")

// ResolveRepoDir walks up from start until it finds a repository directory
// or a pointer file, and returns the repository root it names.
func ResolveRepoDir(fsys fs.FS, start string) (string, error) {
	cwd, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		if dir := filepath.Join(cwd, RepoDir); fsys.IsDir(dir) {
			return dir, nil
		}
		if ptr := filepath.Join(cwd, RepoPointerFile); fsys.Exists(ptr) {
			data, err := fsys.ReadFile(ptr)
			if err != nil {
				return "", err
			}
			target := filepath.Clean(strings.TrimSpace(string(data)))
			if !filepath.IsAbs(target) {
				target = filepath.Join(cwd, target)
			}
			return target, nil
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			return "", ErrNoRepository
		}
		cwd = parent
	}
}
