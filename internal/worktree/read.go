package worktree

import (
	"fmt"
	"os"

	"golang.org/x/exp/mmap"

	"github.com/keshon/bvctree/internal/manifest"
)

// ReadLeaf returns the blob content of a local path and its entry type. A
// symlink yields its target, a regular file with any execute bit is an
// executable.
func ReadLeaf(path string) ([]byte, manifest.Type, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, 0, err
	}
	mode := info.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return nil, 0, err
		}
		return []byte(target), manifest.TypeSymlink, nil
	case mode.IsDir():
		return nil, 0, fmt.Errorf("%s is a directory", path)
	case !mode.IsRegular():
		return nil, 0, fmt.Errorf("%s is not a regular file", path)
	}

	reader, err := mmap.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("mmap %s: %w", path, err)
	}
	defer reader.Close()
	data := make([]byte, reader.Len())
	if _, err := reader.ReadAt(data, 0); err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", path, err)
	}

	typ := manifest.TypeFile
	if mode.Perm()&0o111 != 0 {
		typ = manifest.TypeExecutable
	}
	return data, typ, nil
}
