package manifest

import (
	"errors"
	"fmt"

	"github.com/keshon/bvctree/internal/hash"
)

var (
	ErrTreeMissing                    = errors.New("tree missing from store")
	ErrUnresolvedConflicts            = errors.New("unresolved conflicts in manifest")
	ErrUnchangedManifestMissingParent = errors.New("unchanged manifest has no parent to reuse")
	ErrNotATree                       = errors.New("entry is not a tree")
	ErrEmptyPath                      = errors.New("empty path")
	ErrManifestConsumed               = errors.New("manifest already saved")
	ErrInvalidRecord                  = errors.New("invalid tree record")
	ErrInvalidElement                 = errors.New("invalid path element")
	ErrUnloadedTree                   = errors.New("tree children not loaded")
	ErrNilEntry                       = errors.New("nil entry")
	ErrInvalidEntry                   = errors.New("invalid entry")
)

// TreeMissingError names the tree that could not be found. It matches
// ErrTreeMissing under errors.Is.
type TreeMissingError struct {
	ID hash.ID
}

func (e *TreeMissingError) Error() string {
	return fmt.Sprintf("tree %s missing from store", e.ID)
}

func (e *TreeMissingError) Is(target error) bool { return target == ErrTreeMissing }
