// Package all registers every bvctree command.
package all

import (
	_ "github.com/keshon/bvctree/internal/command/bookmark"
	_ "github.com/keshon/bvctree/internal/command/cat"
	_ "github.com/keshon/bvctree/internal/command/copy"
	_ "github.com/keshon/bvctree/internal/command/export"
	_ "github.com/keshon/bvctree/internal/command/help"
	_ "github.com/keshon/bvctree/internal/command/import"
	_ "github.com/keshon/bvctree/internal/command/init"
	_ "github.com/keshon/bvctree/internal/command/ls"
	_ "github.com/keshon/bvctree/internal/command/mktree"
	_ "github.com/keshon/bvctree/internal/command/put"
	_ "github.com/keshon/bvctree/internal/command/verify"
)
