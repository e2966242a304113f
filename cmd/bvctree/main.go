package main

import (
	"os"

	"github.com/keshon/bvctree/internal/command"
	_ "github.com/keshon/bvctree/internal/command/all"
)

func main() {
	command.RunCLI(os.Args[1:])
}
