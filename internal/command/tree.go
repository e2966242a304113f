package command

import (
	"fmt"
)

// Node represents a node in the command tree.
type Node struct {
	Cmd         Command
	Subcommands map[string]*Node
}

// CommandTree manages all commands and subcommands.
type CommandTree struct {
	root *Node
}

// NewTree creates a new empty command tree.
func NewTree() *CommandTree {
	return &CommandTree{
		root: &Node{Subcommands: make(map[string]*Node)},
	}
}

// Register inserts a command and all its subcommands recursively.
func (t *CommandTree) Register(cmd Command) {
	t.insert(t.root, cmd)
}

// Get returns a top-level command by name or alias.
func (t *CommandTree) Get(name string) (Command, bool) {
	node, ok := t.root.Subcommands[name]
	if !ok {
		return nil, false
	}
	return node.Cmd, true
}

// Commands returns each top-level command once, however many aliases it has.
func (t *CommandTree) Commands() []Command {
	cmds := make([]Command, 0, len(t.root.Subcommands))
	seen := make(map[Command]struct{})
	for _, node := range t.root.Subcommands {
		if _, ok := seen[node.Cmd]; ok {
			continue
		}
		seen[node.Cmd] = struct{}{}
		cmds = append(cmds, node.Cmd)
	}
	return cmds
}

func (t *CommandTree) insert(node *Node, cmd Command) {
	names := append([]string{cmd.Name()}, cmd.Aliases()...)
	sub := &Node{Cmd: cmd, Subcommands: make(map[string]*Node)}
	for _, subcmd := range cmd.Subcommands() {
		t.insert(sub, subcmd)
	}
	for _, n := range names {
		node.Subcommands[n] = sub
	}
}

// Resolve walks down the command tree following args.
func (t *CommandTree) Resolve(args []string) (*Node, []string, error) {
	node := t.root
	for len(args) > 0 {
		next, ok := node.Subcommands[args[0]]
		if !ok {
			break
		}
		node = next
		args = args[1:]
	}
	if node.Cmd == nil {
		if len(args) > 0 {
			return nil, nil, fmt.Errorf("unknown command %q", args[0])
		}
		return nil, nil, fmt.Errorf("no command provided")
	}
	return node, args, nil
}
