package router

import (
	"sort"
	"strings"
)

// cmdNode is one token of a command route; leaves carry the command.
type cmdNode struct {
	name     string
	cmd      *Command
	children map[string]*cmdNode
}

func newRoot() *cmdNode {
	return &cmdNode{children: map[string]*cmdNode{}}
}

func splitRoute(route string) []string {
	return strings.Fields(route)
}

func (r *cmdNode) add(route []string, c Command) *cmdNode {
	cur := r
	for _, tok := range route {
		n, ok := cur.children[tok]
		if !ok {
			n = &cmdNode{name: tok, children: map[string]*cmdNode{}}
			cur.children[tok] = n
		}
		cur = n
	}
	cur.cmd = &c
	return cur
}

func (r *cmdNode) child(name string) (*cmdNode, bool) {
	n, ok := r.children[name]
	return n, ok
}

func (r *cmdNode) childNames() []string {
	out := make([]string, 0, len(r.children))
	for k := range r.children {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ownerOnly reports whether every command at or below r is owner-only.
func (r *cmdNode) ownerOnly() bool {
	if r.cmd != nil {
		return r.cmd.Access == AccessOwnerOnly
	}
	for _, ch := range r.children {
		if !ch.ownerOnly() {
			return false
		}
	}
	return len(r.children) > 0
}

// summary is the command description, or a hint listing a group's subcommands.
func (r *cmdNode) summary() string {
	if r.cmd != nil {
		if d := strings.TrimSpace(r.cmd.Description); d != "" {
			return d
		}
	}
	kids := r.childNames()
	if len(kids) == 0 {
		return ""
	}
	n := min(3, len(kids))
	s := strings.Join(kids[:n], ", ")
	if len(kids) > n {
		s += ", …"
	}
	return "subcommands: " + s
}
