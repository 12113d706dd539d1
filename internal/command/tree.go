// Package command implements the argument-typed command tree behind
// /worldreset, its completion, and the worker pool it runs on.
package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/joebot/worldreset/internal/message"
)

// Handler runs a matched command.
type Handler func(ctx *Context) error

// Suggester completes a partial argument.
type Suggester func(ctx *Context, partial string) []string

// Node is a literal or an argument in the tree.
type Node struct {
	name     string
	literal  bool
	argType  ArgumentType
	requires string
	handler  Handler
	suggests Suggester
	children []*Node
}

// Literal matches its name, ignoring case.
func Literal(name string) *Node {
	return &Node{name: name, literal: true}
}

// Argument matches any token its type parses.
func Argument(name string, t ArgumentType) *Node {
	return &Node{name: name, argType: t}
}

// Requires gates the node and everything under it behind perm.
func (n *Node) Requires(perm string) *Node {
	n.requires = perm
	return n
}

// Executes makes the path ending at n runnable.
func (n *Node) Executes(h Handler) *Node {
	n.handler = h
	return n
}

// Suggests overrides the completions of an argument.
func (n *Node) Suggests(s Suggester) *Node {
	n.suggests = s
	return n
}

// Then adds children.
func (n *Node) Then(children ...*Node) *Node {
	n.children = append(n.children, children...)
	return n
}

// Name returns the literal or argument name.
func (n *Node) Name() string { return n.name }

func (n *Node) usage() string {
	if n.literal {
		return n.name
	}
	return "<" + n.name + ">"
}

func (n *Node) allowed(s message.Subject) bool {
	return n.requires == "" || s.HasPermission(n.requires)
}

func (n *Node) matchesLiteral(token string) bool {
	return n.literal && strings.EqualFold(n.name, token)
}

// Context carries the subject and the parsed arguments to handlers and
// suggesters.
type Context struct {
	Subject message.Subject
	Input   string
	args    map[string]any
}

func newContext(s message.Subject, input string) *Context {
	return &Context{Subject: s, Input: input, args: make(map[string]any)}
}

// Has reports whether the argument was given.
func (c *Context) Has(name string) bool {
	_, ok := c.args[name]
	return ok
}

// String returns a string argument.
func (c *Context) String(name string) string {
	v, ok := c.args[name].(string)
	if !ok {
		panic(fmt.Sprintf("command: no string argument %q", name))
	}
	return v
}

// Duration returns a duration argument.
func (c *Context) Duration(name string) time.Duration {
	v, ok := c.args[name].(time.Duration)
	if !ok {
		panic(fmt.Sprintf("command: no duration argument %q", name))
	}
	return v
}
