package command

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"github.com/joebot/worldreset/internal/message"
)

// ErrUnknownCommand is returned when the input does not start with the
// dispatcher's root literal.
var ErrUnknownCommand = errors.New("unknown command")

// Dispatcher parses input against a tree rooted at one literal.
type Dispatcher struct {
	root *Node
}

// NewDispatcher creates a dispatcher for root, which must be a literal.
func NewDispatcher(root *Node) *Dispatcher {
	if !root.literal {
		panic("command: root must be a literal")
	}
	return &Dispatcher{root: root}
}

// Root returns the root literal's name.
func (d *Dispatcher) Root() string { return d.root.name }

// Run parses and executes input for s. Responses, including permission and
// syntax errors, are sent to s. The returned error is ErrUnknownCommand for
// input addressed to another command, or the handler's error.
func (d *Dispatcher) Run(s message.Subject, input string) error {
	tokens, _ := Tokenize(input)
	if len(tokens) == 0 || !d.root.matchesLiteral(strings.TrimPrefix(tokens[0], "/")) {
		return ErrUnknownCommand
	}
	if !d.root.allowed(s) {
		message.NoPermission.Send(s)
		return nil
	}

	ctx := newContext(s, input)
	node := d.root
	for _, tok := range tokens[1:] {
		next, denied, argErr := d.step(ctx, node, tok)
		switch {
		case next != nil:
			node = next
		case denied:
			message.NoPermission.Send(s)
			return nil
		case argErr != nil:
			message.CommandError.Send(s, argErr.Error())
			return nil
		default:
			d.sendUsages(s)
			return nil
		}
	}

	if node.handler == nil {
		d.sendUsages(s)
		return nil
	}
	if err := node.handler(ctx); err != nil {
		slog.Error("Command: handler failed", "input", input, "subject", s.Name(), "err", err)
		message.CommandError.Send(s, err.Error())
		return err
	}
	return nil
}

// step finds the child of node that accepts tok. Literals win over
// arguments. denied is set when only a child s may not use matched; argErr
// holds the first argument parse error.
func (d *Dispatcher) step(ctx *Context, node *Node, tok string) (next *Node, denied bool, argErr error) {
	for _, c := range node.children {
		if c.matchesLiteral(tok) {
			if c.allowed(ctx.Subject) {
				return c, false, nil
			}
			denied = true
		}
	}
	for _, c := range node.children {
		if c.literal {
			continue
		}
		v, err := c.argType.Parse(tok)
		if err != nil {
			if argErr == nil {
				argErr = err
			}
			continue
		}
		if !c.allowed(ctx.Subject) {
			denied = true
			continue
		}
		ctx.args[c.name] = v
		return c, false, nil
	}
	return nil, denied, argErr
}

// Usages lists every runnable path s may use, without the leading slash.
func (d *Dispatcher) Usages(s message.Subject) []string {
	if !d.root.allowed(s) {
		return nil
	}
	var out []string
	var walk func(n *Node, prefix string)
	walk = func(n *Node, prefix string) {
		line := prefix + n.usage()
		if n.handler != nil {
			out = append(out, line)
		}
		for _, c := range n.children {
			if c.allowed(s) {
				walk(c, line+" ")
			}
		}
	}
	walk(d.root, "")
	return out
}

func (d *Dispatcher) sendUsages(s message.Subject) {
	message.UsageTitle.Send(s)
	for _, u := range d.Usages(s) {
		message.UsageCommand.Send(s, u)
	}
}

// Complete returns candidates for the last, possibly empty, token of input.
// Each candidate replaces that token.
func (d *Dispatcher) Complete(s message.Subject, input string) []string {
	tokens, trailing := Tokenize(input)
	partial := ""
	if !trailing && len(tokens) > 0 {
		partial = tokens[len(tokens)-1]
		tokens = tokens[:len(tokens)-1]
	}

	if len(tokens) == 0 {
		slash := strings.HasPrefix(partial, "/")
		name := strings.TrimPrefix(partial, "/")
		if d.root.allowed(s) && hasFoldPrefix(d.root.name, name) {
			if slash {
				return []string{"/" + d.root.name}
			}
			return []string{d.root.name}
		}
		return nil
	}
	if !d.root.matchesLiteral(strings.TrimPrefix(tokens[0], "/")) || !d.root.allowed(s) {
		return nil
	}

	ctx := newContext(s, input)
	node := d.root
	for _, tok := range tokens[1:] {
		next, _, _ := d.step(ctx, node, tok)
		if next == nil {
			return nil
		}
		node = next
	}

	seen := make(map[string]bool)
	var out []string
	add := func(c string) {
		if !seen[c] && hasFoldPrefix(c, partial) {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, c := range node.children {
		if !c.allowed(s) {
			continue
		}
		if c.literal {
			add(c.name)
			continue
		}
		var cands []string
		if c.suggests != nil {
			cands = c.suggests(ctx, partial)
		} else {
			cands = c.argType.Suggest(ctx, partial)
		}
		for _, cand := range cands {
			add(cand)
		}
	}
	sort.Strings(out)
	return out
}

func hasFoldPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// Tokenize splits input on whitespace. Double quotes group words and are
// removed. trailing reports whether input ends in whitespace outside quotes,
// so that a new, empty token is being typed.
func Tokenize(input string) (tokens []string, trailing bool) {
	var cur strings.Builder
	inQuote, has := false, false
	for _, r := range input {
		switch {
		case r == '"':
			inQuote = !inQuote
			has = true
		case unicode.IsSpace(r) && !inQuote:
			if has {
				tokens = append(tokens, cur.String())
				cur.Reset()
				has = false
			}
		default:
			cur.WriteRune(r)
			has = true
		}
	}
	if has {
		tokens = append(tokens, cur.String())
	}
	trailing = !has && input != "" && !inQuote
	return tokens, trailing
}
