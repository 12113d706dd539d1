package message

import (
	"strconv"
	"strings"
)

// Audience receives components.
type Audience interface {
	Send(c Component)
}

// Subject is whoever runs a command: a player, the console or a remote
// operator.
type Subject interface {
	Audience
	Name() string
	HasPermission(perm string) bool
	// World returns the world the subject is in. Consoles have none.
	World() (string, bool)
}

// Template is a catalogued message. Its body may contain {0}..{n} for the
// arguments and {-1} for the name of the recipient, in text, hover text and
// click values alike.
type Template struct {
	Name string
	Body Component
}

// Build substitutes the placeholders. caller fills {-1}.
func (t Template) Build(caller string, args ...string) Component {
	pairs := make([]string, 0, 2*len(args)+2)
	for i, a := range args {
		pairs = append(pairs, "{"+strconv.Itoa(i)+"}", a)
	}
	pairs = append(pairs, "{-1}", caller)
	r := strings.NewReplacer(pairs...)
	return t.Body.Map(r.Replace)
}

// Send builds the message for to and delivers it.
func (t Template) Send(to Audience, args ...string) {
	caller := ""
	if s, ok := to.(Subject); ok {
		caller = s.Name()
	}
	to.Send(t.Build(caller, args...))
}

// Legacy renders the message as §-coded text.
func (t Template) Legacy(args ...string) string {
	return Legacy(t.Build("", args...))
}

// AudienceFunc adapts a function to Audience.
type AudienceFunc func(Component)

func (f AudienceFunc) Send(c Component) { f(c) }
