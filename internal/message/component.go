// Package message builds the rich-text replies and broadcasts, and renders
// them for each kind of recipient.
package message

import "strings"

// Color is a named chat color.
type Color string

const (
	Black       Color = "black"
	DarkBlue    Color = "dark_blue"
	DarkGreen   Color = "dark_green"
	DarkAqua    Color = "dark_aqua"
	DarkRed     Color = "dark_red"
	DarkPurple  Color = "dark_purple"
	Gold        Color = "gold"
	Gray        Color = "gray"
	DarkGray    Color = "dark_gray"
	Blue        Color = "blue"
	Green       Color = "green"
	Aqua        Color = "aqua"
	Red         Color = "red"
	LightPurple Color = "light_purple"
	Yellow      Color = "yellow"
	White       Color = "white"
)

type palette struct {
	color Color
	code  byte
	hex   string
}

// colors is indexed by legacy code order (0-9, a-f).
var colors = []palette{
	{Black, '0', "#000000"},
	{DarkBlue, '1', "#0000AA"},
	{DarkGreen, '2', "#00AA00"},
	{DarkAqua, '3', "#00AAAA"},
	{DarkRed, '4', "#AA0000"},
	{DarkPurple, '5', "#AA00AA"},
	{Gold, '6', "#FFAA00"},
	{Gray, '7', "#AAAAAA"},
	{DarkGray, '8', "#555555"},
	{Blue, '9', "#5555FF"},
	{Green, 'a', "#55FF55"},
	{Aqua, 'b', "#55FFFF"},
	{Red, 'c', "#FF5555"},
	{LightPurple, 'd', "#FF55FF"},
	{Yellow, 'e', "#FFFF55"},
	{White, 'f', "#FFFFFF"},
}

func lookupColor(c Color) (palette, bool) {
	for _, p := range colors {
		if p.color == c {
			return p, true
		}
	}
	return palette{}, false
}

// Decoration is a set of text decorations.
type Decoration uint8

const (
	Bold Decoration = 1 << iota
	Italic
	Underlined
	Strikethrough
	Obfuscated
)

var decorationCodes = []struct {
	d    Decoration
	code byte
}{
	{Obfuscated, 'k'},
	{Bold, 'l'},
	{Strikethrough, 'm'},
	{Underlined, 'n'},
	{Italic, 'o'},
}

// Click actions.
const (
	SuggestCommand = "suggest_command"
	RunCommand     = "run_command"
	OpenURL        = "open_url"
)

// Click is what happens when a player clicks the text.
type Click struct {
	Action string `json:"action"`
	Value  string `json:"value"`
}

// Component is a node of a rich-text tree. Children inherit the color and
// decorations of their parent unless they set their own.
type Component struct {
	Text        string      `json:"text,omitempty"`
	Color       Color       `json:"color,omitempty"`
	Decorations Decoration  `json:"decorations,omitempty"`
	Hover       *Component  `json:"hover,omitempty"`
	Click       *Click      `json:"click,omitempty"`
	Children    []Component `json:"children,omitempty"`
}

// Text returns a leaf component.
func Text(s string, color Color, decorations ...Decoration) Component {
	c := Component{Text: s, Color: color}
	for _, d := range decorations {
		c.Decorations |= d
	}
	return c
}

// Group returns a component with no text of its own.
func Group(color Color, children ...Component) Component {
	return Component{Color: color, Children: children}
}

// Join places sep between parts.
func Join(sep Component, parts ...Component) Component {
	out := Component{}
	for i, p := range parts {
		if i > 0 {
			out.Children = append(out.Children, sep)
		}
		out.Children = append(out.Children, p)
	}
	return out
}

// Space is a single space.
func Space() Component { return Component{Text: " "} }

// Append returns c with children added.
func (c Component) Append(children ...Component) Component {
	c.Children = append(append([]Component(nil), c.Children...), children...)
	return c
}

// WithHover returns c showing hover text.
func (c Component) WithHover(h Component) Component {
	c.Hover = &h
	return c
}

// WithClick returns c with a click action.
func (c Component) WithClick(action, value string) Component {
	c.Click = &Click{Action: action, Value: value}
	return c
}

// Map returns a deep copy of c with f applied to every text, hover text and
// click value.
func (c Component) Map(f func(string) string) Component {
	out := c
	out.Text = f(c.Text)
	if c.Hover != nil {
		h := c.Hover.Map(f)
		out.Hover = &h
	}
	if c.Click != nil {
		out.Click = &Click{Action: c.Click.Action, Value: f(c.Click.Value)}
	}
	if c.Children != nil {
		out.Children = make([]Component, len(c.Children))
		for i, child := range c.Children {
			out.Children[i] = child.Map(f)
		}
	}
	return out
}

// style is the effective formatting of a run of text.
type style struct {
	color       Color
	decorations Decoration
}

func (s style) inherit(c Component) style {
	if c.Color != "" {
		s.color = c.Color
	}
	s.decorations |= c.Decorations
	return s
}

type segment struct {
	text  string
	style style
}

// flatten returns the text runs of c in order with their effective style.
func flatten(c Component) []segment {
	var out []segment
	var walk func(c Component, parent style)
	walk = func(c Component, parent style) {
		st := parent.inherit(c)
		if c.Text != "" {
			out = append(out, segment{text: c.Text, style: st})
		}
		for _, child := range c.Children {
			walk(child, st)
		}
	}
	walk(c, style{})
	return out
}

// Plain returns the text of c without formatting.
func Plain(c Component) string {
	var sb strings.Builder
	for _, seg := range flatten(c) {
		sb.WriteString(seg.text)
	}
	return sb.String()
}
