package message

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// SectionSign introduces a formatting code in legacy text.
const SectionSign = '§'

// FromLegacy parses text with formatting codes introduced by marker, for
// example "&7gray &lbold". A color code clears decorations and &r clears
// everything. Unknown codes are kept as text.
func FromLegacy(s string, marker rune) Component {
	root := Component{}
	var cur style
	var sb strings.Builder

	flush := func() {
		if sb.Len() == 0 {
			return
		}
		root.Children = append(root.Children, Component{
			Text:        sb.String(),
			Color:       cur.color,
			Decorations: cur.decorations,
		})
		sb.Reset()
	}

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != marker || i+1 == len(runes) {
			sb.WriteRune(r)
			continue
		}
		code := byte(0)
		if next := runes[i+1]; next < 128 {
			code = byte(strings.ToLower(string(next))[0])
		}
		if p, ok := colorForCode(code); ok {
			flush()
			cur = style{color: p.color}
			i++
			continue
		}
		if d, ok := decorationForCode(code); ok {
			flush()
			cur.decorations |= d
			i++
			continue
		}
		if code == 'r' {
			flush()
			cur = style{}
			i++
			continue
		}
		sb.WriteRune(r)
	}
	flush()

	if len(root.Children) == 1 {
		return root.Children[0]
	}
	return root
}

func colorForCode(code byte) (palette, bool) {
	for _, p := range colors {
		if p.code == code {
			return p, true
		}
	}
	return palette{}, false
}

func decorationForCode(code byte) (Decoration, bool) {
	for _, dc := range decorationCodes {
		if dc.code == code {
			return dc.d, true
		}
	}
	return 0, false
}

// Legacy renders c as §-coded text. Hover and click data are dropped.
func Legacy(c Component) string {
	var sb strings.Builder
	var last style
	first := true
	for _, seg := range flatten(c) {
		if first || seg.style != last {
			writeLegacyStyle(&sb, seg.style, first)
			last = seg.style
			first = false
		}
		sb.WriteString(seg.text)
	}
	return sb.String()
}

func writeLegacyStyle(sb *strings.Builder, st style, first bool) {
	if p, ok := lookupColor(st.color); ok {
		sb.WriteRune(SectionSign)
		sb.WriteByte(p.code)
	} else if !first {
		sb.WriteRune(SectionSign)
		sb.WriteByte('r')
	}
	for _, dc := range decorationCodes {
		if st.decorations&dc.d != 0 {
			sb.WriteRune(SectionSign)
			sb.WriteByte(dc.code)
		}
	}
}

// ANSI renders c for a terminal.
func ANSI(c Component) string {
	var sb strings.Builder
	for _, seg := range flatten(c) {
		sb.WriteString(lipglossStyle(seg.style).Render(seg.text))
	}
	return sb.String()
}

func lipglossStyle(st style) lipgloss.Style {
	s := lipgloss.NewStyle()
	if p, ok := lookupColor(st.color); ok {
		s = s.Foreground(lipgloss.Color(p.hex))
	}
	if st.decorations&Bold != 0 {
		s = s.Bold(true)
	}
	if st.decorations&Italic != 0 {
		s = s.Italic(true)
	}
	if st.decorations&Underlined != 0 {
		s = s.Underline(true)
	}
	if st.decorations&Strikethrough != 0 {
		s = s.Strikethrough(true)
	}
	if st.decorations&Obfuscated != 0 {
		s = s.Faint(true)
	}
	return s
}
