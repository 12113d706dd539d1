package message

import (
	"strings"
	"testing"
)

type recorder struct {
	name string
	got  []Component
}

func (r *recorder) Send(c Component)          { r.got = append(r.got, c) }
func (r *recorder) Name() string              { return r.name }
func (r *recorder) HasPermission(string) bool { return true }
func (r *recorder) World() (string, bool)     { return "", false }

func TestFromLegacy(t *testing.T) {
	c := FromLegacy("&7Outer end islands will be reset in &a1m", '&')
	if got := Plain(c); got != "Outer end islands will be reset in 1m" {
		t.Errorf("Plain = %q", got)
	}
	if len(c.Children) != 2 || c.Children[0].Color != Gray || c.Children[1].Color != Green {
		t.Errorf("children = %+v", c.Children)
	}
}

func TestFromLegacyCodes(t *testing.T) {
	tests := []struct {
		in     string
		plain  string
		legacy string
	}{
		{"plain", "plain", "plain"},
		{"&cred &lbold", "red bold", "§cred §c§lbold"},
		{"&lbold&r normal", "bold normal", "§lbold§r normal"},
		{"&Aupper", "upper", "§aupper"},
		{"50&% off &", "50&% off &", "50&% off &"},
		{"&6&lWR", "WR", "§6§lWR"},
	}
	for _, tt := range tests {
		c := FromLegacy(tt.in, '&')
		if got := Plain(c); got != tt.plain {
			t.Errorf("Plain(FromLegacy(%q)) = %q, want %q", tt.in, got, tt.plain)
		}
		if got := Legacy(c); got != tt.legacy {
			t.Errorf("Legacy(FromLegacy(%q)) = %q, want %q", tt.in, got, tt.legacy)
		}
	}
}

func TestLegacyRoundTrip(t *testing.T) {
	in := "§7gray §a§lgreen bold§r plain"
	if got := Legacy(FromLegacy(in, SectionSign)); got != in {
		t.Errorf("round trip = %q, want %q", got, in)
	}
}

func TestTemplateBuild(t *testing.T) {
	got := Plain(ScheduledSuccessfully.Build("", "alpha", "1h", "1 hour"))
	want := "[WR] World reset scheduled successfully. World alpha will reset every 1h"
	if got != want {
		t.Errorf("Plain = %q, want %q", got, want)
	}

	c := ScheduledSuccessfully.Build("", "alpha", "1h", "1 hour")
	hover := findHover(c)
	if hover == nil || Plain(*hover) != "1 hour" {
		t.Errorf("hover = %+v", hover)
	}
}

func TestTemplateClickPayload(t *testing.T) {
	c := ListElement.Build("", "alpha", "5m", "5 minutes", "1h", "1 hour")
	click := findClick(c)
	if click == nil || click.Value != "/worldreset unschedule alpha" || click.Action != SuggestCommand {
		t.Errorf("click = %+v", click)
	}
	if got := Plain(c); got != "[WR] alpha - 5m - 1h" {
		t.Errorf("Plain = %q", got)
	}
}

func TestTemplateCallerPlaceholder(t *testing.T) {
	tpl := Template{Name: "greet", Body: Text("hi {-1}, {0}", "")}
	r := &recorder{name: "Steve"}
	tpl.Send(r, "welcome")
	if len(r.got) != 1 || Plain(r.got[0]) != "hi Steve, welcome" {
		t.Errorf("sent = %+v", r.got)
	}

	var plain string
	tpl.Send(AudienceFunc(func(c Component) { plain = Plain(c) }), "x")
	if plain != "hi , x" {
		t.Errorf("non-subject caller = %q", plain)
	}
}

func TestTemplateLegacy(t *testing.T) {
	got := NoPermission.Legacy()
	want := "§7[§6§lWR§7] §cYou are not allowed to run this command"
	if got != want {
		t.Errorf("Legacy = %q, want %q", got, want)
	}
}

func TestBuildDoesNotMutateTemplate(t *testing.T) {
	before := Plain(UnknownWorld.Body)
	UnknownWorld.Build("", "zeta")
	if after := Plain(UnknownWorld.Body); after != before {
		t.Errorf("template body changed: %q -> %q", before, after)
	}
}

func TestCatalogueNames(t *testing.T) {
	seen := map[string]bool{}
	for _, tpl := range All {
		if tpl.Name == "" || seen[tpl.Name] {
			t.Errorf("bad or duplicate template name %q", tpl.Name)
		}
		seen[tpl.Name] = true
		if strings.TrimSpace(Plain(tpl.Body)) == "" {
			t.Errorf("%s renders empty", tpl.Name)
		}
	}
}

func TestANSIKeepsText(t *testing.T) {
	c := UnknownWorld.Build("", "zeta")
	if !strings.Contains(ANSI(c), "zeta") {
		t.Error("ANSI output lost the world name")
	}
}

func findHover(c Component) *Component {
	if c.Hover != nil {
		return c.Hover
	}
	for _, child := range c.Children {
		if h := findHover(child); h != nil {
			return h
		}
	}
	return nil
}

func findClick(c Component) *Click {
	if c.Click != nil {
		return c.Click
	}
	for _, child := range c.Children {
		if cl := findClick(child); cl != nil {
			return cl
		}
	}
	return nil
}
