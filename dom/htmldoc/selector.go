package htmldoc

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// selector is a comma-separated list of complex selectors.
type selector []complexSelector

// complexSelector is a chain of compounds joined by the descendant combinator,
// stored left to right.
type complexSelector []compound

type compound struct {
	tag     string
	id      string
	classes []string
	attrs   []attrMatcher
}

type attrMatcher struct {
	name     string
	value    string
	hasValue bool
}

func parseSelector(s string) (selector, error) {
	var out selector
	for _, group := range splitOutside(s, ',') {
		group = strings.TrimSpace(group)
		if group == "" {
			return nil, fmt.Errorf("htmldoc: empty selector group in %q", s)
		}
		var cx complexSelector
		for _, part := range splitOutside(group, ' ') {
			if part == "" {
				continue
			}
			c, err := parseCompound(part)
			if err != nil {
				return nil, err
			}
			cx = append(cx, c)
		}
		out = append(out, cx)
	}
	return out, nil
}

// splitOutside splits s on sep, ignoring separators inside [...] or quotes.
func splitOutside(s string, sep rune) []string {
	var (
		parts []string
		depth int
		quote rune
		start int
	)
	for i, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '[':
			depth++
		case r == ']':
			depth--
		case r == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func parseCompound(s string) (compound, error) {
	var c compound
	i := 0
	for i < len(s) && isIdent(s[i]) {
		i++
	}
	c.tag = strings.ToLower(s[:i])
	if c.tag == "*" {
		c.tag = ""
	}
	if i == 0 && len(s) > 0 && s[0] == '*' {
		i = 1
	}

	for i < len(s) {
		switch s[i] {
		case '.', '#':
			kind := s[i]
			j := i + 1
			for j < len(s) && isIdent(s[j]) {
				j++
			}
			if j == i+1 {
				return c, fmt.Errorf("htmldoc: bad selector %q", s)
			}
			if kind == '.' {
				c.classes = append(c.classes, s[i+1:j])
			} else {
				c.id = s[i+1 : j]
			}
			i = j
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return c, fmt.Errorf("htmldoc: unterminated attribute selector %q", s)
			}
			body := s[i+1 : i+end]
			m := attrMatcher{name: strings.TrimSpace(body)}
			if eq := strings.IndexByte(body, '='); eq >= 0 {
				m.name = strings.TrimSpace(body[:eq])
				m.value = strings.Trim(strings.TrimSpace(body[eq+1:]), `"'`)
				m.hasValue = true
			}
			if m.name == "" {
				return c, fmt.Errorf("htmldoc: empty attribute name in %q", s)
			}
			c.attrs = append(c.attrs, m)
			i += end + 1
		default:
			return c, fmt.Errorf("htmldoc: unsupported selector syntax %q", s)
		}
	}
	return c, nil
}

func isIdent(b byte) bool {
	return b == '-' || b == '_' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func (sel selector) matches(n *html.Node) bool {
	for _, cx := range sel {
		if cx.matches(n) {
			return true
		}
	}
	return false
}

func (cx complexSelector) matches(n *html.Node) bool {
	if len(cx) == 0 || !cx[len(cx)-1].matches(n) {
		return false
	}
	i := len(cx) - 2
	for p := n.Parent; p != nil && i >= 0; p = p.Parent {
		if p.Type == html.ElementNode && cx[i].matches(p) {
			i--
		}
	}
	return i < 0
}

func (c compound) matches(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if c.tag != "" && n.Data != c.tag {
		return false
	}
	if c.id != "" {
		if v, ok := getAttr(n, "id"); !ok || v != c.id {
			return false
		}
	}
	if len(c.classes) > 0 {
		have := classSet(n)
		for _, cl := range c.classes {
			if _, ok := have[cl]; !ok {
				return false
			}
		}
	}
	for _, m := range c.attrs {
		v, ok := getAttr(n, m.name)
		if !ok || (m.hasValue && v != m.value) {
			return false
		}
	}
	return true
}

func classSet(n *html.Node) map[string]struct{} {
	v, _ := getAttr(n, "class")
	out := make(map[string]struct{})
	for _, f := range strings.Fields(v) {
		out[f] = struct{}{}
	}
	return out
}
