package weave

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	directivePattern = regexp.MustCompile(`[\s,]*([\w\-/.]+)(?:\(([^)]+)\))?`)
	separatorPattern = regexp.MustCompile(`[\s,]+`)
)

// Directive is one parsed request to attach a widget to a node.
type Directive struct {
	Node   Node
	Module string
	Args   []any
	// Raw is the matched directive text, restored into AttrWeave on unweave.
	Raw string
}

// ParseDirectives splits text into directives in declaration order.
// Argument tokens naming an existing data key of node are replaced by the
// key's current value; everything else goes through ParseArgs literals.
func ParseDirectives(node Node, text string) []Directive {
	matches := directivePattern.FindAllStringSubmatchIndex(text, -1)
	directives := make([]Directive, 0, len(matches))
	for _, m := range matches {
		d := Directive{
			Node:   node,
			Module: text[m[2]:m[3]],
			Raw:    strings.TrimSpace(text[m[2]:m[1]]),
		}
		if m[4] >= 0 {
			for _, token := range splitArgs(text[m[4]:m[5]]) {
				if node != nil {
					if value, ok := node.Data(token); ok {
						d.Args = append(d.Args, value)
						continue
					}
				}
				d.Args = append(d.Args, literal(token))
			}
		}
		directives = append(directives, d)
	}
	return directives
}

// ParseArgs tokenizes a comma separated argument list into literals:
// integers, floats, booleans, single or double quoted strings, and bare words
// kept as strings.
func ParseArgs(text string) []any {
	tokens := splitArgs(text)
	args := make([]any, 0, len(tokens))
	for _, token := range tokens {
		args = append(args, literal(token))
	}
	return args
}

func splitArgs(text string) []string {
	var (
		tokens  []string
		current strings.Builder
		quote   rune
		escaped bool
	)
	for _, r := range text {
		switch {
		case escaped:
			escaped = false
		case quote != 0 && r == '\\':
			escaped = true
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && (r == '\'' || r == '"'):
			quote = r
		case quote == 0 && r == ',':
			tokens = append(tokens, strings.TrimSpace(current.String()))
			current.Reset()
			continue
		}
		current.WriteRune(r)
	}
	if last := strings.TrimSpace(current.String()); last != "" || len(tokens) > 0 {
		tokens = append(tokens, last)
	}
	return tokens
}

func literal(token string) any {
	if n := len(token); n >= 2 {
		if q := token[0]; (q == '\'' || q == '"') && token[n-1] == q {
			return unescape(token[1 : n-1])
		}
	}
	switch token {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.Atoi(token); err == nil {
		return i
	}
	if token != "" && strings.ContainsRune("+-.0123456789", rune(token[0])) {
		if f, err := strconv.ParseFloat(token, 64); err == nil {
			return f
		}
	}
	return token
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

func splitFilter(text string) []string {
	var out []string
	for _, part := range separatorPattern.Split(text, -1) {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
