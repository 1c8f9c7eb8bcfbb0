package dataset

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

// ParseLiteral parses a Python literal as written by repr() or pandas:
// dicts, lists, tuples, quoted strings, numbers, True/False/None, and numpy
// array(...) reprs, whose first argument is taken as the value. JSON input
// is accepted too. Other bare names parse as their own text. Dicts become map[string]any, sequences []any, integers
// int64 and other numbers float64.
func ParseLiteral(s string) (any, error) {
	p := &litParser{src: s}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf("trailing input")
	}
	return v, nil
}

type litParser struct {
	src string
	pos int
}

func (p *litParser) errorf(format string, args ...any) error {
	return eris.Errorf("dataset: literal at offset %d: "+format, append([]any{p.pos}, args...)...)
}

func (p *litParser) skipSpace() {
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		p.pos += size
	}
}

func (p *litParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *litParser) value() (any, error) {
	p.skipSpace()
	switch c := p.peek(); {
	case c == 0:
		return nil, p.errorf("unexpected end of input")
	case c == '{':
		return p.dict()
	case c == '[':
		p.pos++
		return p.sequence(']')
	case c == '(':
		p.pos++
		return p.sequence(')')
	case c == '\'' || c == '"':
		return p.str()
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	case isIdentStart(c):
		return p.identifier()
	default:
		return nil, p.errorf("unexpected %q", c)
	}
}

func (p *litParser) dict() (any, error) {
	p.pos++ // {
	out := make(map[string]any)
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			return out, nil
		}
		k, err := p.value()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ':' {
			return nil, p.errorf("expected ':'")
		}
		p.pos++
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out[keyString(k)] = v
		if err := p.separator('}'); err != nil {
			return nil, err
		}
	}
}

// sequence parses list or tuple items up to the closing byte, which the
// caller has already consumed the opener of.
func (p *litParser) sequence(end byte) (any, error) {
	out := []any{}
	for {
		p.skipSpace()
		if p.peek() == end {
			p.pos++
			return out, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if err := p.separator(end); err != nil {
			return nil, err
		}
	}
}

// separator consumes a ',' or leaves the closing byte for the caller.
func (p *litParser) separator(end byte) error {
	p.skipSpace()
	switch p.peek() {
	case ',':
		p.pos++
		return nil
	case end:
		return nil
	default:
		return p.errorf("expected ',' or %q", end)
	}
}

func (p *litParser) str() (any, error) {
	quote := p.src[p.pos]
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\':
			if err := p.escape(&b); err != nil {
				return nil, err
			}
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return nil, p.errorf("unterminated string")
}

func (p *litParser) escape(b *strings.Builder) error {
	p.pos++ // backslash
	if p.pos >= len(p.src) {
		return p.errorf("dangling escape")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case '\\', '\'', '"':
		b.WriteByte(c)
	case '\n':
		// line continuation
	case 'x', 'u', 'U':
		width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[c]
		if p.pos+width > len(p.src) {
			return p.errorf("short \\%c escape", c)
		}
		n, err := strconv.ParseUint(p.src[p.pos:p.pos+width], 16, 32)
		if err != nil {
			return p.errorf("bad \\%c escape", c)
		}
		p.pos += width
		b.WriteRune(rune(n))
	default:
		b.WriteByte('\\')
		b.WriteByte(c)
	}
	return nil
}

func (p *litParser) number() (any, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	isFloat := false
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c >= '0' && c <= '9', c == '_':
		case c == '.', c == 'e', c == 'E':
			isFloat = true
		case (c == '-' || c == '+') && (p.src[p.pos-1] == 'e' || p.src[p.pos-1] == 'E'):
		default:
			return p.finishNumber(p.src[start:p.pos], isFloat)
		}
		p.pos++
	}
	return p.finishNumber(p.src[start:p.pos], isFloat)
}

func (p *litParser) finishNumber(text string, isFloat bool) (any, error) {
	text = strings.ReplaceAll(text, "_", "")
	if !isFloat {
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n, nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, p.errorf("bad number %q", text)
	}
	return f, nil
}

func (p *litParser) identifier() (any, error) {
	start := p.pos
	for p.pos < len(p.src) && (isIdentStart(p.src[p.pos]) || p.src[p.pos] == '.' || (p.src[p.pos] >= '0' && p.src[p.pos] <= '9')) {
		p.pos++
	}
	name := p.src[start:p.pos]

	// String prefixes such as r'..' or b"..".
	if c := p.peek(); (c == '\'' || c == '"') && len(name) <= 2 && strings.Trim(strings.ToLower(name), "rbu") == "" {
		return p.str()
	}

	switch name {
	case "True", "true":
		return true, nil
	case "False", "false":
		return false, nil
	case "None", "null", "nan", "NaN":
		return nil, nil
	}

	save := p.pos
	p.skipSpace()
	if p.peek() != '(' {
		// Bare names such as dtype=object are kept as their text.
		p.pos = save
		return name, nil
	}
	p.pos++
	return p.call(name)
}

// call parses a constructor call such as array([...], dtype=object) and
// returns its first positional argument.
func (p *litParser) call(name string) (any, error) {
	var first any
	seen := false
	for {
		p.skipSpace()
		if p.peek() == ')' {
			p.pos++
			if !seen {
				return []any{}, nil
			}
			return first, nil
		}
		if kw := p.keyword(); kw {
			if _, err := p.value(); err != nil {
				return nil, err
			}
		} else {
			v, err := p.value()
			if err != nil {
				return nil, err
			}
			if !seen {
				first, seen = v, true
			}
		}
		if err := p.separator(')'); err != nil {
			return nil, eris.Wrapf(err, "dataset: in %s(...)", name)
		}
	}
}

// keyword consumes "name=" when present.
func (p *litParser) keyword() bool {
	i := p.pos
	for i < len(p.src) && (isIdentStart(p.src[i]) || (p.src[i] >= '0' && p.src[i] <= '9')) {
		i++
	}
	if i == p.pos {
		return false
	}
	j := i
	for j < len(p.src) && p.src[j] == ' ' {
		j++
	}
	if j < len(p.src) && p.src[j] == '=' {
		p.pos = j + 1
		return true
	}
	return false
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func keyString(k any) string {
	switch v := k.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return "None"
	default:
		return ""
	}
}
