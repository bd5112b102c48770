package syntax

import (
	"fmt"
	"strings"
)

// TypeRef is an unresolved type reference such as "a.b.List<T>?".
type TypeRef struct {
	Path      []string
	Arguments []*TypeRef
	Nullable  bool
	Pos       Position
}

// Text renders the reference the way it appears in source.
func (t *TypeRef) Text() string {
	var b strings.Builder
	b.WriteString(strings.Join(t.Path, "."))
	if len(t.Arguments) > 0 {
		b.WriteByte('<')
		for i, a := range t.Arguments {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(a.Text())
		}
		b.WriteByte('>')
	}
	if t.Nullable {
		b.WriteByte('?')
	}
	return b.String()
}

func (t *TypeRef) String() string { return t.Text() }

// ParseTypeRef parses the textual form produced by Text.
func ParseTypeRef(text string) (*TypeRef, error) {
	p := &typeRefParser{src: text}
	ref, err := p.parse()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("unexpected %q at offset %d in type %q", p.src[p.pos:], p.pos, text)
	}
	return ref, nil
}

// MustParseTypeRef is ParseTypeRef for literals known to be valid.
func MustParseTypeRef(text string) *TypeRef {
	ref, err := ParseTypeRef(text)
	if err != nil {
		panic(err)
	}
	return ref
}

type typeRefParser struct {
	src string
	pos int
}

func (p *typeRefParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func (p *typeRefParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '.' || c == '<' || c == '>' || c == ',' || c == '?' || c == ' ' {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *typeRefParser) parse() (*TypeRef, error) {
	ref := &TypeRef{}
	for {
		seg := p.ident()
		if seg == "" {
			return nil, fmt.Errorf("missing identifier at offset %d in type %q", p.pos, p.src)
		}
		ref.Path = append(ref.Path, seg)
		if p.pos < len(p.src) && p.src[p.pos] == '.' {
			p.pos++
			continue
		}
		break
	}
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '<' {
		p.pos++
		for {
			arg, err := p.parse()
			if err != nil {
				return nil, err
			}
			ref.Arguments = append(ref.Arguments, arg)
			p.skipSpace()
			if p.pos >= len(p.src) {
				return nil, fmt.Errorf("unterminated type arguments in %q", p.src)
			}
			if p.src[p.pos] == ',' {
				p.pos++
				continue
			}
			if p.src[p.pos] == '>' {
				p.pos++
				break
			}
			return nil, fmt.Errorf("unexpected %q at offset %d in type %q", p.src[p.pos], p.pos, p.src)
		}
	}
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '?' {
		p.pos++
		ref.Nullable = true
	}
	return ref, nil
}
