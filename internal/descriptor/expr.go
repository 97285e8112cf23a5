package descriptor

import (
	"fmt"
	"strings"
	"unicode"
)

// typeExpr is a parsed type reference such as "Map<String, List<Order>>?".
type typeExpr struct {
	name     string
	nullable bool
	args     []typeExpr
}

func parseTypeExpr(src string) (typeExpr, error) {
	p := exprParser{src: src}
	e, err := p.expr()
	if err != nil {
		return typeExpr{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return typeExpr{}, fmt.Errorf("type %q: unexpected %q at offset %d", src, p.src[p.pos:], p.pos)
	}
	return e, nil
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) expr() (typeExpr, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && isNameByte(p.src[p.pos]) {
		p.pos++
	}
	if start == p.pos {
		return typeExpr{}, fmt.Errorf("type %q: expected a name at offset %d", p.src, p.pos)
	}
	e := typeExpr{name: p.src[start:p.pos]}
	p.skipSpace()
	if p.peek('<') {
		p.pos++
		for {
			arg, err := p.expr()
			if err != nil {
				return typeExpr{}, err
			}
			e.args = append(e.args, arg)
			p.skipSpace()
			if p.peek(',') {
				p.pos++
				continue
			}
			if p.peek('>') {
				p.pos++
				break
			}
			return typeExpr{}, fmt.Errorf("type %q: expected ',' or '>' at offset %d", p.src, p.pos)
		}
		p.skipSpace()
	}
	if p.peek('?') {
		p.pos++
		e.nullable = true
	}
	return e, nil
}

func (p *exprParser) peek(b byte) bool {
	return p.pos < len(p.src) && p.src[p.pos] == b
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func isNameByte(b byte) bool {
	return b == '_' || b == '.' || b == '$' ||
		('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}

func (e typeExpr) String() string {
	var b strings.Builder
	b.WriteString(e.name)
	if len(e.args) > 0 {
		b.WriteByte('<')
		for i, a := range e.args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(a.String())
		}
		b.WriteByte('>')
	}
	if e.nullable {
		b.WriteByte('?')
	}
	return b.String()
}
