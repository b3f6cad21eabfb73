package records

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// ParseEntity parses a serialized entity annotation as found in the raw
// dataset, e.g.
//
//	{'word': '비틀즈', 'start_idx': 24, 'end_idx': 26, 'type': 'ORG'}
//
// The annotation is a Python-repr mapping: keys and string values are single-
// or double-quoted with backslash escapes, integer values are bare. Exactly
// the four keys word, start_idx, end_idx and type must be present; anything
// else is an error.
func ParseEntity(s string) (Entity, error) {
	p := &entityParser{input: []rune(strings.TrimSpace(s))}
	ent, err := p.parse()
	if err != nil {
		return Entity{}, errors.Wrapf(err, "malformed entity annotation %q", s)
	}
	return ent, nil
}

type entityParser struct {
	input []rune
	pos   int
}

func (p *entityParser) parse() (Entity, error) {
	var ent Entity
	if err := p.expect('{'); err != nil {
		return ent, err
	}

	seen := make(map[string]bool, 4)
	for {
		p.skipSpace()
		key, err := p.quotedString()
		if err != nil {
			return ent, err
		}
		p.skipSpace()
		if err := p.expect(':'); err != nil {
			return ent, err
		}
		p.skipSpace()

		switch key {
		case "word":
			ent.Word, err = p.quotedString()
		case "type":
			ent.Type, err = p.quotedString()
		case "start_idx":
			ent.Start, err = p.integer()
		case "end_idx":
			ent.End, err = p.integer()
		default:
			return ent, errors.Errorf("unexpected key %q", key)
		}
		if err != nil {
			return ent, err
		}
		if seen[key] {
			return ent, errors.Errorf("duplicate key %q", key)
		}
		seen[key] = true

		p.skipSpace()
		if p.peek() == ',' {
			p.pos++
			continue
		}
		break
	}

	if err := p.expect('}'); err != nil {
		return ent, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return ent, errors.Errorf("trailing data after closing brace")
	}
	for _, key := range []string{"word", "start_idx", "end_idx", "type"} {
		if !seen[key] {
			return ent, errors.Errorf("missing key %q", key)
		}
	}
	return ent, nil
}

func (p *entityParser) peek() rune {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *entityParser) expect(r rune) error {
	if p.peek() != r {
		return errors.Errorf("expected %q at offset %d", string(r), p.pos)
	}
	p.pos++
	return nil
}

func (p *entityParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(p.input[p.pos]) {
		p.pos++
	}
}

func (p *entityParser) quotedString() (string, error) {
	quote := p.peek()
	if quote != '\'' && quote != '"' {
		return "", errors.Errorf("expected quoted string at offset %d", p.pos)
	}
	p.pos++
	var b strings.Builder
	for p.pos < len(p.input) {
		r := p.input[p.pos]
		switch r {
		case quote:
			p.pos++
			return b.String(), nil
		case '\\':
			p.pos++
			if p.pos >= len(p.input) {
				return "", errors.New("unterminated escape sequence")
			}
			esc := p.input[p.pos]
			switch esc {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			default:
				// \' \" \\ and anything else: the escaped rune itself.
				b.WriteRune(esc)
			}
			p.pos++
		default:
			b.WriteRune(r)
			p.pos++
		}
	}
	return "", errors.New("unterminated string")
}

func (p *entityParser) integer() (int, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.pos++
	}
	if p.pos == start {
		return 0, errors.Errorf("expected integer at offset %d", start)
	}
	n, err := strconv.Atoi(string(p.input[start:p.pos]))
	if err != nil {
		return 0, errors.Wrapf(err, "invalid integer at offset %d", start)
	}
	return n, nil
}

// ParseEntities flattens the serialized subject/object annotations of every
// row into structured Entity fields. Any malformed annotation fails the whole
// table: this is the one-time offline preprocessing path, there is no partial
// recovery.
func ParseEntities(tbl Table) (Table, error) {
	out := tbl.Clone()
	for i := range out {
		sub, err := ParseEntity(out[i].Subject.Word)
		if err != nil {
			return nil, errors.WithMessagef(err, "row %d subject", i)
		}
		obj, err := ParseEntity(out[i].Object.Word)
		if err != nil {
			return nil, errors.WithMessagef(err, "row %d object", i)
		}
		out[i].Subject = sub
		out[i].Object = obj
	}
	return out, nil
}
