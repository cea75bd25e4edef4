package cst

import (
	"fmt"
	"strings"

	"rook/internal/source"
)

// ParseSexp reads a tree from the S-expression dump format that tree-sitter
// front-ends (and the tests) use to hand trees across the boundary:
//
//	(function_item (name "id") (block (integer_literal "1")))
//
// A node is `(kind [ "text" ] child*)`. Unknown kind names are preserved as
// KindUnknown nodes, matching the tolerance contract for the lowering.
func ParseSexp(fs *source.FileSet, path, text string) (*Tree, error) {
	file := fs.AddVirtual(path, []byte(text))
	p := &sexpParser{src: text, file: file, b: NewBuilder(file)}
	p.skipSpace()
	root, err := p.node()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("cst: trailing input at byte %d", p.pos)
	}
	return p.b.Finish(root), nil
}

// MustParseSexp is ParseSexp for known-good inputs.
func MustParseSexp(fs *source.FileSet, path, text string) *Tree {
	t, err := ParseSexp(fs, path, text)
	if err != nil {
		panic(err)
	}
	return t
}

type sexpParser struct {
	src  string
	pos  int
	file source.FileID
	b    *Builder
}

func (p *sexpParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		case ';':
			for p.pos < len(p.src) && p.src[p.pos] != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *sexpParser) node() (NodeID, error) {
	if p.pos >= len(p.src) || p.src[p.pos] != '(' {
		return NoNodeID, fmt.Errorf("cst: expected '(' at byte %d", p.pos)
	}
	start := p.pos
	p.pos++
	p.skipSpace()

	kindStart := p.pos
	for p.pos < len(p.src) && isSexpAtom(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == kindStart {
		return NoNodeID, fmt.Errorf("cst: expected node kind at byte %d", p.pos)
	}
	kind := KindFromString(p.src[kindStart:p.pos])

	p.skipSpace()
	text := ""
	if p.pos < len(p.src) && p.src[p.pos] == '"' {
		var err error
		text, err = p.quoted()
		if err != nil {
			return NoNodeID, err
		}
		p.skipSpace()
	}

	var children []NodeID
	for p.pos < len(p.src) && p.src[p.pos] == '(' {
		child, err := p.node()
		if err != nil {
			return NoNodeID, err
		}
		children = append(children, child)
		p.skipSpace()
	}

	if p.pos >= len(p.src) || p.src[p.pos] != ')' {
		return NoNodeID, fmt.Errorf("cst: expected ')' at byte %d", p.pos)
	}
	p.pos++

	span := source.Span{File: p.file, Start: uint32(start), End: uint32(p.pos)}
	id := p.b.tree.Add(Node{Kind: kind, Span: span, Text: text, Children: children})
	return id, nil
}

func (p *sexpParser) quoted() (string, error) {
	p.pos++ // opening quote
	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '"':
			p.pos++
			return sb.String(), nil
		case '\\':
			p.pos++
			if p.pos >= len(p.src) {
				return "", fmt.Errorf("cst: unterminated escape at byte %d", p.pos)
			}
			switch p.src[p.pos] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(p.src[p.pos])
			}
			p.pos++
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
	return "", fmt.Errorf("cst: unterminated string at byte %d", p.pos)
}

func isSexpAtom(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
