package ingest

import (
	"fmt"
	"strconv"
	"strings"
)

type segment struct {
	key     string
	index   int
	isIndex bool
}

// Path addresses a value inside a JSON document using dot and bracket
// syntax: data.items[0].name, meta["content-type"]. A leading "$" is allowed.
type Path struct {
	raw  string
	segs []segment
}

// ParsePath compiles a path. The empty path addresses the root.
func ParsePath(s string) (Path, error) {
	p := Path{raw: s}
	rest := strings.TrimSpace(s)
	rest = strings.TrimPrefix(rest, "$")
	rest = strings.TrimPrefix(rest, ".")

	for rest != "" {
		switch rest[0] {
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return Path{}, fmt.Errorf("path %q: unclosed '['", s)
			}
			inner := rest[1:end]
			seg, err := bracketSegment(inner)
			if err != nil {
				return Path{}, fmt.Errorf("path %q: %w", s, err)
			}
			p.segs = append(p.segs, seg)
			rest = rest[end+1:]
		case '.':
			rest = rest[1:]
			if rest == "" || rest[0] == '.' || rest[0] == '[' {
				return Path{}, fmt.Errorf("path %q: empty segment", s)
			}
		default:
			end := strings.IndexAny(rest, ".[")
			if end < 0 {
				end = len(rest)
			}
			p.segs = append(p.segs, segment{key: rest[:end]})
			rest = rest[end:]
		}
	}
	return p, nil
}

func bracketSegment(inner string) (segment, error) {
	if n := len(inner); n >= 2 && (inner[0] == '"' || inner[0] == '\'') && inner[n-1] == inner[0] {
		return segment{key: inner[1 : n-1]}, nil
	}
	idx, err := strconv.Atoi(inner)
	if err != nil || idx < 0 {
		return segment{}, fmt.Errorf("invalid index %q", inner)
	}
	return segment{index: idx, isIndex: true}, nil
}

// String returns the path as written.
func (p Path) String() string { return p.raw }

// IsRoot reports whether the path has no segments.
func (p Path) IsRoot() bool { return len(p.segs) == 0 }

// Get resolves the path against doc.
func (p Path) Get(doc any) (any, error) {
	cur := doc
	for i, s := range p.segs {
		switch c := cur.(type) {
		case map[string]any:
			if s.isIndex {
				return nil, p.errAt(i, "expected array, found object")
			}
			v, ok := c[s.key]
			if !ok {
				return nil, p.errAt(i, fmt.Sprintf("key %q not found", s.key))
			}
			cur = v
		case []any:
			if !s.isIndex {
				return nil, p.errAt(i, fmt.Sprintf("expected object for key %q, found array", s.key))
			}
			if s.index >= len(c) {
				return nil, p.errAt(i, fmt.Sprintf("index %d out of range (len %d)", s.index, len(c)))
			}
			cur = c[s.index]
		default:
			return nil, p.errAt(i, fmt.Sprintf("cannot descend into %s", kind(cur)))
		}
	}
	return cur, nil
}

// Set writes v at the path inside doc, creating intermediate objects.
// Arrays are never created; an index segment must address an existing element.
func (p Path) Set(doc map[string]any, v any) error {
	if p.IsRoot() {
		return fmt.Errorf("path %q: cannot set the root", p.raw)
	}

	var cur any = doc
	for i, s := range p.segs {
		last := i == len(p.segs)-1
		switch c := cur.(type) {
		case map[string]any:
			if s.isIndex {
				return p.errAt(i, "expected array, found object")
			}
			if last {
				c[s.key] = v
				return nil
			}
			next, ok := c[s.key]
			if !ok || next == nil {
				if p.segs[i+1].isIndex {
					return p.errAt(i+1, "array does not exist")
				}
				created := map[string]any{}
				c[s.key] = created
				next = created
			}
			cur = next
		case []any:
			if !s.isIndex {
				return p.errAt(i, fmt.Sprintf("expected object for key %q, found array", s.key))
			}
			if s.index >= len(c) {
				return p.errAt(i, fmt.Sprintf("index %d out of range (len %d)", s.index, len(c)))
			}
			if last {
				c[s.index] = v
				return nil
			}
			cur = c[s.index]
		default:
			return p.errAt(i, fmt.Sprintf("cannot descend into %s", kind(cur)))
		}
	}
	return nil
}

func (p Path) errAt(i int, msg string) error {
	return fmt.Errorf("path %q at segment %d: %s", p.raw, i, msg)
}

func kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64, int, int64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
