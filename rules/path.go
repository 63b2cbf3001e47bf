// Package rules implements the declarative rule engine that provider
// transformers use to reshape the unified request body into each vendor's
// wire format: a short ordered list of Move/Drop/Default/Range/ForbidWhen/
// EnumMap/When/MaxLen rules applied over a parsed JSON value.
package rules

import (
	"fmt"
	"strconv"
	"strings"
)

// segment is one step of a parsed dotted/indexed path: either an object key
// or an array index.
type segment struct {
	key      string
	index    int
	isIndex  bool
}

// parsePath splits a path like "a.b[0].c" into its segments. Empty segments
// (from a leading/trailing/doubled separator) are skipped.
func parsePath(path string) ([]segment, error) {
	var segments []segment
	var cur strings.Builder

	flush := func() error {
		if cur.Len() == 0 {
			return nil
		}
		segments = append(segments, segment{key: cur.String()})
		cur.Reset()
		return nil
	}

	i := 0
	for i < len(path) {
		c := path[i]
		switch c {
		case '.':
			if err := flush(); err != nil {
				return nil, err
			}
			i++
		case '[':
			if err := flush(); err != nil {
				return nil, err
			}
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("rules: unterminated index in path %q", path)
			}
			idxStr := path[i+1 : i+end]
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, fmt.Errorf("rules: invalid index %q in path %q", idxStr, path)
			}
			segments = append(segments, segment{index: idx, isIndex: true})
			i += end + 1
		default:
			cur.WriteByte(c)
			i++
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return segments, nil
}

// get reads the value at path from root. ok is false if any intermediate
// segment is missing, null, or not the expected container kind.
func get(root any, path string) (value any, ok bool, err error) {
	segments, err := parsePath(path)
	if err != nil {
		return nil, false, err
	}
	cur := root
	for _, seg := range segments {
		if cur == nil {
			return nil, false, nil
		}
		if seg.isIndex {
			arr, isArr := cur.([]any)
			if !isArr || seg.index < 0 || seg.index >= len(arr) {
				return nil, false, nil
			}
			cur = arr[seg.index]
		} else {
			obj, isObj := cur.(map[string]any)
			if !isObj {
				return nil, false, nil
			}
			v, present := obj[seg.key]
			if !present {
				return nil, false, nil
			}
			cur = v
		}
	}
	return cur, true, nil
}

// set writes value at path within root, creating missing object/array
// parents on demand. Arrays grown to reach an index are null-padded.
// It returns an error if a non-terminal segment resolves to a non-container
// value that cannot be overwritten safely (e.g. indexing into a string).
func set(root map[string]any, path string, value any) error {
	segments, err := parsePath(path)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return fmt.Errorf("rules: empty path")
	}
	return setSegments(root, segments, value)
}

func setSegments(container map[string]any, segments []segment, value any) error {
	seg := segments[0]
	if seg.isIndex {
		return fmt.Errorf("rules: cannot index into an object at root of set")
	}
	if len(segments) == 1 {
		container[seg.key] = value
		return nil
	}

	next := segments[1]
	existing, present := container[seg.key]

	if next.isIndex {
		arr, isArr := existing.([]any)
		if !present || !isArr {
			arr = []any{}
		}
		for len(arr) <= next.index {
			arr = append(arr, nil)
		}
		if len(segments) == 2 {
			arr[next.index] = value
		} else {
			child, isObj := arr[next.index].(map[string]any)
			if !isObj {
				child = map[string]any{}
			}
			if err := setSegments(child, segments[2:], value); err != nil {
				return err
			}
			arr[next.index] = child
		}
		container[seg.key] = arr
		return nil
	}

	child, isObj := existing.(map[string]any)
	if !present || !isObj {
		child = map[string]any{}
	}
	if err := setSegments(child, segments[1:], value); err != nil {
		return err
	}
	container[seg.key] = child
	return nil
}

// drop removes the value at path, deleting an array element (shifting later
// elements down) when the terminal segment is an index. Missing paths are a
// no-op.
func drop(root map[string]any, path string) error {
	segments, err := parsePath(path)
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return nil
	}
	dropSegments(root, segments)
	return nil
}

func dropSegments(container any, segments []segment) {
	if len(segments) == 0 {
		return
	}
	seg := segments[0]

	if len(segments) == 1 {
		switch c := container.(type) {
		case map[string]any:
			if !seg.isIndex {
				delete(c, seg.key)
			}
		}
		return
	}

	switch c := container.(type) {
	case map[string]any:
		if seg.isIndex {
			return
		}
		child, present := c[seg.key]
		if !present {
			return
		}
		if len(segments) == 2 && segments[1].isIndex {
			arr, isArr := child.([]any)
			if !isArr || segments[1].index < 0 || segments[1].index >= len(arr) {
				return
			}
			c[seg.key] = append(arr[:segments[1].index], arr[segments[1].index+1:]...)
			return
		}
		dropSegments(child, segments[1:])
	}
}

// stripNullsTopLevel removes every top-level key whose value is JSON null.
// Nested nulls are left untouched (spec: post-pass is top-level only).
func stripNullsTopLevel(root map[string]any) {
	for k, v := range root {
		if v == nil {
			delete(root, k)
		}
	}
}
