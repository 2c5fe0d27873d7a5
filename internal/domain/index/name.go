// Package index encodes a multi-column sort key list into a single
// storage-level index name and back.
//
// Names look like idx___<collection>___<field>ASC___<field>DESC. Field or
// collection names containing the separator or spaces do not survive a
// round trip. Field names that themselves end in ASC or DESC do.
package index

import (
	"fmt"
	"strings"
)

const (
	// Namespace tags every index created through this package.
	Namespace = "idx"
	// Separator joins the name segments.
	Separator = "___"
)

// Direction is the sort direction of one indexed column.
type Direction int

const (
	// Asc sorts ascending.
	Asc Direction = 1
	// Desc sorts descending.
	Desc Direction = -1
)

// DirectionOf maps any negative number to Desc and everything else to Asc.
func DirectionOf(n int) Direction {
	if n < 0 {
		return Desc
	}
	return Asc
}

// SQL returns the DDL keyword for d.
func (d Direction) SQL() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// Key is one column of an index.
type Key struct {
	Field     string
	Direction Direction
}

// Render returns the human form "a ASC,b DESC".
func Render(keys []Key) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k.Field + " " + k.Direction.SQL()
	}
	return strings.Join(parts, ",")
}

// Encode derives the index name for keys on collection.
func Encode(collection string, keys []Key) string {
	cols := Render(keys)
	cols = strings.ReplaceAll(cols, ",", Separator)
	cols = strings.ReplaceAll(cols, " ", "")
	return Prefix(collection) + cols
}

// Prefix returns the name prefix shared by all indexes of collection.
func Prefix(collection string) string {
	return Namespace + Separator + collection + Separator
}

// IsManaged reports whether name belongs to the index namespace.
func IsManaged(name string) bool {
	return strings.HasPrefix(name, Namespace+Separator)
}

// Decode recovers the sort keys from an index name.
func Decode(name string) ([]Key, error) {
	tokens := strings.Split(name, Separator)
	if len(tokens) < 3 || tokens[0] != Namespace {
		return nil, fmt.Errorf("index name %q is not in the %s namespace", name, Namespace)
	}

	keys := make([]Key, 0, len(tokens)-2)
	for _, tok := range tokens[2:] {
		switch {
		case strings.HasSuffix(tok, "ASC") && len(tok) > len("ASC"):
			keys = append(keys, Key{Field: strings.TrimSuffix(tok, "ASC"), Direction: Asc})
		case strings.HasSuffix(tok, "DESC") && len(tok) > len("DESC"):
			keys = append(keys, Key{Field: strings.TrimSuffix(tok, "DESC"), Direction: Desc})
		default:
			return nil, fmt.Errorf("index name %q: token %q has no direction suffix", name, tok)
		}
	}
	return keys, nil
}

// Columns renders the DDL column list `"a" ASC, "b" DESC`.
func Columns(keys []Key) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = `"` + k.Field + `" ` + k.Direction.SQL()
	}
	return strings.Join(parts, ", ")
}
