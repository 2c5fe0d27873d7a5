package document

import "strings"

// Group is a run of documents sharing one exact field set.
type Group struct {
	Columns []string
	Docs    []Document
}

// Rows returns the parameter tuples of the group in Columns order.
func (g *Group) Rows() [][]any {
	rows := make([][]any, len(g.Docs))
	for i, d := range g.Docs {
		rows[i] = d.Values(g.Columns)
	}
	return rows
}

// GroupByKeys partitions docs by their canonical (sorted) field set so each
// group can be inserted with one statement. Groups appear in order of first
// occurrence and keep the relative order of their documents.
func GroupByKeys(docs []Document) []Group {
	var groups []Group
	byKey := make(map[string]int)

	for _, d := range docs {
		cols := d.Keys()
		// ValidateName rejects NUL, so it cannot collide.
		key := strings.Join(cols, "\x00")
		i, ok := byKey[key]
		if !ok {
			i = len(groups)
			byKey[key] = i
			groups = append(groups, Group{Columns: cols})
		}
		groups[i].Docs = append(groups[i].Docs, d)
	}
	return groups
}
