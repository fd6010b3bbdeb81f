package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// FilterOrderings keeps the orderings whose field is in allowed, mapping each to its column name.
func FilterOrderings(orderings []DBOrdering, allowed map[string]string) []DBOrdering {
	out := make([]DBOrdering, 0, len(orderings))
	for _, ord := range orderings {
		if col, ok := allowed[strings.ToLower(ord.Field)]; ok {
			out = append(out, DBOrdering{Field: col, Ascending: ord.Ascending})
		}
	}
	return out
}

// OrderByClause renders orderings as a SQL ORDER BY clause, falling back to def.
func OrderByClause(orderings []DBOrdering, def string) string {
	if len(orderings) == 0 {
		return " ORDER BY " + def
	}
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		parts = append(parts, ord.String())
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
