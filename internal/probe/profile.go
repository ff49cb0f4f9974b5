package probe

// DistinctCap bounds distinct-value tracking per column.
const DistinctCap = 10000

// ColumnProfile summarizes one column of a table.
type ColumnProfile struct {
	Name     string
	Kind     Kind
	Values   int // non-null values
	Nulls    int
	Distinct int // capped at DistinctCap
	Capped   bool
}

// Unique reports whether every non-null value was distinct. It is false when
// counting was capped.
func (c ColumnProfile) Unique() bool {
	return !c.Capped && c.Values > 0 && c.Distinct == c.Values
}

// Profile computes kinds, null counts and bounded distinct counts for each
// column. names and rows must be aligned; short rows count as nulls for the
// missing columns.
//
// Once a column reaches DistinctCap distinct values its set is dropped and
// Capped is set.
func Profile(names []string, rows [][]string, nulls NullSet) []ColumnProfile {
	kinds := InferKinds(rows, len(names), nulls)
	out := make([]ColumnProfile, len(names))
	sets := make([]map[string]struct{}, len(names))
	for i := range names {
		out[i] = ColumnProfile{Name: names[i], Kind: kinds[i]}
		sets[i] = make(map[string]struct{})
	}

	for _, r := range rows {
		for i := range names {
			if i >= len(r) || nulls.IsNull(r[i]) {
				out[i].Nulls++
				continue
			}
			out[i].Values++
			if out[i].Capped {
				continue
			}
			sets[i][r[i]] = struct{}{}
			if len(sets[i]) >= DistinctCap {
				out[i].Capped = true
				sets[i] = nil
			}
		}
	}

	for i := range out {
		if out[i].Capped {
			out[i].Distinct = DistinctCap
			continue
		}
		out[i].Distinct = len(sets[i])
	}
	return out
}
