package keyindex

import (
	"context"
	"fmt"
	"sort"
)

// Kind tells the duplicate analyses apart.
type Kind int

const (
	// DuplicateKey: one key defined more than once in the same file.
	DuplicateKey Kind = iota
	// DuplicateValue: one non-empty raw value used by more than one
	// property in the scope.
	DuplicateValue
	// KeyDifferentValues: one key with at least two distinct raw values in
	// the scope.
	KeyDifferentValues
)

func (k Kind) String() string {
	switch k {
	case DuplicateKey:
		return "duplicate-key"
	case DuplicateValue:
		return "duplicate-value"
	case KeyDifferentValues:
		return "key-different-values"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Checks selects the analyses Duplicates runs.
type Checks struct {
	DuplicateKeys   bool
	DuplicateValues bool
	DifferentValues bool
}

// AllChecks enables every analysis.
var AllChecks = Checks{DuplicateKeys: true, DuplicateValues: true, DifferentValues: true}

// Finding is one result of a duplicate analysis. Key is set for
// DuplicateKey and KeyDifferentValues, Value for DuplicateValue.
type Finding struct {
	Kind        Kind
	Key         string
	Value       string
	Occurrences []Occurrence
}

// Duplicates runs the selected analyses over scope. Occurrences follow file
// order then source order. Findings are sorted by kind, then key or value.
func (ix *Index) Duplicates(ctx context.Context, scope Scope, checks Checks) ([]Finding, error) {
	files, err := ix.Files(ctx, scope)
	if err != nil {
		return nil, err
	}

	// One pass builds both groupings; slices keep first-seen order.
	var keys, values []string
	byKey := map[string][]Occurrence{}
	byValue := map[string][]Occurrence{}
	for _, f := range files {
		for _, p := range f.Properties() {
			o := Occurrence{File: f, Property: p}
			k := p.UnescapedKey()
			if _, ok := byKey[k]; !ok {
				keys = append(keys, k)
			}
			byKey[k] = append(byKey[k], o)
			if v := p.Value(); v != "" {
				if _, ok := byValue[v]; !ok {
					values = append(values, v)
				}
				byValue[v] = append(byValue[v], o)
			}
		}
	}

	var out []Finding
	if checks.DuplicateKeys {
		for _, k := range keys {
			out = append(out, sameFile(k, byKey[k])...)
		}
	}
	if checks.DuplicateValues {
		for _, v := range values {
			if occ := byValue[v]; len(occ) > 1 {
				out = append(out, Finding{Kind: DuplicateValue, Value: v, Occurrences: occ})
			}
		}
	}
	if checks.DifferentValues {
		for _, k := range keys {
			occ := byKey[k]
			if distinctValues(occ) > 1 {
				out = append(out, Finding{Kind: KeyDifferentValues, Key: k, Occurrences: occ})
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		return a.Value < b.Value
	})
	return out, nil
}

// sameFile splits occurrences of one key by file and reports files that
// define it more than once.
func sameFile(key string, occ []Occurrence) []Finding {
	var out []Finding
	for i := 0; i < len(occ); {
		j := i + 1
		for j < len(occ) && occ[j].File == occ[i].File {
			j++
		}
		if j-i > 1 {
			out = append(out, Finding{Kind: DuplicateKey, Key: key, Occurrences: occ[i:j:j]})
		}
		i = j
	}
	return out
}

func distinctValues(occ []Occurrence) int {
	seen := map[string]bool{}
	for _, o := range occ {
		seen[o.Property.Value()] = true
	}
	return len(seen)
}
