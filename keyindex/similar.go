package keyindex

import (
	"context"
	"sort"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// MinSimilarity is the Levenshtein similarity a key needs to be suggested.
const MinSimilarity = 0.7

// Suggestion is a key close to a looked-up one.
type Suggestion struct {
	Key   string
	Score float64
}

// Similar returns up to n keys in scope that resemble key, best first. key
// itself is never suggested.
func (ix *Index) Similar(ctx context.Context, scope Scope, key string, n int) ([]Suggestion, error) {
	files, err := ix.Files(ctx, scope)
	if err != nil {
		return nil, err
	}

	lev := metrics.NewLevenshtein()
	seen := map[string]bool{key: true}
	var out []Suggestion
	for _, f := range files {
		for _, p := range f.Properties() {
			k := p.UnescapedKey()
			if seen[k] {
				continue
			}
			seen[k] = true
			if s := strutil.Similarity(key, k, lev); s >= MinSimilarity {
				out = append(out, Suggestion{Key: k, Score: s})
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Key < out[j].Key
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}
