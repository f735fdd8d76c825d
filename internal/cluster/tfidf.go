package cluster

import (
	"math"
	"sort"
	"strings"
)

type entry struct {
	term   int
	weight float64
}

// vector is a sparse document vector ordered by term index so that dot
// products are summed in a fixed order.
type vector []entry

func (v vector) dot(o vector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v) && j < len(o) {
		switch {
		case v[i].term < o[j].term:
			i++
		case v[i].term > o[j].term:
			j++
		default:
			sum += v[i].weight * o[j].weight
			i++
			j++
		}
	}
	return sum
}

func (v vector) normalize() {
	var sq float64
	for _, e := range v {
		sq += e.weight * e.weight
	}
	if sq == 0 {
		return
	}
	norm := math.Sqrt(sq)
	for i := range v {
		v[i].weight /= norm
	}
}

// vectorize builds L2-normalised TF-IDF vectors. Each retained token is
// weighted by its occurrence count in the unmodified document; a token
// the segmenter produced from lowercased text may count zero but still
// contributes to document frequency. IDF is smoothed:
// ln((1+n)/(1+df)) + 1.
func (e *Engine) vectorize(docs []string) []vector {
	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		tokens := e.Tokenize(doc)
		m := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			m[tok] = strings.Count(doc, tok)
			df[tok]++
		}
		counts[i] = m
	}

	vocab := make([]string, 0, len(df))
	for tok := range df {
		vocab = append(vocab, tok)
	}
	sort.Strings(vocab)
	index := make(map[string]int, len(vocab))
	for i, tok := range vocab {
		index[tok] = i
	}

	n := float64(len(docs))
	vecs := make([]vector, len(docs))
	for i, m := range counts {
		v := make(vector, 0, len(m))
		for tok, c := range m {
			if c == 0 {
				continue
			}
			idf := math.Log((1+n)/(1+float64(df[tok]))) + 1
			v = append(v, entry{term: index[tok], weight: float64(c) * idf})
		}
		sort.Slice(v, func(a, b int) bool { return v[a].term < v[b].term })
		v.normalize()
		vecs[i] = v
	}
	return vecs
}
