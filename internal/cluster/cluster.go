// Package cluster groups articles that cover the same story by comparing
// TF-IDF vectors of their segmented text.
package cluster

import (
	"sort"

	"github.com/IshaanNene/harvestgoat/internal/types"
)

// DefaultThreshold is the cosine similarity two documents must exceed to
// be linked.
const DefaultThreshold = 0.8

// Engine tokenizes, vectorizes and clusters documents. It holds no
// mutable state and is safe for concurrent use when its Segmenter is.
type Engine struct {
	seg       Segmenter
	stopwords Stopwords
}

// NewEngine creates a clustering engine. A nil stopword set disables
// stopword filtering.
func NewEngine(seg Segmenter, stopwords Stopwords) *Engine {
	if stopwords == nil {
		stopwords = Stopwords{}
	}
	return &Engine{seg: seg, stopwords: stopwords}
}

// Similarity returns the symmetric matrix of pairwise cosine similarities.
// The diagonal is 1 for documents with at least one weighted token.
func (e *Engine) Similarity(docs []string) [][]float64 {
	vecs := e.vectorize(docs)
	sim := make([][]float64, len(docs))
	for i := range sim {
		sim[i] = make([]float64, len(docs))
	}
	for i := range vecs {
		sim[i][i] = vecs[i].dot(vecs[i])
		for j := i + 1; j < len(vecs); j++ {
			s := vecs[i].dot(vecs[j])
			sim[i][j] = s
			sim[j][i] = s
		}
	}
	return sim
}

// Cluster links every pair of documents whose similarity is strictly
// greater than threshold and returns the connected components. Documents
// without any link are not reported. Members are sorted ascending and
// clusters are ordered by their smallest member.
func (e *Engine) Cluster(docs []string, threshold float64) [][]int {
	sim := e.Similarity(docs)

	uf := newUnionFind(len(docs))
	linked := make([]bool, len(docs))
	for i := range docs {
		for j := i + 1; j < len(docs); j++ {
			if sim[i][j] > threshold {
				uf.union(i, j)
				linked[i] = true
				linked[j] = true
			}
		}
	}

	groups := make(map[int][]int)
	var roots []int
	for i := range docs {
		if !linked[i] {
			continue
		}
		r := uf.find(i)
		if _, ok := groups[r]; !ok {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], i)
	}

	clusters := make([][]int, 0, len(roots))
	for _, r := range roots {
		clusters = append(clusters, groups[r])
	}
	sort.Slice(clusters, func(a, b int) bool { return clusters[a][0] < clusters[b][0] })
	return clusters
}

// ClusterArticles clusters articles on their extracted text.
func (e *Engine) ClusterArticles(articles []*types.Article, threshold float64) [][]int {
	docs := make([]string, len(articles))
	for i, a := range articles {
		docs[i] = a.ExtractedText()
	}
	return e.Cluster(docs, threshold)
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}
