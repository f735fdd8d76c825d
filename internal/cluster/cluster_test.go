package cluster

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/harvestgoat/internal/types"
)

// spaceSegmenter stands in for the dictionary segmenter.
type spaceSegmenter struct{}

func (spaceSegmenter) Cut(text string) []string { return strings.Fields(text) }

func newTestEngine(stop ...string) *Engine {
	sw := Stopwords{}
	for _, s := range stop {
		sw[s] = struct{}{}
	}
	return NewEngine(spaceSegmenter{}, sw)
}

func TestClusterTwoOfThree(t *testing.T) {
	e := newTestEngine()
	docs := []string{"aa bb cc", "aa bb dd", "xx yy zz"}

	sim := e.Similarity(docs)
	assert.InDelta(t, 0.536, sim[0][1], 0.001)
	assert.Equal(t, sim[0][1], sim[1][0])
	assert.Zero(t, sim[0][2])
	assert.InDelta(t, 1.0, sim[2][2], 1e-9)

	assert.Equal(t, [][]int{{0, 1}}, e.Cluster(docs, 0.5))
	assert.Empty(t, e.Cluster(docs, 0.6))
}

func TestClusterThresholdIsStrict(t *testing.T) {
	e := newTestEngine()
	docs := []string{"aa bb cc", "aa bb dd", "xx yy zz"}

	at := e.Similarity(docs)[0][1]
	assert.Empty(t, e.Cluster(docs, at))
	assert.Equal(t, [][]int{{0, 1}}, e.Cluster(docs, at-1e-9))
}

func TestClusterNearIdentical(t *testing.T) {
	var words []string
	for i := 0; i < 40; i++ {
		words = append(words, fmt.Sprintf("w%02d", i))
	}
	shared := strings.Join(words, " ")
	docs := []string{
		shared + " extra1",
		"unrelated story about weather",
		shared + " extra2",
	}

	got := newTestEngine().Cluster(docs, DefaultThreshold)
	assert.Equal(t, [][]int{{0, 2}}, got)
}

func TestClusterTransitiveComponents(t *testing.T) {
	docs := []string{
		"aa bb cc dd",
		"qq rr ss tt",
		"aa bb cc ee",
		"qq rr ss uu",
		"aa bb cc ff",
		"lonely doc here",
	}
	got := newTestEngine().Cluster(docs, 0.5)
	assert.Equal(t, [][]int{{0, 2, 4}, {1, 3}}, got)
}

func TestClusterDeterministic(t *testing.T) {
	e := newTestEngine()
	docs := []string{
		"港島 交通 意外 多人 受傷",
		"港島 交通 意外 兩人 受傷",
		"股市 收市 上升 恒指",
		"股市 收市 下跌 恒指",
		"天文台 發出 暴雨 警告",
	}
	first := e.Cluster(docs, 0.3)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.Cluster(docs, 0.3))
	}
	assert.Equal(t, [][]int{{0, 1}, {2, 3}}, first)
}

func TestClusterEmptyInput(t *testing.T) {
	e := newTestEngine()
	assert.Empty(t, e.Cluster(nil, DefaultThreshold))
	assert.Empty(t, e.Cluster([]string{"", ""}, 0))

	sim := e.Similarity([]string{"", "aa bb"})
	assert.Zero(t, sim[0][0])
	assert.Zero(t, sim[0][1])
}

func TestTokenizeFilters(t *testing.T) {
	e := newTestEngine("def")
	text := "【標題】香港 新聞\nABC Def 1,000 12:30 三月 15日 2025年 的 x 香港"

	assert.Equal(t, []string{"abc", "新聞", "標題", "香港"}, e.Tokenize(text))
}

func TestTokenizeLongLines(t *testing.T) {
	e := newTestEngine()

	assert.Empty(t, e.Tokenize(strings.Repeat("長", 600)), "unsplittable long line is dropped")
	assert.Equal(t, []string{"甲乙。"}, e.Tokenize(strings.Repeat("甲乙。", 200)))
	assert.Equal(t, []string{"短句"}, e.Tokenize("短句"))
}

func TestWeightUsesOriginalText(t *testing.T) {
	e := newTestEngine()
	// "ab" occurs twice in the first document and once in the second.
	vecs := e.vectorize([]string{"ab ab cd", "ab cd"})
	require.Len(t, vecs, 2)
	require.Len(t, vecs[0], 2)

	// Same idf for both terms, so weights stay in the 2:1 count ratio.
	assert.InDelta(t, 2.0, vecs[0][0].weight/vecs[0][1].weight, 1e-9)
	assert.InDelta(t, 1.0, vecs[1][0].weight/vecs[1][1].weight, 1e-9)
}

func TestUppercaseTokenStillCountsForDocumentFrequency(t *testing.T) {
	e := newTestEngine()
	// The token is lowercased before segmentation, so "HK" counts zero
	// in the original text but is still part of the vocabulary.
	vecs := e.vectorize([]string{"HK news", "hk news"})
	assert.Len(t, vecs[0], 1)
	assert.Len(t, vecs[1], 2)
}

func TestClusterArticles(t *testing.T) {
	mk := func(id, text string) *types.Article {
		a := &types.Article{ID: id, Title: id, Content: "<p></p>", ContentType: types.ContentHTML}
		return a.WithExtracted(text)
	}
	articles := []*types.Article{
		mk("a", "aa bb cc"),
		mk("b", "xx yy zz"),
		mk("c", "aa bb cc"),
	}
	assert.Equal(t, [][]int{{0, 2}}, newTestEngine().ClusterArticles(articles, DefaultThreshold))
}

func TestStopwords(t *testing.T) {
	sw, err := ReadStopwords(strings.NewReader("# comment\n\n 的 \nthe\n"))
	require.NoError(t, err)
	assert.Len(t, sw, 2)
	assert.True(t, sw.Contains("的"))
	assert.False(t, sw.Contains("# comment"))

	def := DefaultStopwords()
	assert.True(t, def.Contains("記者"))
	assert.False(t, def.Contains("# Function words and newsroom boilerplate dropped before clustering."))

	_, err = LoadStopwords("/nonexistent/stopwords.txt")
	assert.Error(t, err)
}

func TestGSESegmenterDefaultDictionary(t *testing.T) {
	seg, err := NewGSESegmenter("")
	require.NoError(t, err)

	text := "香港政府今日宣布新措施"
	tokens := seg.Cut(text)
	assert.Greater(t, len(tokens), 1)
	assert.Equal(t, text, strings.Join(tokens, ""))
	assert.Contains(t, tokens, "宣布")
}
