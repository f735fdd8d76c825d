package cluster

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed stopwords.txt
var defaultStopwords string

// Stopwords is a read-only token set excluded from document vectors.
type Stopwords map[string]struct{}

// Contains reports whether token is a stopword.
func (s Stopwords) Contains(token string) bool {
	_, ok := s[token]
	return ok
}

// DefaultStopwords returns the built-in list.
func DefaultStopwords() Stopwords {
	sw, _ := ReadStopwords(strings.NewReader(defaultStopwords))
	return sw
}

// LoadStopwords reads a stopword file with one entry per line. An empty
// path returns the built-in list.
func LoadStopwords(path string) (Stopwords, error) {
	if path == "" {
		return DefaultStopwords(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open stopwords: %w", err)
	}
	defer f.Close()
	return ReadStopwords(f)
}

// ReadStopwords parses one stopword per line. Blank lines and lines
// starting with # are ignored.
func ReadStopwords(r io.Reader) (Stopwords, error) {
	sw := make(Stopwords)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sw[line] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read stopwords: %w", err)
	}
	return sw, nil
}
