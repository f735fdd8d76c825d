package cluster

import (
	"fmt"

	"github.com/go-ego/gse"
)

// Segmenter splits one line of text into candidate tokens.
type Segmenter interface {
	Cut(text string) []string
}

// GSESegmenter segments Chinese and mixed-script text with gse in its
// default (coarse, HMM-assisted) mode. The dictionary is read-only once
// loaded, so a single instance may be shared across goroutines.
type GSESegmenter struct {
	seg gse.Segmenter
}

// NewGSESegmenter loads the Chinese dictionary compiled into gse, or the
// dictionary files named by dictPath (comma separated) when it is set.
func NewGSESegmenter(dictPath string) (*GSESegmenter, error) {
	var (
		seg gse.Segmenter
		err error
	)
	if dictPath != "" {
		seg, err = gse.New(dictPath)
	} else {
		seg, err = gse.NewEmbed("zh")
	}
	if err != nil {
		return nil, fmt.Errorf("load segmentation dictionary: %w", err)
	}
	return &GSESegmenter{seg: seg}, nil
}

func (g *GSESegmenter) Cut(text string) []string {
	return g.seg.Cut(text, true)
}
