package chunker

import (
	"fmt"

	"ragstore/internal/models"
)

// Chunker slices page text into overlapping fixed-size windows. Window and
// overlap are validated once at construction; Split never re-checks them.
type Chunker struct {
	windowSize int
	overlap    int
}

func New(windowSize, overlap int) (*Chunker, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", windowSize)
	}
	if overlap < 0 || overlap >= windowSize {
		return nil, fmt.Errorf("overlap must be in [0, windowSize), got %d", overlap)
	}
	return &Chunker{windowSize: windowSize, overlap: overlap}, nil
}

// Split walks the pages in order and emits chunks of at most windowSize
// characters, with adjacent chunks from the same file sharing overlap
// characters. Text is concatenated per source file and never across files;
// each chunk's provenance is the page containing the window's start offset.
// SequenceIndex is contiguous from 0 across the whole call, stable for
// id derivation and batch accounting.
func (c *Chunker) Split(pages []models.PageUnit) []models.Chunk {
	var chunks []models.Chunk
	seq := 0
	for _, group := range groupBySource(pages) {
		chunks = append(chunks, c.splitSource(group, &seq)...)
	}
	return chunks
}

// sourcePages is the ordered page set of one input file.
type sourcePages struct {
	name  string
	pages []models.PageUnit
}

func groupBySource(pages []models.PageUnit) []sourcePages {
	var groups []sourcePages
	for _, p := range pages {
		if len(groups) == 0 || groups[len(groups)-1].name != p.SourceName {
			groups = append(groups, sourcePages{name: p.SourceName})
		}
		g := &groups[len(groups)-1]
		g.pages = append(g.pages, p)
	}
	return groups
}

func (c *Chunker) splitSource(src sourcePages, seq *int) []models.Chunk {
	// concatenate page text, remembering where each page starts
	var text string
	pageStarts := make([]int, len(src.pages))
	for i, p := range src.pages {
		pageStarts[i] = len(text)
		text += p.Text
	}
	if len(text) == 0 {
		return nil
	}

	step := c.windowSize - c.overlap
	var chunks []models.Chunk
	for start := 0; start < len(text); start += step {
		end := start + c.windowSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, models.Chunk{
			Text:          text[start:end],
			SourceName:    src.name,
			PageNumber:    pageAt(src.pages, pageStarts, start),
			SequenceIndex: *seq,
		})
		*seq++
		// a window that reached the end consumed the trailing remainder
		if end == len(text) {
			break
		}
	}
	return chunks
}

// pageAt returns the 1-based page number of the page containing offset.
func pageAt(pages []models.PageUnit, pageStarts []int, offset int) int {
	for i := len(pages) - 1; i >= 0; i-- {
		if offset >= pageStarts[i] {
			return pages[i].PageNumber
		}
	}
	return pages[0].PageNumber
}
