package marketing

import (
	"strings"
	"unicode/utf8"
)

var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Chunk is a piece of a Document small enough to embed
type Chunk struct {
	Source string
	Page   int
	Text   string
}

// TextSplitter splits text recursively on paragraph, line and word
// boundaries until every piece fits ChunkSize runes, then merges neighbours
// back together with up to ChunkOverlap runes shared between chunks.
type TextSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
}

func NewTextSplitter(chunkSize, chunkOverlap int) *TextSplitter {
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 10
	}
	return &TextSplitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap, Separators: defaultSeparators}
}

func (s *TextSplitter) SplitDocuments(docs []Document) []Chunk {
	var chunks []Chunk
	for _, doc := range docs {
		for _, text := range s.SplitText(doc.Text) {
			chunks = append(chunks, Chunk{Source: doc.Source, Page: doc.Page, Text: text})
		}
	}
	return chunks
}

func (s *TextSplitter) SplitText(text string) []string {
	return s.split(text, s.Separators)
}

func (s *TextSplitter) split(text string, separators []string) []string {
	separator := ""
	var remaining []string
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	var pieces []string
	if separator == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
	} else {
		pieces = strings.Split(text, separator)
	}

	var final, fitting []string
	for _, piece := range pieces {
		if piece == "" {
			continue
		}
		if utf8.RuneCountInString(piece) < s.ChunkSize {
			fitting = append(fitting, piece)
			continue
		}
		if len(fitting) > 0 {
			final = append(final, s.merge(fitting, separator)...)
			fitting = nil
		}
		if len(remaining) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.split(piece, remaining)...)
		}
	}
	if len(fitting) > 0 {
		final = append(final, s.merge(fitting, separator)...)
	}
	return final
}

// merge packs pieces into chunks of at most ChunkSize runes. When a chunk is
// emitted, pieces are dropped from its front until at most ChunkOverlap runes
// remain to seed the next one.
func (s *TextSplitter) merge(pieces []string, separator string) []string {
	sepLen := utf8.RuneCountInString(separator)
	sepIf := func(current []string) int {
		if len(current) > 0 {
			return sepLen
		}
		return 0
	}

	var chunks, current []string
	total := 0
	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)
		if total+n+sepIf(current) > s.ChunkSize && len(current) > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, separator)); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.ChunkOverlap || (total > 0 && total+n+sepIf(current) > s.ChunkSize) {
				total -= utf8.RuneCountInString(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
		if len(current) > 1 {
			total += sepLen
		}
	}
	if chunk := strings.TrimSpace(strings.Join(current, separator)); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}
