package service

import (
	"regexp"
	"strings"

	"github.com/docuquery/rag-be/types"
)

// ChunkerService splits extracted page text into overlapping, sentence-aware
// chunks. Chunking is deterministic: identical input and parameters always
// produce the identical chunk sequence.
type ChunkerService struct {
	chunkSize int
	overlap   int
}

func NewChunkerService(chunkSize, overlap int) *ChunkerService {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return &ChunkerService{
		chunkSize: chunkSize,
		overlap:   overlap,
	}
}

// ChunkText produces the ordered chunk sequence for a document. Chunks never
// cross page boundaries; indices are contiguous from 0 across all pages.
// Offsets are relative to the page text. IDs and fingerprints are left for
// the caller to assign.
func (c *ChunkerService) ChunkText(pages []types.PageText, documentID string) ([]types.Chunk, error) {
	var chunks []types.Chunk
	for _, page := range pages {
		chunks = append(chunks, c.chunkPage(page, documentID, len(chunks))...)
	}
	if len(chunks) == 0 {
		return nil, types.ErrEmptyDocument
	}
	return chunks, nil
}

// span is a half-open [start, end) byte range within one page's text.
type span struct {
	start, end int
}

func (c *ChunkerService) chunkPage(page types.PageText, documentID string, nextIndex int) []types.Chunk {
	sentences := splitSentences(page.Text)

	var out []types.Chunk
	var current []span
	lastEnd := -1

	emit := func(start, end int) {
		out = append(out, c.newChunk(page, documentID, nextIndex+len(out), start, end))
		lastEnd = end
	}

	for _, s := range sentences {
		if s.end-s.start > c.chunkSize {
			// A single oversized sentence: close whatever is pending, then
			// hard-split the sentence at character boundaries.
			if len(current) > 0 {
				emit(current[0].start, current[len(current)-1].end)
				current = nil
			}
			for start := s.start; start < s.end; start += c.chunkSize {
				end := start + c.chunkSize
				if end > s.end {
					end = s.end
				}
				emit(start, end)
			}
			continue
		}

		if len(current) > 0 && s.end-current[0].start > c.chunkSize {
			emit(current[0].start, current[len(current)-1].end)
			current = overlapSeed(current, c.overlap)
		}
		current = append(current, s)
	}

	// Flush the tail, unless it is only the overlap seed of the chunk just
	// emitted and would add nothing new.
	if len(current) > 0 && current[len(current)-1].end > lastEnd {
		emit(current[0].start, current[len(current)-1].end)
	}
	return out
}

func (c *ChunkerService) newChunk(page types.PageText, documentID string, index, start, end int) types.Chunk {
	content := page.Text[start:end]
	pageNumber := page.PageNumber
	return types.Chunk{
		DocumentID: documentID,
		Index:      index,
		Content:    content,
		PageNumber: &pageNumber,
		StartChar:  start,
		EndChar:    end,
		TokenCount: len(strings.Fields(content)),
	}
}

// overlapSeed picks the trailing sentences carried into the next chunk: whole
// sentences whose combined span fits in the overlap budget, capped at half
// the sentences of the chunk being closed.
func overlapSeed(sentences []span, overlap int) []span {
	if overlap <= 0 || len(sentences) == 0 {
		return nil
	}
	maxCount := len(sentences) / 2
	if maxCount == 0 {
		return nil
	}
	end := sentences[len(sentences)-1].end
	i := len(sentences)
	for i > 0 && len(sentences)-i < maxCount {
		if end-sentences[i-1].start > overlap {
			break
		}
		i--
	}
	if i == len(sentences) {
		return nil
	}
	return append([]span(nil), sentences[i:]...)
}

var sentenceEndRe = regexp.MustCompile(`([.!?]+)(\s+)`)

// splitSentences returns the sentence spans of text. A sentence ends at a run
// of terminal punctuation followed by whitespace; trailing text without a
// terminator counts as a final sentence.
func splitSentences(text string) []span {
	var spans []span
	start := 0
	for _, m := range sentenceEndRe.FindAllStringSubmatchIndex(text, -1) {
		end := m[3]
		if end > start && strings.TrimSpace(text[start:end]) != "" {
			spans = append(spans, span{start: start, end: end})
		}
		start = m[1]
	}
	if start < len(text) {
		end := len(text)
		for end > start && (text[end-1] == ' ' || text[end-1] == '\t' || text[end-1] == '\n') {
			end--
		}
		if end > start {
			spans = append(spans, span{start: start, end: end})
		}
	}
	return spans
}
