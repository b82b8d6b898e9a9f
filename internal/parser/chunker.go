package parser

import (
	"errors"
	"fmt"
	"strings"

	"media-rag/internal/models"
)

const (
	defaultChunkSize    = 1000 // runes
	defaultChunkOverlap = 200  // runes
	defaultSeparator    = '\n'
)

var ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

// Splitter cuts text into fixed size windows that prefer to end on Separator.
// Consecutive windows share at most ChunkOverlap runes.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separator    rune
}

// NewSplitter requires chunkSize > chunkOverlap >= 0.
func NewSplitter(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 || chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk size %d, overlap %d", ErrInvalidChunkConfig, chunkSize, chunkOverlap)
	}
	return &Splitter{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
		Separator:    defaultSeparator,
	}, nil
}

func DefaultSplitter() *Splitter {
	return &Splitter{
		ChunkSize:    defaultChunkSize,
		ChunkOverlap: defaultChunkOverlap,
		Separator:    defaultSeparator,
	}
}

// Split returns the ordered windows covering text. Blank text has no chunks.
func (s *Splitter) Split(text string) []models.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	content := []rune(text)
	contentLen := len(content)

	var chunks []models.Chunk
	start := 0
	for start < contentLen {
		end := min(start+s.ChunkSize, contentLen)

		// break after the last separator that lies beyond the overlap region
		if end < contentLen {
			for i := end - 1; i >= start+s.ChunkOverlap; i-- {
				if content[i] == s.Separator {
					end = i + 1
					break
				}
			}
		}

		chunks = append(chunks, models.Chunk{
			Content: string(content[start:end]),
			Offset:  start,
			ChunkID: len(chunks) + 1,
		})
		if end == contentLen {
			break
		}

		start = s.nextStart(content, end)
	}
	return chunks
}

// nextStart picks where the window after end begins: inside the trailing
// overlap region, on a line boundary when there is one.
func (s *Splitter) nextStart(content []rune, end int) int {
	next := end - s.ChunkOverlap
	if next == end || content[next-1] == s.Separator {
		return next
	}
	for i := next; i < end-1; i++ {
		if content[i] == s.Separator {
			return i + 1
		}
	}
	return next
}

// Join reassembles the text a chunk sequence was split from.
func Join(chunks []models.Chunk) string {
	var content strings.Builder
	covered := 0
	for _, chunk := range chunks {
		runes := []rune(chunk.Content)
		skip := max(covered-chunk.Offset, 0)
		if skip < len(runes) {
			content.WriteString(string(runes[skip:]))
		}
		covered = max(covered, chunk.Offset+len(runes))
	}
	return content.String()
}

// Texts returns the chunk contents in order.
func Texts(chunks []models.Chunk) []string {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	return texts
}
