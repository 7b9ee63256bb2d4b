// Package chunker provides a recursive, boundary-aware text chunker.
package chunker

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/pdfqa/internal/core/domain"
	"github.com/custodia-labs/pdfqa/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default maximum number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of characters shared by neighbouring chunks.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// DefaultSeparators are tried in order: paragraph, line, sentence, word, character.
// The empty separator cuts between characters.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", " ", ""}

// Processor splits document content into overlapping chunks.
// Lengths are measured in characters (runes). Chunks are exact substrings
// of the content, so neighbouring chunks can be stitched back together.
type Processor struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// WithSeparators replaces the separator hierarchy.
// Without a trailing "" a word longer than the chunk size is kept whole.
func WithSeparators(separators []string) Option {
	return func(p *Processor) {
		p.separators = separators
	}
}

// New creates a new chunker processor with the given options.
// An overlap that is not smaller than the chunk size is a configuration error.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.chunkSize <= 0 {
		return nil, domain.NewConfigurationError("chunk_size", fmt.Sprintf("must be positive, got %d", p.chunkSize))
	}
	if p.overlap < 0 {
		return nil, domain.NewConfigurationError("chunk_overlap", fmt.Sprintf("must not be negative, got %d", p.overlap))
	}
	if p.overlap >= p.chunkSize {
		return nil, domain.NewConfigurationError("chunk_overlap",
			fmt.Sprintf("%d must be smaller than chunk_size %d", p.overlap, p.chunkSize))
	}
	if len(p.separators) == 0 {
		return nil, domain.NewConfigurationError("separators", "at least one separator is required")
	}

	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured maximum chunk size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Split splits the document content into chunks tagged with the document source.
func (p *Processor) Split(ctx context.Context, doc domain.Document) ([]domain.Chunk, error) {
	if doc.Content == "" {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	spans := p.split(doc.Content, 0, len(doc.Content), p.separators)

	chunks := make([]domain.Chunk, 0, len(spans))
	for i, s := range spans {
		chunks = append(chunks, domain.Chunk{
			Source:  doc.Source,
			Ordinal: i,
			Start:   s.start,
			Content: doc.Content[s.start:s.end],
		})
	}
	return chunks, nil
}

// piece is a byte range of the content with its length in runes.
type piece struct {
	start, end int
	runes      int
}

// split recursively splits text[start:end] using the first separator present.
func (p *Processor) split(text string, start, end int, separators []string) []piece {
	sep := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" || strings.Contains(text[start:end], s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	var out, fitting []piece
	for _, pc := range cut(text, start, end, sep) {
		if pc.runes <= p.chunkSize {
			fitting = append(fitting, pc)
			continue
		}
		if len(fitting) > 0 {
			out = append(out, p.merge(fitting)...)
			fitting = nil
		}
		if len(rest) == 0 {
			// Unsplittable token longer than the chunk size.
			out = append(out, pc)
			continue
		}
		out = append(out, p.split(text, pc.start, pc.end, rest)...)
	}
	if len(fitting) > 0 {
		out = append(out, p.merge(fitting)...)
	}
	return out
}

// merge greedily packs consecutive pieces into windows of at most chunkSize runes.
// After a window is emitted its leading pieces are dropped until at most
// overlap runes remain; those pieces open the next window.
func (p *Processor) merge(pieces []piece) []piece {
	var out, window []piece
	total := 0

	for _, pc := range pieces {
		if total+pc.runes > p.chunkSize && len(window) > 0 {
			out = append(out, span(window, total))
			for total > p.overlap || (total+pc.runes > p.chunkSize && total > 0) {
				total -= window[0].runes
				window = window[1:]
			}
		}
		window = append(window, pc)
		total += pc.runes
	}
	if len(window) > 0 {
		out = append(out, span(window, total))
	}
	return out
}

// span joins contiguous pieces into a single piece.
func span(window []piece, runes int) piece {
	return piece{start: window[0].start, end: window[len(window)-1].end, runes: runes}
}

// cut splits text[start:end] after each occurrence of sep, keeping the separator
// at the end of the preceding piece. The empty separator cuts every rune.
func cut(text string, start, end int, sep string) []piece {
	var pieces []piece

	if sep == "" {
		for i := start; i < end; {
			_, size := utf8.DecodeRuneInString(text[i:end])
			pieces = append(pieces, piece{start: i, end: i + size, runes: 1})
			i += size
		}
		return pieces
	}

	pos := start
	for pos < end {
		idx := strings.Index(text[pos:end], sep)
		if idx < 0 {
			break
		}
		next := pos + idx + len(sep)
		pieces = append(pieces, piece{start: pos, end: next, runes: utf8.RuneCountInString(text[pos:next])})
		pos = next
	}
	if pos < end {
		pieces = append(pieces, piece{start: pos, end: end, runes: utf8.RuneCountInString(text[pos:end])})
	}
	return pieces
}

// Reconstruct stitches chunks of one document back together by dropping the
// part of each chunk that overlaps its predecessor.
func Reconstruct(chunks []domain.Chunk) string {
	var b strings.Builder
	end := 0
	for i, c := range chunks {
		if i == 0 {
			b.WriteString(c.Content)
			end = c.End()
			continue
		}
		if c.End() <= end {
			continue
		}
		skip := end - c.Start
		if skip < 0 {
			skip = 0
		}
		b.WriteString(c.Content[skip:])
		end = c.End()
	}
	return b.String()
}
