package chunking

import "strings"

const elision = "\n[...]\n"

// Splitter cuts text into rune windows of ChunkSize, each overlapping the
// previous one by Overlap runes.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := min(start+s.ChunkSize, len(runes))
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

// Excerpt bounds text to roughly budget runes for a model prompt. Text over
// budget keeps its leading chunks plus its last quarter-budget of runes,
// separated by an elision marker; letters state the decision first and
// deadlines last.
func Excerpt(text string, budget int) string {
	runes := []rune(text)
	if budget <= 0 || len(runes) <= budget {
		return text
	}

	size := max(1, budget/4)
	tail := strings.TrimSpace(string(runes[len(runes)-size:]))
	used := len([]rune(tail))

	var head []string
	for _, chunk := range NewSplitter(size, 0).Split(string(runes[:len(runes)-size])) {
		n := len([]rune(chunk))
		if used+n > budget {
			break
		}
		head = append(head, chunk)
		used += n
	}
	return strings.Join(head, "\n") + elision + tail
}
