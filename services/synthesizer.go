package services

import (
	"bytes"
	"context"
	"iter"
)

// Synthesizer converts text into a lazy sequence of MP3 chunks. The request is
// issued when the sequence is ranged over.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) iter.Seq2[[]byte, error]
}

// JoinChunks consumes chunks in order and concatenates them, dropping empty ones.
func JoinChunks(chunks iter.Seq2[[]byte, error]) ([]byte, error) {
	var buf bytes.Buffer
	for chunk, err := range chunks {
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			continue
		}
		buf.Write(chunk)
	}

	return buf.Bytes(), nil
}
