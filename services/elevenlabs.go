package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/haguro/elevenlabs-go"
)

const (
	elevenLabsVoiceID = "JBFqnCBsd6RMkjVDRZzb"
	elevenLabsModelID = "eleven_multilingual_v2"

	audioChunkSize = 32 * 1024
)

// streamFunc writes the synthesized MP3 stream for req to w.
type streamFunc func(ctx context.Context, w io.Writer, voiceID string, req elevenlabs.TextToSpeechRequest) error

// ElevenLabsSynthesizer streams speech from the ElevenLabs text-to-speech API.
type ElevenLabsSynthesizer struct {
	voiceID string
	modelID string
	stream  streamFunc
}

func NewElevenLabsSynthesizer(apiKey string) *ElevenLabsSynthesizer {
	return &ElevenLabsSynthesizer{
		voiceID: elevenLabsVoiceID,
		modelID: elevenLabsModelID,
		stream: func(ctx context.Context, w io.Writer, voiceID string, req elevenlabs.TextToSpeechRequest) error {
			// The client binds its context at construction, so one is built per request.
			return elevenlabs.NewClient(ctx, apiKey, 0).TextToSpeechStream(w, voiceID, req)
		},
	}
}

func (s *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text string) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		pr, pw := io.Pipe()
		// Closing the reader unblocks the writer when the consumer stops early.
		defer pr.Close()

		go func() {
			err := s.stream(ctx, pw, s.voiceID, elevenlabs.TextToSpeechRequest{
				Text:    text,
				ModelID: s.modelID,
			})
			if err != nil {
				err = fmt.Errorf("elevenlabs text to speech: %w", err)
			}
			pw.CloseWithError(err)
		}()

		buf := make([]byte, audioChunkSize)
		for {
			n, readErr := pr.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				if !yield(chunk, nil) {
					return
				}
			}
			if errors.Is(readErr, io.EOF) {
				return
			}
			if readErr != nil {
				yield(nil, readErr)
				return
			}
		}
	}
}
