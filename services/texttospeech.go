package services

import (
	"context"
	"fmt"
	"iter"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

const (
	googleVoice        = "en-US-Standard-C"
	googleLanguageCode = "en-US"
)

// speechClient is the part of *texttospeech.Client the synthesizer uses.
type speechClient interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

// GoogleSynthesizer voices text with Google Cloud Text-to-Speech.
type GoogleSynthesizer struct {
	client speechClient
	voice  string
}

// NewGoogleSynthesizer uses apiKey when set and application default credentials otherwise.
func NewGoogleSynthesizer(ctx context.Context, apiKey string) (*GoogleSynthesizer, error) {
	var opts []option.ClientOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create texttospeech client: %w", err)
	}

	return &GoogleSynthesizer{client: client, voice: googleVoice}, nil
}

// Synthesize yields the whole clip as a single chunk.
func (s *GoogleSynthesizer) Synthesize(ctx context.Context, text string) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		resp, err := s.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
			Input: &texttospeechpb.SynthesisInput{
				InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
			},
			Voice: &texttospeechpb.VoiceSelectionParams{
				LanguageCode: googleLanguageCode,
				SsmlGender:   texttospeechpb.SsmlVoiceGender_NEUTRAL,
				Name:         s.voice,
			},
			AudioConfig: &texttospeechpb.AudioConfig{
				AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			},
		})
		if err != nil {
			yield(nil, fmt.Errorf("synthesize speech: %w", err))
			return
		}

		yield(resp.AudioContent, nil)
	}
}

func (s *GoogleSynthesizer) Close() error {
	return s.client.Close()
}
