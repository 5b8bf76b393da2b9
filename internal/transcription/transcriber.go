// Package transcription turns extracted audio into text.
package transcription

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/SebastienCoste/RealTimeSpeechValidation/internal/model"
)

// Transcriber converts an audio file to text
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// WhisperTranscriber uses the OpenAI audio transcription endpoint
type WhisperTranscriber struct {
	client *openai.Client
	model  string
}

// NewWhisperTranscriber creates a Whisper client
func NewWhisperTranscriber(cfg model.TranscriptionConfig, httpClient *http.Client) (*WhisperTranscriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}

	m := cfg.Model
	if m == "" {
		m = openai.Whisper1
	}

	return &WhisperTranscriber{
		client: openai.NewClientWithConfig(clientConfig),
		model:  m,
	}, nil
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// MockSegments are the canned sentences returned when no speech-to-text API
// is configured
var MockSegments = []string{
	"Climate change is affecting weather patterns globally.",
	"The Earth's temperature has risen by 1.1 degrees Celsius since pre-industrial times.",
	"Renewable energy sources are becoming more cost-effective.",
	"Electric vehicles are projected to reach price parity with gas cars by 2025.",
	"The moon landing occurred on July 20, 1969.",
	"Artificial intelligence is transforming various industries.",
}

// MockTranscriber returns a random canned sentence
type MockTranscriber struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockTranscriber seeds the sentence picker; equal seeds give equal sequences
func NewMockTranscriber(seed uint64) *MockTranscriber {
	return &MockTranscriber{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (m *MockTranscriber) Transcribe(_ context.Context, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MockSegments[m.rng.IntN(len(MockSegments))], nil
}

// Fallback tries primary and answers from mock when it fails
type Fallback struct {
	primary Transcriber
	mock    Transcriber
	logger  *zap.Logger
}

func (f *Fallback) Transcribe(ctx context.Context, audioPath string) (string, error) {
	text, err := f.primary.Transcribe(ctx, audioPath)
	if err == nil {
		return text, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	f.logger.Error("transcription failed, using mock transcription", zap.Error(err))
	return f.mock.Transcribe(ctx, audioPath)
}

// New returns Whisper with mock fallback when an API key is configured and
// the mock alone otherwise
func New(cfg model.TranscriptionConfig, httpClient *http.Client, logger *zap.Logger) Transcriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	mock := NewMockTranscriber(rand.Uint64())

	whisper, err := NewWhisperTranscriber(cfg, httpClient)
	if err != nil {
		logger.Warn("OpenAI API key not configured, using mock transcription")
		return mock
	}
	return &Fallback{primary: whisper, mock: mock, logger: logger}
}
