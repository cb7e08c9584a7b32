package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/yangguo/epub2audio/pkg/types"
)

// StubEngine is an in-memory engine for tests and dry runs. It returns
// deterministic fake audio and can be primed to fail selected calls.
type StubEngine struct {
	name      string
	failFirst int
	failOn    string

	mu    sync.Mutex
	calls int
}

// NewStubEngine creates a new stub engine
func NewStubEngine() *StubEngine {
	return &StubEngine{name: "stub"}
}

// FailFirst makes the first n synthesis calls fail
func (s *StubEngine) FailFirst(n int) *StubEngine {
	s.failFirst = n
	return s
}

// FailOn makes every call whose text contains substr fail
func (s *StubEngine) FailOn(substr string) *StubEngine {
	s.failOn = substr
	return s
}

// Calls returns the number of synthesis calls made so far
func (s *StubEngine) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *StubEngine) Name() string {
	return s.name
}

func (s *StubEngine) Synthesize(ctx context.Context, req Request) (*Response, error) {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()

	if s.failOn != "" && strings.Contains(req.Text, s.failOn) {
		return nil, fmt.Errorf("stub synthesis refused for marked text")
	}
	if n <= s.failFirst {
		return nil, fmt.Errorf("stub synthesis failure %d", n)
	}

	textPreview := req.Text
	if len(textPreview) > 10 {
		textPreview = textPreview[:10]
	}
	return &Response{
		Audio:  []byte(fmt.Sprintf("STUB_AUDIO_%s", textPreview)),
		Format: "mp3",
	}, nil
}

func (s *StubEngine) ListVoices(ctx context.Context) ([]types.Voice, error) {
	return []types.Voice{
		{
			ID:          "stub-voice-1",
			Name:        "Stub Voice 1",
			Languages:   []string{"en"},
			Gender:      "neutral",
			Description: "A stub voice for testing",
		},
		{
			ID:          "stub-voice-2",
			Name:        "Stub Voice 2",
			Languages:   []string{"en", "es"},
			Gender:      "male",
			Description: "Another stub voice",
		},
	}, nil
}

func (s *StubEngine) Close() error {
	return nil
}
