package engine

import (
	"context"
	"errors"

	"github.com/yangguo/epub2audio/pkg/types"
)

// ErrUnknownEngine indicates a requested engine name is not registered
var ErrUnknownEngine = errors.New("unknown speech engine")

// Engine defines the interface for speech synthesis backends
type Engine interface {
	// Name returns the engine name
	Name() string

	// Synthesize converts text to speech
	Synthesize(ctx context.Context, req Request) (*Response, error)

	// ListVoices returns the voices the engine can speak with
	ListVoices(ctx context.Context) ([]types.Voice, error)

	// Close cleans up resources
	Close() error
}

// Request contains the text for synthesis
type Request struct {
	Text string // Text to synthesize
}

// Response contains the synthesized audio
type Response struct {
	Audio  []byte // Audio file data
	Format string // Audio format (e.g. "mp3")
}
