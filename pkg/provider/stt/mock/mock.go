// Package mock provides a test double for the stt.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/signbridge/pkg/provider/stt"
)

// Provider is a configurable mock implementation of stt.Provider.
// All methods are safe for concurrent use.
type Provider struct {
	mu sync.Mutex

	// Text is returned by Transcribe when Err is nil.
	Text string

	// Err, when non-nil, is returned by every Transcribe call.
	Err error

	// Requests records every Transcribe invocation in order.
	Requests []stt.Request
}

var _ stt.Provider = (*Provider)(nil)

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(_ context.Context, req stt.Request) (string, error) {
	p.mu.Lock()
	p.Requests = append(p.Requests, req)
	text, err := p.Text, p.Err
	p.mu.Unlock()

	if err != nil {
		return "", err
	}
	return text, nil
}
