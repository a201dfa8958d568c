package resilience

import (
	"fmt"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestIsTransientNil(t *testing.T) {
	assert.False(t, IsTransient(nil))
}

func TestIsTransientWrapped(t *testing.T) {
	base := NewTransientError(eris.New("503 from upstream"), 503)
	assert.True(t, IsTransient(base))
	assert.True(t, IsTransient(fmt.Errorf("calling api: %w", base)))
	assert.Equal(t, 503, base.StatusCode)
}

func TestIsTransientSyscall(t *testing.T) {
	assert.True(t, IsTransient(syscall.ECONNRESET))
	assert.True(t, IsTransient(fmt.Errorf("dial: %w", syscall.ECONNREFUSED)))
}

func TestIsTransientStringHeuristics(t *testing.T) {
	for _, msg := range []string{
		"read tcp: connection reset by peer",
		"write: broken pipe",
		"api error: Overloaded",
		"429: rate limit exceeded",
		"net/http: TLS handshake timeout",
	} {
		assert.True(t, IsTransient(eris.New(msg)), msg)
	}
}

func TestIsTransientPermanent(t *testing.T) {
	assert.False(t, IsTransient(eris.New("invalid api key")))
	assert.False(t, IsTransient(eris.New("400 bad request")))
}
