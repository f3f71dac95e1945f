package unittest

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// TestLogger_Concurrent verifies that loggers can be created while other loggers are writing.
func TestLogger_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				log := Logger()
				log.Info().Int("iteration", j).Msg("logging")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, time.UTC, zerolog.TimestampFunc().Location())
}
