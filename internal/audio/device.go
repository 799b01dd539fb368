package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudio allows one Initialize/Terminate pair per process, while the
// wake input, capture input, playback output and clip players open and
// close streams independently. acquireDevice/releaseDevice refcount the
// library underneath them.
var device struct {
	mu   sync.Mutex
	refs int
}

func acquireDevice() error {
	device.mu.Lock()
	defer device.mu.Unlock()

	if device.refs == 0 {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize PortAudio: %w", err)
		}
	}
	device.refs++
	return nil
}

func releaseDevice() error {
	device.mu.Lock()
	defer device.mu.Unlock()

	if device.refs == 0 {
		return nil
	}
	device.refs--
	if device.refs == 0 {
		if err := portaudio.Terminate(); err != nil {
			return fmt.Errorf("failed to terminate PortAudio: %w", err)
		}
	}
	return nil
}
