package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// OutputFrameLength is the number of samples per device write block
const OutputFrameLength = 1024

// Output wraps a mono int16 playback stream. Write blocks until the
// device has accepted the whole chunk, so the caller's chunk boundaries
// bound its interruption latency.
type Output struct {
	stream *portaudio.Stream
	buffer []int16
	rate   int
	mu     sync.Mutex
}

// NewOutput opens the default playback device at the given sample rate
func NewOutput(sampleRate int) (*Output, error) {
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}

	if err := acquireDevice(); err != nil {
		return nil, err
	}

	out := &Output{
		buffer: make([]int16, OutputFrameLength),
		rate:   sampleRate,
	}

	stream, err := portaudio.OpenDefaultStream(0, Channels, float64(sampleRate), OutputFrameLength, out.buffer)
	if err != nil {
		releaseDevice()
		return nil, fmt.Errorf("failed to open output stream: %w", err)
	}

	out.stream = stream
	if err := stream.Start(); err != nil {
		stream.Close()
		releaseDevice()
		return nil, fmt.Errorf("failed to start output stream: %w", err)
	}

	return out, nil
}

// SampleRate returns the rate the device was opened with
func (o *Output) SampleRate() int {
	return o.rate
}

// Write renders the samples block by block, zero-padding the final
// partial block. Concurrent writers are serialized.
func (o *Output) Write(samples []int16) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for offset := 0; offset < len(samples); offset += OutputFrameLength {
		end := offset + OutputFrameLength
		if end > len(samples) {
			end = len(samples)
		}

		n := copy(o.buffer, samples[offset:end])
		for i := n; i < OutputFrameLength; i++ {
			o.buffer[i] = 0
		}

		if err := o.stream.Write(); err != nil {
			return fmt.Errorf("failed to write to output stream: %w", err)
		}
	}

	return nil
}

// Close releases the playback device
func (o *Output) Close() error {
	if o.stream != nil {
		o.stream.Close()
		o.stream = nil
	}
	return releaseDevice()
}
