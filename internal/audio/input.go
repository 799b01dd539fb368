package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Fixed capture format: mono 16-bit PCM at 16 kHz
const (
	SampleRate = 16000
	Channels   = 1

	// InputFrameLength is the number of samples per capture frame (~32 ms)
	InputFrameLength = 512
)

// Input wraps a mono 16 kHz int16 recording stream. Read blocks for at
// most one frame duration.
type Input struct {
	stream   *portaudio.Stream
	buffer   []int16
	frameLen int
}

// NewInput opens the default recording device with the given frame length
func NewInput(frameLen int) (*Input, error) {
	if frameLen <= 0 {
		frameLen = InputFrameLength
	}

	if err := acquireDevice(); err != nil {
		return nil, err
	}

	input := &Input{
		buffer:   make([]int16, frameLen),
		frameLen: frameLen,
	}

	stream, err := portaudio.OpenDefaultStream(Channels, 0, float64(SampleRate), frameLen, input.buffer)
	if err != nil {
		releaseDevice()
		return nil, fmt.Errorf("failed to open input stream: %w", err)
	}

	input.stream = stream
	if err := stream.Start(); err != nil {
		stream.Close()
		releaseDevice()
		return nil, fmt.Errorf("failed to start input stream: %w", err)
	}

	return input, nil
}

// FrameLength returns the number of samples returned by each Read
func (in *Input) FrameLength() int {
	return in.frameLen
}

// ReadFrame reads one fixed-size frame from the device. The returned
// slice is owned by the caller.
func (in *Input) ReadFrame() ([]int16, error) {
	if err := in.stream.Read(); err != nil {
		return nil, err
	}

	frame := make([]int16, len(in.buffer))
	copy(frame, in.buffer)
	return frame, nil
}

// Close releases the recording device
func (in *Input) Close() error {
	if in.stream != nil {
		in.stream.Close()
		in.stream = nil
	}
	return releaseDevice()
}
