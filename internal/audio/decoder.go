package audio

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/tosone/minimp3"
	wav "github.com/youpy/go-wav"
)

// Clip is a short pre-decoded notification sound (wake beep, alarm
// ringtone), normalized to mono 16-bit PCM.
type Clip struct {
	Samples    []int16
	SampleRate int
}

// Duration returns the clip length in seconds
func (c *Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// LoadClip reads a WAV or MP3 asset file and decodes it to mono PCM at
// the given sample rate. Format detection is by magic bytes, not file
// extension.
func LoadClip(path string, sampleRate int) (*Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read clip file: %w", err)
	}

	var (
		samples    []int16
		sourceRate int
	)

	switch detectFormat(data) {
	case "wav":
		samples, sourceRate, err = decodeWAV(data)
	case "mp3":
		samples, sourceRate, err = decodeMP3(data)
	default:
		return nil, fmt.Errorf("unrecognized audio format in %s", path)
	}
	if err != nil {
		return nil, err
	}

	if sourceRate != sampleRate {
		samples, err = Resample(samples, sourceRate, sampleRate)
		if err != nil {
			return nil, fmt.Errorf("failed to resample clip: %w", err)
		}
	}

	return &Clip{Samples: samples, SampleRate: sampleRate}, nil
}

// detectFormat inspects magic bytes for WAV and MP3 signatures
func detectFormat(data []byte) string {
	if len(data) >= 4 && bytes.Equal(data[:4], []byte("RIFF")) {
		return "wav"
	}
	if len(data) >= 3 && bytes.Equal(data[:3], []byte("ID3")) {
		return "mp3"
	}
	if len(data) >= 2 && data[0] == 0xFF && (data[1]&0xE0) == 0xE0 {
		return "mp3"
	}
	return "unknown"
}

// decodeWAV decodes WAV data to mono int16, mixing stereo down
func decodeWAV(data []byte) ([]int16, int, error) {
	reader := wav.NewReader(bytes.NewReader(data))

	format, err := reader.Format()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read WAV format: %w", err)
	}

	var samples []int16
	for {
		chunk, err := reader.ReadSamples()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read WAV samples: %w", err)
		}

		for _, sample := range chunk {
			v := normalizeSample(reader.IntValue(sample, 0), format.BitsPerSample)
			if format.NumChannels == 2 {
				v2 := normalizeSample(reader.IntValue(sample, 1), format.BitsPerSample)
				v = (v + v2) / 2
			}
			samples = append(samples, clampToInt16(v))
		}
	}

	return samples, int(format.SampleRate), nil
}

// decodeMP3 decodes MP3 data to mono int16, mixing stereo down
func decodeMP3(data []byte) ([]int16, int, error) {
	decoder, pcm, err := minimp3.DecodeFull(data)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode MP3: %w", err)
	}
	defer decoder.Close()

	raw := BytesToSamples(pcm)

	if decoder.Channels <= 1 {
		return raw, decoder.SampleRate, nil
	}

	mono := make([]int16, 0, len(raw)/decoder.Channels)
	for i := 0; i+1 < len(raw); i += decoder.Channels {
		mixed := (float64(raw[i]) + float64(raw[i+1])) / 2
		mono = append(mono, clampToInt16(mixed))
	}
	return mono, decoder.SampleRate, nil
}

// normalizeSample scales a raw sample of any supported bit depth into
// the int16 range
func normalizeSample(value int, bitsPerSample uint16) float64 {
	switch bitsPerSample {
	case 8:
		return float64(value) * 256
	case 16:
		return float64(value)
	case 24:
		return float64(value) / 256
	case 32:
		return float64(value) / 65536
	default:
		return float64(value)
	}
}

func clampToInt16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32767 {
		return -32767
	}
	return int16(v)
}
