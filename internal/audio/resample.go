package audio

import "fmt"

// Resample converts samples between rates by linear interpolation. Good
// enough for short notification clips; speech paths stay at 16 kHz end
// to end and never hit this.
func Resample(input []int16, inputRate, outputRate int) ([]int16, error) {
	if inputRate <= 0 || outputRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates: input=%d, output=%d", inputRate, outputRate)
	}

	if len(input) == 0 {
		return []int16{}, nil
	}

	if inputRate == outputRate {
		out := make([]int16, len(input))
		copy(out, input)
		return out, nil
	}

	ratio := float64(inputRate) / float64(outputRate)
	outputLength := int(float64(len(input)) / ratio)
	if outputLength <= 0 {
		return []int16{}, nil
	}

	output := make([]int16, outputLength)
	for i := 0; i < outputLength; i++ {
		srcPos := float64(i) * ratio
		srcIndex := int(srcPos)
		fraction := srcPos - float64(srcIndex)

		if srcIndex >= len(input)-1 {
			output[i] = input[len(input)-1]
			continue
		}

		s1 := float64(input[srcIndex])
		s2 := float64(input[srcIndex+1])
		output[i] = int16(s1 + fraction*(s2-s1))
	}

	return output, nil
}
