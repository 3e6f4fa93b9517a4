package media

import (
	"bytes"
	"fmt"

	"github.com/go-audio/wav"
)

// WavDuration returns the play length of WAV data in seconds.
func WavDuration(data []byte) (float64, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	dur, err := d.Duration()
	if err != nil {
		return 0, fmt.Errorf("read wav: %w", err)
	}
	return dur.Seconds(), nil
}
