// Package audiox provides WAV decoding and silence-based clip segmentation
// for the transcription pipeline.
package audiox

import (
	"errors"
	"io"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Clip is a decoded mono PCM buffer.
type Clip struct {
	Samples  []int
	Rate     int
	BitDepth int
}

// Duration returns the clip length as wall-clock time.
func (c Clip) Duration() time.Duration {
	if c.Rate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.Rate)
}

// Slice returns the sub-clip covering [fromMs, toMs), clamped to the clip.
func (c Clip) Slice(fromMs, toMs int) Clip {
	from := fromMs * c.Rate / 1000
	to := toMs * c.Rate / 1000
	if from < 0 {
		from = 0
	}
	if to > len(c.Samples) {
		to = len(c.Samples)
	}
	if from > to {
		from = to
	}
	return Clip{Samples: c.Samples[from:to], Rate: c.Rate, BitDepth: c.BitDepth}
}

// DecodeWAV reads a WAV stream into a mono Clip, averaging channels when the
// source is multi-channel.
func DecodeWAV(r io.ReadSeeker) (Clip, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Clip{}, errors.New("invalid wav stream")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Clip{}, err
	}
	if buf == nil || len(buf.Data) == 0 {
		return Clip{}, errors.New("empty wav stream")
	}

	bd := int(dec.BitDepth)
	if bd == 0 {
		bd = 16
	}
	rate := 16000
	ch := 1
	if buf.Format != nil {
		if buf.Format.SampleRate > 0 {
			rate = buf.Format.SampleRate
		}
		if buf.Format.NumChannels > 0 {
			ch = buf.Format.NumChannels
		}
	}

	samples := buf.Data
	if ch > 1 {
		samples = downmix(samples, ch)
	}
	return Clip{Samples: samples, Rate: rate, BitDepth: bd}, nil
}

// EncodeWAV writes the clip as a PCM WAV stream.
func EncodeWAV(c Clip, w io.WriteSeeker) error {
	bd := c.BitDepth
	if bd == 0 {
		bd = 16
	}
	enc := wav.NewEncoder(w, c.Rate, bd, 1, 1)
	buf := &audio.IntBuffer{
		Data:           c.Samples,
		Format:         &audio.Format{NumChannels: 1, SampleRate: c.Rate},
		SourceBitDepth: bd,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}

func downmix(interleaved []int, channels int) []int {
	out := make([]int, 0, len(interleaved)/channels)
	for i := 0; i+channels <= len(interleaved); i += channels {
		sum := 0
		for j := 0; j < channels; j++ {
			sum += interleaved[i+j]
		}
		out = append(out, sum/channels)
	}
	return out
}
