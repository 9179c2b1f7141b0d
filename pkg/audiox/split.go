package audiox

import (
	"math"
	"time"
)

// SplitOptions controls silence-based segmentation.
type SplitOptions struct {
	// SilenceThresholdDB is the dBFS level below which a frame counts as
	// silence.
	SilenceThresholdDB float64
	// MinSilence is the shortest silent stretch that produces a cut.
	MinSilence time.Duration
	// KeepSilence pads each cut boundary so speech does not start abruptly.
	KeepSilence time.Duration
	// ChunkLen is the fixed window used when silence detection is rejected.
	ChunkLen time.Duration
	// MaxUnsplit is the longest clip returned whole without segmentation.
	MaxUnsplit time.Duration
	// MinChunk drops fixed-window slices shorter than this.
	MinChunk time.Duration
}

// DefaultSplitOptions returns the tuned defaults for voice notes.
func DefaultSplitOptions() SplitOptions {
	return SplitOptions{
		SilenceThresholdDB: -40,
		MinSilence:         time.Second,
		KeepSilence:        500 * time.Millisecond,
		ChunkLen:           30 * time.Second,
		MaxUnsplit:         45 * time.Second,
		MinChunk:           time.Second,
	}
}

// frameLen is the analysis window for silence detection.
const frameLen = 10 * time.Millisecond

// SplitOnSilence cuts a clip into recognizable segments. Short clips come
// back whole. Silence-based segmentation is attempted first; a result with
// fewer than 2 or more than 20 segments is discarded as pathological and the
// clip is sliced into fixed windows instead, dropping a trailing slice
// shorter than MinChunk.
func SplitOnSilence(c Clip, opts SplitOptions) []Clip {
	if len(c.Samples) == 0 || c.Rate <= 0 {
		return []Clip{c}
	}
	if c.Duration() <= opts.MaxUnsplit {
		return []Clip{c}
	}

	chunks := splitBySilence(c, opts)
	if len(chunks) < 2 || len(chunks) > 20 {
		chunks = splitFixed(c, opts)
	}
	if len(chunks) == 0 {
		return []Clip{c}
	}
	return chunks
}

func splitBySilence(c Clip, opts SplitOptions) []Clip {
	durMs := int(c.Duration() / time.Millisecond)
	frameMs := int(frameLen / time.Millisecond)
	keepMs := int(opts.KeepSilence / time.Millisecond)
	minSilentFrames := int(opts.MinSilence / frameLen)
	if minSilentFrames < 1 {
		minSilentFrames = 1
	}

	maxAmp := float64(int(1) << (uint(c.bitDepth()) - 1))
	frames := durMs / frameMs
	silent := make([]bool, frames)
	for i := 0; i < frames; i++ {
		f := c.Slice(i*frameMs, (i+1)*frameMs)
		silent[i] = frameDBFS(f.Samples, maxAmp) < opts.SilenceThresholdDB
	}

	// Silent runs of at least MinSilence become cut regions; the speech
	// ranges are the gaps between them.
	type span struct{ from, to int } // frame indices, to exclusive
	var cuts []span
	run := 0
	for i := 0; i <= frames; i++ {
		if i < frames && silent[i] {
			run++
			continue
		}
		if run >= minSilentFrames {
			cuts = append(cuts, span{from: i - run, to: i})
		}
		run = 0
	}

	var speech []span
	prev := 0
	for _, cut := range cuts {
		if cut.from > prev {
			speech = append(speech, span{from: prev, to: cut.from})
		}
		prev = cut.to
	}
	if prev < frames {
		speech = append(speech, span{from: prev, to: frames})
	}

	var chunks []Clip
	for _, sp := range speech {
		fromMs := sp.from*frameMs - keepMs
		toMs := sp.to*frameMs + keepMs
		if fromMs < 0 {
			fromMs = 0
		}
		if toMs > durMs {
			toMs = durMs
		}
		seg := c.Slice(fromMs, toMs)
		if len(seg.Samples) > 0 {
			chunks = append(chunks, seg)
		}
	}
	return chunks
}

func splitFixed(c Clip, opts SplitOptions) []Clip {
	durMs := int(c.Duration() / time.Millisecond)
	chunkMs := int(opts.ChunkLen / time.Millisecond)
	minMs := int(opts.MinChunk / time.Millisecond)
	if chunkMs <= 0 {
		return nil
	}
	var chunks []Clip
	for start := 0; start < durMs; start += chunkMs {
		end := start + chunkMs
		if end > durMs {
			end = durMs
		}
		if end-start > minMs {
			chunks = append(chunks, c.Slice(start, end))
		}
	}
	return chunks
}

func (c Clip) bitDepth() int {
	if c.BitDepth > 0 {
		return c.BitDepth
	}
	return 16
}

// frameDBFS computes the RMS level of a frame relative to full scale.
func frameDBFS(samples []int, maxAmp float64) float64 {
	if len(samples) == 0 || maxAmp <= 0 {
		return math.Inf(-1)
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms/maxAmp)
}
