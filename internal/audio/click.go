package audio

import (
	"math"
	"sync/atomic"
	"time"
)

// Click renders a short decaying sine blip for every Trigger. Trigger is
// safe from any goroutine; Process runs on the audio thread.
type Click struct {
	sampleRate int
	freqHz     float64
	gain       float32
	length     int

	pending atomic.Int32
	pos     int // frame within the current blip, -1 when idle
}

func NewClick(sampleRate int, freqHz float64, gain float32, dur time.Duration) *Click {
	length := int(dur.Seconds() * float64(sampleRate))
	if length < 1 {
		length = 1
	}
	if gain < 0 {
		gain = 0
	}
	return &Click{sampleRate: sampleRate, freqHz: freqHz, gain: gain, length: length, pos: -1}
}

// Trigger queues one blip. Blips queued while one is sounding play back to
// back.
func (c *Click) Trigger() { c.pending.Add(1) }

func (c *Click) Process(dst []float32) {
	step := 2 * math.Pi * c.freqHz / float64(c.sampleRate)
	for i := 0; i+1 < len(dst); i += 2 {
		if c.pos < 0 && c.pending.Load() > 0 {
			c.pending.Add(-1)
			c.pos = 0
		}
		var s float32
		if c.pos >= 0 {
			env := 1 - float64(c.pos)/float64(c.length)
			s = float32(math.Sin(step*float64(c.pos))*env*env) * c.gain
			c.pos++
			if c.pos >= c.length {
				c.pos = -1
			}
		}
		dst[i], dst[i+1] = s, s
	}
}
