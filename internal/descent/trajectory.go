package descent

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Trajectory is the full, read-only output of one gradient descent run.
// Steps are 1-based to match the playback slider.
type Trajectory struct {
	Arity     Arity
	Initial   Params
	Snapshots []Snapshot
}

func (t *Trajectory) Len() int { return len(t.Snapshots) }

// At returns the k-th snapshot, 1 <= k <= Len().
func (t *Trajectory) At(k int) Snapshot { return t.Snapshots[k-1] }

// Prefix returns snapshots 1..k. The slice shares the trajectory's backing array.
func (t *Trajectory) Prefix(k int) []Snapshot { return t.Snapshots[:k] }

func (t *Trajectory) Final() Snapshot { return t.Snapshots[len(t.Snapshots)-1] }

func (t *Trajectory) Slopes() []float64 {
	out := make([]float64, len(t.Snapshots))
	for i, s := range t.Snapshots {
		out[i] = s.Params.Slope
	}
	return out
}

func (t *Trajectory) Intercepts() []float64 {
	out := make([]float64, len(t.Snapshots))
	for i, s := range t.Snapshots {
		out[i] = s.Params.Intercept
	}
	return out
}

func (t *Trajectory) Losses() []float64 {
	out := make([]float64, len(t.Snapshots))
	for i, s := range t.Snapshots {
		out[i] = s.Loss
	}
	return out
}

// Fingerprint hashes the IEEE-754 bits of every recorded value, so two
// trajectories share a fingerprint only if they are bit-identical. All
// NaNs hash alike, since a text round trip does not keep NaN payloads.
func (t *Trajectory) Fingerprint() uint64 {
	h := xxhash.New()
	buf := make([]byte, 0, 24)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(t.Arity))
	buf = binary.LittleEndian.AppendUint64(buf, valueBits(t.Initial.Slope))
	buf = binary.LittleEndian.AppendUint64(buf, valueBits(t.Initial.Intercept))
	h.Write(buf)
	for _, s := range t.Snapshots {
		buf = buf[:0]
		buf = binary.LittleEndian.AppendUint64(buf, valueBits(s.Params.Slope))
		buf = binary.LittleEndian.AppendUint64(buf, valueBits(s.Params.Intercept))
		buf = binary.LittleEndian.AppendUint64(buf, valueBits(s.Loss))
		h.Write(buf)
	}
	return h.Sum64()
}

var canonicalNaN = math.Float64bits(math.NaN())

func valueBits(v float64) uint64 {
	if math.IsNaN(v) {
		return canonicalNaN
	}
	return math.Float64bits(v)
}
