package features

import (
	"fmt"
	"math"
	"sort"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
)

// DefaultInterpolationPoints is the CUMUL resampling resolution the website
// models are trained with.
const DefaultInterpolationPoints = 100

// Packet is one signed packet-size equivalent. Positive sizes are incoming,
// negative sizes are outgoing; a zero size carries no direction and is skipped.
type Packet struct {
	Timestamp float64
	Size      float64
}

type accumulators struct {
	total []float64
	cum   []float64
	pos   []float64
	neg   []float64

	inCount  int
	outCount int
	inSize   float64
	outSize  float64
}

func accumulate(seq []Packet) accumulators {
	a := accumulators{
		total: make([]float64, 0, len(seq)),
		cum:   make([]float64, 0, len(seq)),
		pos:   make([]float64, 0, len(seq)),
		neg:   make([]float64, 0, len(seq)),
	}

	for _, p := range seq {
		size := p.Size
		var in, out float64
		switch {
		case size > 0:
			a.inSize += size
			a.inCount++
			in = size
		case size < 0:
			a.outSize += -size
			a.outCount++
			out = -size
		default:
			continue
		}

		if len(a.cum) == 0 {
			a.cum = append(a.cum, size)
			a.total = append(a.total, math.Abs(size))
			a.pos = append(a.pos, in)
			a.neg = append(a.neg, out)
			continue
		}
		last := len(a.cum) - 1
		a.cum = append(a.cum, a.cum[last]+size)
		a.total = append(a.total, a.total[last]+math.Abs(size))
		a.pos = append(a.pos, a.pos[last]+in)
		a.neg = append(a.neg, a.neg[last]+out)
	}
	return a
}

// Cumul computes the CUMUL feature vector of seq:
//
//	[inCount, outCount, outSize, inSize, c_1 ... c_points]
//
// where c_i samples the cumulative signed curve against the cumulative
// absolute curve at points+1 equally spaced positions, the first of which is
// dropped. The result always has 4+points values.
func Cumul(seq []Packet, points int) ([]float64, error) {
	if points <= 0 {
		return nil, fmt.Errorf("cumul: interpolation points must be positive, got %d", points)
	}

	a := accumulate(seq)
	if len(a.total) == 0 {
		return nil, fmt.Errorf("cumul: %w", domain.ErrEmptyTrace)
	}

	out := make([]float64, 0, 4+points)
	out = append(out,
		float64(a.inCount),
		float64(a.outCount),
		a.outSize,
		a.inSize,
	)

	xs := linspace(a.total[0], a.total[len(a.total)-1], points+1)
	for _, x := range xs[1:] {
		out = append(out, interp(x, a.total, a.cum))
	}
	return out, nil
}

// linspace mirrors numpy.linspace with endpoint=true.
func linspace(start, stop float64, num int) []float64 {
	out := make([]float64, num)
	if num == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(num-1)
	for i := range out {
		out[i] = float64(i)*step + start
	}
	out[num-1] = stop
	return out
}

// interp is one-dimensional piecewise-linear interpolation with numpy.interp
// semantics: xp is non-decreasing, values outside [xp[0], xp[n-1]] clamp to
// the end samples.
func interp(x float64, xp, fp []float64) float64 {
	n := len(xp)
	if x < xp[0] {
		return fp[0]
	}
	if x >= xp[n-1] {
		return fp[n-1]
	}

	// largest j with xp[j] <= x; x < xp[n-1] keeps j+1 in range
	j := sort.Search(n, func(i int) bool { return xp[i] > x }) - 1
	slope := (fp[j+1] - fp[j]) / (xp[j+1] - xp[j])
	return slope*(x-xp[j]) + fp[j]
}
