// Package population implements the Population Distributor: it assigns a
// fixed population of cells across a fixed number of clones under one of
// five named abundance distributions.
package population

import (
	"math"
	"math/rand"
	"sort"

	"github.com/grailbio/base/log"
)

// Distribution names one of the five abundance shapes.
type Distribution string

const (
	Stripe      Distribution = "stripe"
	Equal       Distribution = "equal"
	Unimodal    Distribution = "unimodal"
	ChiSquare   Distribution = "chisquare"
	LogisticCDF Distribution = "logisticcdf"
)

// ErrDistribution reports invalid parameters to the Population Distributor.
type ErrDistribution struct {
	Reason string
}

func (e *ErrDistribution) Error() string { return "population: " + e.Reason }

// Params carries the per-distribution parameters; only the fields used by
// the selected Distribution need be set, and those must be strictly
// positive.
type Params struct {
	GCutoff    float64 // unimodal
	ChiSquareK float64 // chisquare
	CSCutoff   float64 // chisquare
	LScale     float64 // logisticcdf
	LCutoff    float64 // logisticcdf
}

// Distribute assigns populationSize cells across size clones, returning
// counts such that sum(counts) == populationSize.
func Distribute(rng *rand.Rand, dist Distribution, size, populationSize int, p Params) ([]int, error) {
	if populationSize <= 0 {
		return nil, &ErrDistribution{Reason: "population_size must be a positive integer"}
	}
	switch dist {
	case Stripe:
		return stripe(size, populationSize), nil
	case Equal:
		return equal(rng, size, populationSize), nil
	case Unimodal:
		if p.GCutoff <= 0 {
			return nil, &ErrDistribution{Reason: "g_cutoff must be positive"}
		}
		return unimodal(rng, size, populationSize, p.GCutoff), nil
	case ChiSquare:
		if p.ChiSquareK <= 0 || p.CSCutoff <= 0 {
			return nil, &ErrDistribution{Reason: "cs_k and cs_cutoff must be positive"}
		}
		return chiSquare(rng, size, populationSize, p.ChiSquareK, p.CSCutoff), nil
	case LogisticCDF:
		if p.LScale <= 0 || p.LCutoff <= 0 {
			return nil, &ErrDistribution{Reason: "l_scale and l_cutoff must be positive"}
		}
		return logisticCDF(rng, size, populationSize, p.LScale, p.LCutoff), nil
	default:
		return nil, &ErrDistribution{Reason: "unknown distribution " + string(dist)}
	}
}

// stripe deals cells round-robin: counts[i % size] += 1 for i in
// [0,populationSize).
func stripe(size, populationSize int) []int {
	counts := make([]int, size)
	for i := 0; i < populationSize; i++ {
		counts[i%size]++
	}
	return counts
}

func equal(rng *rand.Rand, size, populationSize int) []int {
	counts := make([]int, size)
	for i := 0; i < populationSize; i++ {
		counts[int(math.Floor(rng.Float64()*float64(size)))]++
	}
	return counts
}

// unimodal rejects standard normals with |x| > gCutoff and buckets the
// rest across [0,size).
func unimodal(rng *rand.Rand, size, populationSize int, gCutoff float64) []int {
	counts := make([]int, size)
	generated := 0
	for generated < populationSize {
		x := rng.NormFloat64()
		if math.Abs(x) > gCutoff {
			continue
		}
		bucketSize := gCutoff * 2 / float64(size)
		bucket := clampBucket(int((x+gCutoff)/bucketSize), size)
		counts[bucket]++
		generated++
	}
	return counts
}

// chiSquareSample draws one χ²(k) variate as the sum of k squared standard
// normals (math/rand has no native chi-square source).
func chiSquareSample(rng *rand.Rand, k float64) float64 {
	n := int(k)
	var sum float64
	for i := 0; i < n; i++ {
		z := rng.NormFloat64()
		sum += z * z
	}
	return sum
}

func chiSquare(rng *rand.Rand, size, populationSize int, k, cutoff float64) []int {
	counts := make([]int, size)
	generated := 0
	for generated < populationSize {
		x := chiSquareSample(rng, k)
		if x >= cutoff {
			continue
		}
		bucket := clampBucket(int((x/cutoff)*float64(size)), size)
		counts[bucket]++
		generated++
	}
	return counts
}

func clampBucket(b, size int) int {
	if b < 0 {
		return 0
	}
	if b >= size {
		return size - 1
	}
	return b
}

// logisticSample draws one logistic(0,scale) variate via inverse CDF
// sampling: scale * ln(u/(1-u)).
func logisticSample(rng *rand.Rand, scale float64) float64 {
	u := rng.Float64()
	for u == 0 || u == 1 {
		u = rng.Float64()
	}
	return scale * math.Log(u/(1-u))
}

// logisticCDF draws size truncated logistic values, sorts, shifts
// positive, normalizes, and rounds into counts, retrying up to 500 times
// on a rounding mismatch before correcting by +/-1 adjustments on the
// tail/head.
func logisticCDF(rng *rand.Rand, size, populationSize int, scale, cutoff float64) []int {
	const maxAttempts = 500
	counts := make([]int, size)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		values := make([]float64, 0, size)
		for len(values) < size {
			v := logisticSample(rng, scale)
			if v < cutoff && v > -cutoff {
				values = append(values, v)
			}
		}
		sort.Float64s(values)

		minValue := math.Abs(values[0])
		var sum float64
		for i := range values {
			values[i] += minValue + 1
			sum += values[i]
		}

		for i := range counts {
			counts[i] = int(math.Round((values[i] / sum) * float64(populationSize)))
		}

		if sumInts(counts) == populationSize {
			return counts
		}
		if attempt == maxAttempts {
			log.Printf("population: logisticcdf encountered a rounding error assigning %d of %d requested cells after %d attempts; correcting by +/-1",
				absInt(sumInts(counts)-populationSize), populationSize, maxAttempts)
		}
	}

	missing := populationSize - sumInts(counts)
	if missing > 0 {
		for i := 0; i < missing; i++ {
			counts[(len(counts)-i-1+len(counts))%len(counts)]++
		}
	} else if missing < 0 {
		for i := 0; i < -missing; i++ {
			counts[i%len(counts)]--
		}
	}
	return counts
}

func sumInts(xs []int) int {
	var s int
	for _, x := range xs {
		s += x
	}
	return s
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

