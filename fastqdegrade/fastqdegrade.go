// Package fastqdegrade is a detached quality-degradation utility: given a
// read and a degradation method, return a four-line FASTQ block with
// Phred+33 quality scores. It has no dependency on the simulator's
// repertoire or recombination packages.
package fastqdegrade

import (
	"math"
	"math/rand"
	"strings"

	"github.com/pkg/errors"
)

// Method selects the per-base error-rate model.
type Method string

const (
	// Logistic derives a position-dependent error rate from a logistic
	// curve parameterized by BaseError, L, K, and Midpoint.
	Logistic Method = "logistic"
	// Phred derives a per-base error rate directly from a reference
	// Phred+33 quality string, reusing its last character past the end of
	// the string.
	Phred Method = "phred"
)

// phred33Reference is the 42-symbol Illumina 1.8+ Phred+33 alphabet,
// index N corresponding to Phred score N (capped at 41).
const phred33Reference = "!\"#$%&'()*+,-./0123456789:;<=>?@ABCDEFGHIJ"

// Params configures one Degrade call. Variability adds +/- a relative
// fraction of jitter to each computed error rate; zero disables it.
type Params struct {
	Method Method

	// Logistic parameters: errorRate(i) = (L-BaseError)/(1+exp(-K*(i-Midpoint))) + BaseError.
	BaseError float64
	L         float64
	K         float64
	Midpoint  float64

	// Phred parameters: a reference Phred+33 quality string; positions
	// past the end of Phred reuse its last character.
	PhredQuality string

	Variability float64
}

// Degrade returns a four-line FASTQ block (ident, degraded read, "+",
// quality string) for read under ident, simulating per-base sequencing
// error at the rate Params describes.
func Degrade(rng *rand.Rand, ident, read string, p Params) (string, error) {
	switch p.Method {
	case Logistic:
		return degradeLogistic(rng, ident, read, p), nil
	case Phred:
		if p.PhredQuality == "" {
			return "", errors.New("fastqdegrade: phred method requires a non-empty PhredQuality reference string")
		}
		return degradePhred(rng, ident, read, p), nil
	default:
		return "", errors.Errorf("fastqdegrade: method must be logistic or phred (given %q)", p.Method)
	}
}

func degradeLogistic(rng *rand.Rand, ident, read string, p Params) string {
	var seq, qual strings.Builder
	for i := 0; i < len(read); i++ {
		errorRate := (p.L-p.BaseError)/(1+math.Exp(-p.K*(float64(i)-p.Midpoint))) + p.BaseError
		errorRate = jitter(rng, errorRate, p.Variability)
		phredScore := clampPhred(int(-10 * math.Log(errorRate)))

		if rng.Float64() < errorRate {
			seq.WriteByte(randomNucleotide(rng))
		} else {
			seq.WriteByte(read[i])
		}
		qual.WriteByte(phred33Reference[phredScore])
	}
	return ident + "\n" + seq.String() + "\n+\n" + qual.String() + "\n"
}

func degradePhred(rng *rand.Rand, ident, read string, p Params) string {
	var seq, qual strings.Builder
	for i := 0; i < len(read); i++ {
		var symbol byte
		if i >= len(p.PhredQuality) {
			symbol = p.PhredQuality[len(p.PhredQuality)-1]
		} else {
			symbol = p.PhredQuality[i]
		}
		errorRate := math.Pow(10, float64(strings.IndexByte(phred33Reference, symbol))/-10)
		if errorRate > 1 {
			errorRate = 1
		} else if errorRate < 0 {
			errorRate = 0
		}
		errorRate = jitter(rng, errorRate, p.Variability)

		if rng.Float64() < errorRate {
			seq.WriteByte(randomNucleotide(rng))
		} else {
			seq.WriteByte(read[i])
		}
		phredScore := clampPhred(int(math.Round(-10 * math.Log10(errorRate))))
		qual.WriteByte(phred33Reference[phredScore])
	}
	return ident + "\n" + seq.String() + "\n+\n" + qual.String() + "\n"
}

func jitter(rng *rand.Rand, errorRate, variability float64) float64 {
	if variability == 0 {
		return errorRate
	}
	return errorRate + rng.Float64()*2*errorRate*variability - errorRate*variability
}

func clampPhred(score int) int {
	if score > 41 {
		return 41
	}
	if score < 0 {
		return 0
	}
	return score
}

func randomNucleotide(rng *rand.Rand) byte {
	const alphabet = "CATG"
	return alphabet[rng.Intn(len(alphabet))]
}

// ParseQualities extracts every quality line from a well-formed FASTQ file
// (every 4th line), skipping lines that are not valid Phred+33 (Illumina
// 1.8+) strings.
func ParseQualities(contents string) []string {
	var qualities []string
	lines := strings.Split(contents, "\n")
	for i, line := range lines {
		lineNum := i + 1
		if lineNum%4 != 0 {
			continue
		}
		if line == "" {
			continue
		}
		if !isValidPhred33(line) {
			continue
		}
		qualities = append(qualities, line)
	}
	return qualities
}

func isValidPhred33(s string) bool {
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(phred33Reference, s[i]) < 0 {
			return false
		}
	}
	return len(s) > 0
}
