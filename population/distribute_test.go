package population_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vincentlaboratories/stig/population"
)

func TestStripeDistribution(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	counts, err := population.Distribute(rng, population.Stripe, 4, 10, population.Params{})
	require.NoError(t, err)
	require.Equal(t, []int{3, 3, 2, 2}, counts)
}

func TestEqualDistributionSums(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	counts, err := population.Distribute(rng, population.Equal, 5, 37, population.Params{})
	require.NoError(t, err)
	require.Len(t, counts, 5)
	require.Equal(t, 37, sum(counts))
}

func TestUnimodalDistributionSums(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	counts, err := population.Distribute(rng, population.Unimodal, 8, 200, population.Params{GCutoff: 3})
	require.NoError(t, err)
	require.Equal(t, 200, sum(counts))
}

func TestChiSquareDistributionSums(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	counts, err := population.Distribute(rng, population.ChiSquare, 8, 200, population.Params{ChiSquareK: 2, CSCutoff: 8})
	require.NoError(t, err)
	require.Equal(t, 200, sum(counts))
}

func TestLogisticCDFDistributionSums(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	counts, err := population.Distribute(rng, population.LogisticCDF, 10, 1000, population.Params{LScale: 1, LCutoff: 3})
	require.NoError(t, err)
	require.Equal(t, 1000, sum(counts))
}

func TestDistributeRejectsBadParams(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	_, err := population.Distribute(rng, population.Unimodal, 4, 10, population.Params{GCutoff: 0})
	require.Error(t, err)

	_, err = population.Distribute(rng, population.Stripe, 4, 0, population.Params{})
	require.Error(t, err)
}

func sum(xs []int) int {
	var s int
	for _, x := range xs {
		s += x
	}
	return s
}
