package linalg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/rand"
)

func TestTruncatedGaussianSampleAboveLower(t *testing.T) {
	tg := TruncatedGaussian1D{Mean: -5, Var: 1, Lower: 0}
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 100; i++ {
		s := tg.Sample(rng)
		assert.GreaterOrEqual(t, s, tg.Lower)
	}
}

func TestTruncatedGaussianMomentsAboveLower(t *testing.T) {
	tg := TruncatedGaussian1D{Mean: -5, Var: 4, Lower: 0}
	mean, variance := tg.PredictMoments()
	assert.Greater(t, mean, tg.Lower)
	assert.GreaterOrEqual(t, variance, 0.0)
}

func TestTruncatedGaussianZeroVariance(t *testing.T) {
	tg := TruncatedGaussian1D{Mean: -5, Var: 0, Lower: 2}
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, 2.0, tg.Sample(rng))
}
