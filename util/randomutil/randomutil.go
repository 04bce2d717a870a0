package randomutil

import (
	"math/rand/v2"
)

type RandomGenerator interface {
	// GenerateIntN returns a uniformly distributed integer in [0, n).
	GenerateIntN(n int) int
}

type RandomNumberGenerator struct{}

func (RandomNumberGenerator) GenerateIntN(n int) int {
	return rand.IntN(n)
}
