package ranforest

import "math/rand/v2"

// newStreamRand returns a generator for one independent stream of a seeded
// run. Tree i of a grow uses stream i, so every tree owns its generator.
func newStreamRand(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// randPerm returns k distinct indices of [0, n) in random order. A k outside
// [0, n] yields a full permutation.
func randPerm(rng *rand.Rand, n, k int) []int {
	if k < 0 || k > n {
		k = n
	}
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.IntN(n-i)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm[:k]
}
