package dataset

import "math/rand"

// Split shuffles samples deterministically for the given seed and divides
// them into train and test slices, with testFraction of the samples (rounded
// down, at least one when the fraction is positive and samples allow) going
// to test.
func Split(samples []Sample, testFraction float64, seed int64) (train, test []Sample) {
	if testFraction <= 0 || len(samples) < 2 {
		return samples, nil
	}
	if testFraction >= 1 {
		return nil, samples
	}

	shuffled := make([]Sample, len(samples))
	copy(shuffled, samples)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := int(float64(len(shuffled)) * testFraction)
	if n == 0 {
		n = 1
	}
	if n >= len(shuffled) {
		n = len(shuffled) - 1
	}
	return shuffled[n:], shuffled[:n]
}
