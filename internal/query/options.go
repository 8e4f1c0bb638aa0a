package query

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Option configures an Augmenter or a Walker.
type Option func(*settings)

type settings struct {
	rnd       *rand.Rand
	stepDelay time.Duration
	stepHook  func(step int, word string)
	stepLock  sync.Locker
}

func newSettings(opts []Option) settings {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return s
}

// WithRand sets the random source used for every random choice.
func WithRand(r *rand.Rand) Option {
	return func(s *settings) {
		s.rnd = r
	}
}

// WithStepDelay makes a Walker pause for d after every step.
// Ignored by Augmenter.
func WithStepDelay(d time.Duration) Option {
	return func(s *settings) {
		s.stepDelay = d
	}
}

// WithStepHook makes a Walker call fn with the step number and word each
// time a word is added to the path, starting with step 0 for the start
// word. Ignored by Augmenter.
func WithStepHook(fn func(step int, word string)) Option {
	return func(s *settings) {
		s.stepHook = fn
	}
}

// WithStepLock makes a Walker hold l while it picks the start word and
// while it takes each step. The pause between steps runs with l released.
// Ignored by Augmenter.
func WithStepLock(l sync.Locker) Option {
	return func(s *settings) {
		s.stepLock = l
	}
}
