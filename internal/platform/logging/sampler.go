package logging

import "sync"

// DefaultSampleRate matches the cadence the matcher diagnostics were
// tuned at: log the first occurrence per event key, then every 50th.
const DefaultSampleRate = 50

// Sampler throttles noisy diagnostics by event key. It is an
// observability concern only and must never gate control flow.
type Sampler struct {
	mu     sync.Mutex
	every  int
	counts map[string]int
}

func NewSampler(every int) *Sampler {
	if every <= 0 {
		every = DefaultSampleRate
	}
	return &Sampler{
		every:  every,
		counts: make(map[string]int),
	}
}

// ShouldLog reports whether this occurrence of key should be logged:
// the first one, then every Nth.
func (s *Sampler) ShouldLog(key string) bool {
	return s.ShouldLogEvery(key, s.every)
}

// ShouldLogEvery is ShouldLog with a per-call rate for events that
// need a different cadence than the sampler default.
func (s *Sampler) ShouldLogEvery(key string, every int) bool {
	if every <= 1 {
		return true
	}

	s.mu.Lock()
	s.counts[key]++
	count := s.counts[key]
	s.mu.Unlock()

	return count%every == 1
}
