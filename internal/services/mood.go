package services

import (
	"math/rand"
	"sync"
	"time"

	"zenpulse/internal/database"
)

// RandomSource yields floats in [0,1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// primaryWeight is the chance of the milder of the two levels for a
// positive or negative label.
const primaryWeight = 0.7

// MoodMapper turns a sentiment label into a mood level. Positive and negative
// labels pick one of two levels at random; everything else is neutral.
type MoodMapper struct {
	mu  sync.Mutex
	rng RandomSource
}

func NewMoodMapper(rng RandomSource) *MoodMapper {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &MoodMapper{rng: rng}
}

func (m *MoodMapper) Map(label database.Sentiment) int {
	switch label {
	case database.Positive:
		if m.draw() < primaryWeight {
			return 4
		}
		return 5
	case database.Negative:
		if m.draw() < primaryWeight {
			return 1
		}
		return 2
	default:
		return database.DefaultMood
	}
}

func (m *MoodMapper) draw() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64()
}

// Intn draws an index in [0,n) from the same source as Map.
func (m *MoodMapper) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	i := int(m.draw() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}
