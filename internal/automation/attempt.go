package automation

import "context"

// Strategy is one way of achieving a step, tried up to Attempts times.
type Strategy struct {
	Name     string
	Attempts int
	// Run returns true once the step's post-condition holds. attempt counts
	// from zero within this strategy.
	Run func(ctx context.Context, attempt int) (bool, error)
}

// Attempt describes how an attempt sequence ended.
type Attempt struct {
	Succeeded bool
	// Via names the strategy that succeeded; empty when all were exhausted.
	Via   string
	Tries map[string]int
}

// ExhaustedAll reports whether no strategy succeeded.
func (a Attempt) ExhaustedAll() bool { return !a.Succeeded }

// Sequence runs strategies in order until one succeeds. A Run error aborts the
// sequence immediately.
func Sequence(ctx context.Context, strategies ...Strategy) (Attempt, error) {
	result := Attempt{Tries: make(map[string]int, len(strategies))}
	for _, s := range strategies {
		attempts := s.Attempts
		if attempts <= 0 {
			attempts = 1
		}
		for i := 0; i < attempts; i++ {
			result.Tries[s.Name]++
			ok, err := s.Run(ctx, i)
			if err != nil {
				return result, err
			}
			if ok {
				result.Succeeded = true
				result.Via = s.Name
				return result, nil
			}
		}
	}
	return result, nil
}
