package sim

import (
	"context"
	"sync"
)

// Ensemble runs several simulations side by side, each on its own world,
// for comparing presets or velocity laws.
type Ensemble struct {
	cfgs []Config
}

func NewEnsemble(cfgs ...Config) *Ensemble {
	return &Ensemble{cfgs: cfgs}
}

func (e *Ensemble) Len() int { return len(e.cfgs) }

// Run returns results in the order the configs were given. Any setup
// error fails the whole ensemble.
func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	results := make([]*Result, len(e.cfgs))
	errs := make([]error, len(e.cfgs))

	var wg sync.WaitGroup
	for i, cfg := range e.cfgs {
		wg.Add(1)
		go func(idx int, cfg Config) {
			defer wg.Done()
			results[idx], errs[idx] = New(cfg).Run(ctx)
		}(i, cfg)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
