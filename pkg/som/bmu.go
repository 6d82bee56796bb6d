package som

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/kestrel-labs/vsomcore/pkg/math/vector"
)

// BMUResult is the outcome of a best-matching-unit search for one input.
type BMUResult struct {
	Index    int     // winning node
	Distance float64 // distance from input to that node's weight vector
}

// BMU finds, for each row of inputs, the node index whose weight vector
// minimizes distance under m's metric. Ties break to the lowest index
//. The batch is permitted to parallelize; the
// search itself never suspends.
func (m *Map) BMU(inputs [][]float64) ([]BMUResult, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyBatch
	}
	for _, in := range inputs {
		if len(in) != m.Dim {
			return nil, fmt.Errorf("som: %w", &vector.DimensionMismatchError{Want: m.Dim, Got: len(in)})
		}
	}

	results := make([]BMUResult, len(inputs))
	errs := make([]error, len(inputs))

	workers := runtime.GOMAXPROCS(0)
	if workers > len(inputs) {
		workers = len(inputs)
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	jobs := make(chan int, len(inputs))
	for i := range inputs {
		jobs <- i
	}
	close(jobs)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range jobs {
				res, err := m.bmuOne(inputs[k])
				results[k] = res
				errs[k] = err
			}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (m *Map) bmuOne(input []float64) (BMUResult, error) {
	best := BMUResult{Index: 0}
	bestSet := false
	for i := range m.Weights {
		d, err := m.distance(input, i)
		if err != nil {
			return BMUResult{}, err
		}
		if !bestSet || d < best.Distance {
			best = BMUResult{Index: i, Distance: d}
			bestSet = true
		}
	}
	return best, nil
}

// bmuTop2 returns the best and second-best node for input, used by
// TopographicError. The second-best must have a different index than the
// best even when distances tie.
func (m *Map) bmuTop2(input []float64) (first, second BMUResult, err error) {
	firstSet, secondSet := false, false
	for i := range m.Weights {
		d, derr := m.distance(input, i)
		if derr != nil {
			return BMUResult{}, BMUResult{}, derr
		}
		switch {
		case !firstSet || d < first.Distance:
			second, secondSet = first, firstSet
			first = BMUResult{Index: i, Distance: d}
			firstSet = true
		case !secondSet || d < second.Distance:
			second = BMUResult{Index: i, Distance: d}
			secondSet = true
		}
	}
	return first, second, nil
}
