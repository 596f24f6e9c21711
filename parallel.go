package ranforest

import (
	"runtime"
	"sync"
)

// parallelRange splits [0, n) into contiguous chunks, one per worker, and
// runs fn on each chunk concurrently. workers <= 0 means GOMAXPROCS.
func parallelRange(n, workers int, fn func(start, end int)) {
	workers = resolveWorkers(workers)
	if workers <= 1 || n <= 1 {
		fn(0, n)
		return
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			fn(start, end)
		}(start, end)
	}
	wg.Wait()
}

func resolveWorkers(workers int) int {
	if workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return workers
}
