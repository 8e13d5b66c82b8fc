package script

import (
	"fmt"
	"sync"
	"time"
)

// CheckTimeout is the hard limit for a single script check.
const CheckTimeout = 5 * time.Second

// checkResult is the internal type used to pass check results through channels.
type checkResult struct {
	errors []CheckError
	err    error
}

// waitWithTimeout waits for a result from ch, but returns a timeout error
// if the check exceeds CheckTimeout. It uses a generation counter to
// discard stale results from previous checks.
//
// On timeout, the goroutine may still be running; the generation check
// ensures its result is discarded when it eventually completes.
func waitWithTimeout(
	ch <-chan checkResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
) ([]CheckError, error) {
	timer := time.NewTimer(CheckTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			// A newer check was started; discard this result.
			return nil, fmt.Errorf("check superseded by newer request")
		}

		return res.errors, res.err

	case <-timer.C:
		return nil, fmt.Errorf("check timed out after %s", CheckTimeout)
	}
}
