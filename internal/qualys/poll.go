package qualys

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourorg/qualys-iac-scan/internal/model"
)

// ErrPollTimeout is returned when a scan does not reach FINISHED within the
// polling budget.
var ErrPollTimeout = errors.New("scan did not finish in time")

// StatusFetcher is the one client operation the poll loop needs.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, scanUUID string) (*model.ScanResult, error)
}

// WaitForResult polls the scan status every interval until it is FINISHED
// and returns the terminal payload. Any status other than FINISHED,
// including ones this code has never seen, means keep waiting. A fetch
// error is fatal immediately; there is no retry on transport failure. Once
// elapsed time reaches timeout no further status request is made.
func WaitForResult(ctx context.Context, f StatusFetcher, scanUUID string, interval, timeout time.Duration) (*model.ScanResult, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", interval)
	}
	start := time.Now()
	for {
		sr, err := f.FetchStatus(ctx, scanUUID)
		if err != nil {
			return nil, err
		}
		if sr.Status == model.StatusFinished {
			log.Printf("scan %s: finished", scanUUID)
			return sr, nil
		}
		log.Printf("scan %s: status %q, polling again in %s", scanUUID, sr.Status, interval)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
		if time.Since(start) >= timeout {
			return nil, fmt.Errorf("%w: scan %s still %q after %s", ErrPollTimeout, scanUUID, sr.Status, timeout)
		}
	}
}
