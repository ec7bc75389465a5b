// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryWithBackoff runs op until it succeeds or maxAttempts are used up,
// doubling the delay after each failed attempt. Context cancellation
// aborts both the waits and further attempts. Exhaustion returns the last
// error wrapped with the attempt count.
func RetryWithBackoff(ctx context.Context, op func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	delay := baseDelay
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("embedding batch recovered", "attempt", attempt)
			}
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		slog.Debug("embedding batch failed",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"delay", delay,
			"err", lastErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}

	return fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}
