package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/codeGROOVE-dev/retry"
	"go.uber.org/zap"
)

// fetch downloads a remote table. Server errors and rate limiting are retried
// with jittered backoff; other non-200 answers fail immediately.
func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")

	attempts := l.retry.Attempts
	if attempts == 0 {
		attempts = 1
	}

	var body []byte
	err = retry.Do(
		func() error {
			resp, doErr := l.client.Do(req)
			if doErr != nil {
				return doErr
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
				snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(snippet))
			}
			if resp.StatusCode != http.StatusOK {
				return retry.Unrecoverable(fmt.Errorf("HTTP %d", resp.StatusCode))
			}

			data, readErr := io.ReadAll(resp.Body)
			if readErr != nil {
				return readErr
			}
			body = data
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(l.retry.Delay),
		retry.MaxDelay(l.retry.MaxDelay),
		retry.DelayType(retry.FullJitterBackoffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			l.logger.Debug("retrying table fetch", zap.Uint("attempt", n+1), zap.String("url", url), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, url, err)
	}
	return body, nil
}
