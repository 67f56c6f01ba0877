package publish

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/deusflow/newsposter/internal/retry"
)

const maxBodyBytes = 1 << 20

// Response is the last answer seen by Do.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Do sends the request built by newReq, retrying network errors and 5xx
// answers. A 4xx is returned at once. newReq is called per attempt so
// bodies can be replayed.
func Do(ctx context.Context, client *http.Client, cfg retry.RetryConfig, newReq func(ctx context.Context) (*http.Request, error)) (Response, error) {
	var last Response
	err := retry.WithRetry(ctx, cfg, func() error {
		req, err := newReq(ctx)
		if err != nil {
			return retry.Permanent(fmt.Errorf("build request: %w", err))
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		last = Response{Status: resp.StatusCode, Header: resp.Header, Body: body}

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("server error: status %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return retry.Permanent(fmt.Errorf("request rejected: status %d", resp.StatusCode))
		}
		return nil
	})
	return last, err
}

// ResultFrom turns the outcome of Do into a Result.
func ResultFrom(resp Response, err error, id string) Result {
	if err != nil {
		body := string(resp.Body)
		if body == "" {
			body = err.Error()
		}
		return Result{Status: resp.Status, Body: body}
	}
	return Result{OK: true, Status: resp.Status, Body: string(resp.Body), ID: id}
}
