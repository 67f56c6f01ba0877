// Package publish defines the boundary between a run and a social network.
// Implementations never return errors: every outcome is a Result the caller
// can log and act on.
package publish

import (
	"context"
	"fmt"
)

type Result struct {
	OK     bool
	Status int    // HTTP status of the final call; 0 when none was made
	Body   string // response body, for logging failures
	ID     string // post or message id when the network returned one
}

func (r Result) String() string {
	if r.OK {
		return fmt.Sprintf("ok status=%d id=%s", r.Status, r.ID)
	}
	return fmt.Sprintf("failed status=%d body=%s", r.Status, r.Body)
}

// Failed builds a Result for an error that happened before or instead of a
// network response.
func Failed(status int, err error) Result {
	return Result{Status: status, Body: err.Error()}
}

type Publisher interface {
	PublishText(ctx context.Context, text string) Result
	PublishImagePost(ctx context.Context, text, imageURL string) Result
	PublishPoll(ctx context.Context, text, question string, options []string) Result
	PublishDocument(ctx context.Context, text, title string, pdf []byte) Result
}
