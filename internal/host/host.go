// Package host runs OHLCV fetches on remote execution slots. Each slot is an
// independently provisioned endpoint, so upstream per-IP limits apply per slot.
package host

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aman-zulfiqar/pair-sweeper/internal/errs"
	"github.com/aman-zulfiqar/pair-sweeper/internal/models"
	"golang.org/x/sync/errgroup"
)

// SlotResult is what one slot returned for its sub-batch. Err describes a
// failure of the whole slot.
type SlotResult struct {
	Responses []models.Response
	Err       error
}

type Host interface {
	Name() string
	// BulkSize is the number of slots invoked in parallel.
	BulkSize() int
	// Invoke sends batches[i] to slot i. The result has len(batches) entries.
	Invoke(ctx context.Context, batches [][]models.Request) []SlotResult
}

// Result is the outcome for a single Request: the upstream body or an error.
type Result struct {
	Body []byte
	Err  error
}

// Trigger invokes h and flattens slot failures onto every pair of that slot
// as a retryable *errs.SlotError.
// out[i][j] always corresponds to batches[i][j].
func Trigger(ctx context.Context, h Host, batches [][]models.Request) [][]Result {
	slots := h.Invoke(ctx, batches)

	out := make([][]Result, len(batches))
	for i, batch := range batches {
		out[i] = make([]Result, len(batch))
		var slot SlotResult
		if i < len(slots) {
			slot = slots[i]
		} else {
			slot.Err = fmt.Errorf("%w: slot %d missing from host result", errs.ErrUnexpectedBody, i)
		}

		for j := range batch {
			if slot.Err != nil {
				out[i][j] = Result{Err: &errs.SlotError{Host: h.Name(), Slot: i, Err: slot.Err}}
				continue
			}
			if j >= len(slot.Responses) {
				out[i][j] = Result{Err: errs.UnexpectedBody("%s slot %d: no response for item %d", h.Name(), i, j)}
				continue
			}
			out[i][j] = interpret(slot.Responses[j])
		}
	}
	return out
}

func interpret(r models.Response) Result {
	if r.Err != nil {
		return Result{Err: errs.Runtime(*r.Err)}
	}
	if r.Status == nil {
		return Result{Err: errs.UnexpectedBody("response carries neither status nor err")}
	}

	body := ""
	if r.Body != nil {
		body = *r.Body
	}
	if *r.Status != 200 {
		return Result{Err: errs.Status(int(*r.Status), body)}
	}
	if r.Body == nil {
		return Result{Err: errs.ErrNoPayload}
	}
	return Result{Body: []byte(body)}
}

// invokeAll runs fn for every non-empty batch concurrently and waits for all
// of them. A failing slot never cancels the others.
func invokeAll(ctx context.Context, batches [][]models.Request, fn func(ctx context.Context, slot int, batch []models.Request) ([]models.Response, error)) []SlotResult {
	out := make([]SlotResult, len(batches))
	var g errgroup.Group
	for i, batch := range batches {
		if len(batch) == 0 {
			continue
		}
		g.Go(func() error {
			resp, err := fn(ctx, i, batch)
			out[i] = SlotResult{Responses: resp, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func decodeResponses(payload []byte) ([]models.Response, error) {
	if len(payload) == 0 {
		return nil, errs.ErrNoPayload
	}
	var resp []models.Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, errs.UnexpectedBody("slot payload: %v", err)
	}
	return resp, nil
}
