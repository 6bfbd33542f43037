package sdk

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/seq2func/seq2func/internals/schemas"
	"github.com/seq2func/seq2func/internals/timeouts"
)

var (
	ErrAlreadyStarted  = errors.New("search already started")
	ErrNotStarted      = errors.New("search not started")
	ErrCancelRequested = errors.New("cancel already requested")
	ErrTaskFinished    = errors.New("task already finished")
)

// SearchPoller drives one search task from start to a terminal status.
//
// It enforces the lifecycle rules of the task API client side: a start
// latch (one poller, one backend task), at most one in-flight status
// request, a fixed poll interval with one immediate poll, a one-shot
// advisory cancel, and fatal poll errors. A poller is single use; make a
// new one for the next search.
type SearchPoller struct {
	client         *Client
	interval       time.Duration
	requestTimeout time.Duration
	onUpdate       func(status *schemas.TaskStatusResponse)

	mu           sync.Mutex
	started      bool
	startResp    *schemas.TaskStartResponse
	startErr     error
	cancelIssued bool
	pollInFlight bool
	final        *schemas.TaskStatusResponse
}

type PollerOption func(*SearchPoller)

func WithPollInterval(interval time.Duration) PollerOption {
	return func(p *SearchPoller) {
		if interval > 0 {
			p.interval = interval
		}
	}
}

func WithPollRequestTimeout(timeout time.Duration) PollerOption {
	return func(p *SearchPoller) {
		if timeout > 0 {
			p.requestTimeout = timeout
		}
	}
}

// WithOnUpdate registers a callback invoked after every successful poll,
// terminal one included.
func WithOnUpdate(fn func(status *schemas.TaskStatusResponse)) PollerOption {
	return func(p *SearchPoller) {
		p.onUpdate = fn
	}
}

func NewSearchPoller(client *Client, opts ...PollerOption) *SearchPoller {
	poller := &SearchPoller{
		client:         client,
		interval:       timeouts.PollInterval,
		requestTimeout: timeouts.PollRequest,
	}
	for _, opt := range opts {
		opt(poller)
	}
	return poller
}

// Start submits the search. The latch flips before the request goes out,
// so a second Start never reaches the backend regardless of timing. A
// start error is final: the poller is burnt and polling never begins.
func (p *SearchPoller) Start(ctx context.Context, request schemas.GeneSearchRequest) (*schemas.TaskStartResponse, error) {
	p.mu.Lock()
	if p.started {
		resp, err := p.startResp, p.startErr
		p.mu.Unlock()
		if err != nil {
			return nil, err
		}
		if resp != nil {
			return resp, ErrAlreadyStarted
		}
		return nil, ErrAlreadyStarted
	}
	p.started = true
	p.mu.Unlock()

	resp, err := p.client.StartSearch(ctx, request)

	p.mu.Lock()
	p.startResp = resp
	p.startErr = err
	p.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Wait polls until the task reaches a terminal status. It polls once
// immediately, then at the fixed interval. The first poll error stops
// polling and is returned; there are no retries.
func (p *SearchPoller) Wait(ctx context.Context) (*schemas.TaskStatusResponse, error) {
	taskID, err := p.taskID()
	if err != nil {
		return nil, err
	}

	status, done, err := p.poll(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if done {
		return status, nil
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			status, done, err := p.poll(ctx, taskID)
			if err != nil {
				return nil, err
			}
			if done {
				return status, nil
			}
		}
	}
}

// Cancel asks the server to stop the task. It is advisory and one-shot:
// once issued, further cancels are rejected, and polling continues until
// the server reports a terminal status. The context aborts the request
// itself if the caller gives up on it.
func (p *SearchPoller) Cancel(ctx context.Context) (*schemas.TaskCancelResponse, error) {
	p.mu.Lock()
	if !p.started || p.startResp == nil {
		p.mu.Unlock()
		return nil, ErrNotStarted
	}
	if p.final != nil {
		p.mu.Unlock()
		return nil, ErrTaskFinished
	}
	if p.cancelIssued {
		p.mu.Unlock()
		return nil, ErrCancelRequested
	}
	p.cancelIssued = true
	taskID := p.startResp.TaskID
	p.mu.Unlock()

	return p.client.CancelTask(ctx, taskID)
}

// Final returns the terminal status once polling has observed one.
func (p *SearchPoller) Final() *schemas.TaskStatusResponse {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.final
}

func (p *SearchPoller) taskID() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return "", ErrNotStarted
	}
	if p.startErr != nil {
		return "", p.startErr
	}
	if p.startResp == nil {
		return "", ErrNotStarted
	}
	return p.startResp.TaskID, nil
}

// poll performs one guarded status request. When another poll is still in
// flight the tick is skipped instead of stacking a second request.
func (p *SearchPoller) poll(ctx context.Context, taskID string) (*schemas.TaskStatusResponse, bool, error) {
	p.mu.Lock()
	if p.pollInFlight {
		p.mu.Unlock()
		return nil, false, nil
	}
	p.pollInFlight = true
	p.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, p.requestTimeout)
	status, err := p.client.TaskStatus(reqCtx, taskID)
	cancel()

	p.mu.Lock()
	p.pollInFlight = false
	if err == nil && status.Status.Terminal() {
		p.final = status
	}
	p.mu.Unlock()

	if err != nil {
		return nil, false, err
	}
	if p.onUpdate != nil {
		p.onUpdate(status)
	}
	return status, status.Status.Terminal(), nil
}
