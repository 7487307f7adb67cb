package mcpserver

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"adsconsole/internal/app"
	"adsconsole/internal/prompt"
)

// EventOperationFinished is emitted when a background operation ends.
const EventOperationFinished = "operation:finished"

// keepFinished bounds how many finished operations stay queryable.
const keepFinished = 64

var ErrNoSuchOperation = errors.New("no such operation")

// EventEmitter lets operations report completion to clients.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

type OpState string

const (
	OpRunning OpState = "running"
	OpDone    OpState = "done"
	OpAborted OpState = "aborted"
	OpFailed  OpState = "failed"
)

// Operation is an interactive console flow that may be waiting on the user.
// While running, Prompt carries the question the agent should answer with
// answer_prompt.
type Operation struct {
	ID        string          `json:"id"`
	Tool      string          `json:"tool"`
	State     OpState         `json:"state"`
	Result    any             `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	Prompt    *prompt.Request `json:"prompt,omitempty"`
	CreatedAt string          `json:"createdAt"`

	done chan struct{}
}

// Operations runs flows that block on prompts in the background so a tool
// call can return while the flow waits for its answer.
type Operations struct {
	mu      sync.Mutex
	ops     map[string]*Operation
	ctx     context.Context
	wait    time.Duration
	pending func() (prompt.Request, bool)
	emitter EventEmitter
	log     *zap.Logger
}

func NewOperations(ctx context.Context, wait time.Duration, pending func() (prompt.Request, bool), emitter EventEmitter, log *zap.Logger) *Operations {
	return &Operations{
		ops:     make(map[string]*Operation),
		ctx:     ctx,
		wait:    wait,
		pending: pending,
		emitter: emitter,
		log:     log,
	}
}

// Start runs fn and returns once it finishes, asks a new question, or the
// wait bound passes.
func (o *Operations) Start(tool string, fn func(ctx context.Context) (any, error)) Operation {
	before, _ := o.pending()
	op := &Operation{
		ID:        uuid.New().String(),
		Tool:      tool,
		State:     OpRunning,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		done:      make(chan struct{}),
	}
	o.mu.Lock()
	o.ops[op.ID] = op
	o.pruneLocked()
	o.mu.Unlock()

	go func() {
		res, err := fn(o.ctx)
		o.finish(op, res, err)
	}()

	deadline := time.NewTimer(o.wait)
	defer deadline.Stop()
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-op.done:
			return o.snapshot(op)
		case <-deadline.C:
			return o.snapshot(op)
		case <-o.ctx.Done():
			return o.snapshot(op)
		case <-tick.C:
			// notices never block a flow, only questions do
			if req, ok := o.pending(); ok && req.ID != before.ID && req.Kind != prompt.KindMessage {
				return o.snapshot(op)
			}
		}
	}
}

// Get returns the current state of an operation.
func (o *Operations) Get(id string) (Operation, error) {
	o.mu.Lock()
	op, ok := o.ops[id]
	o.mu.Unlock()
	if !ok {
		return Operation{}, ErrNoSuchOperation
	}
	return o.snapshot(op), nil
}

// List returns all known operations, oldest first.
func (o *Operations) List() []Operation {
	o.mu.Lock()
	ops := make([]*Operation, 0, len(o.ops))
	for _, op := range o.ops {
		ops = append(ops, op)
	}
	o.mu.Unlock()
	out := make([]Operation, 0, len(ops))
	for _, op := range ops {
		out = append(out, o.snapshot(op))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out
}

func (o *Operations) finish(op *Operation, res any, err error) {
	o.mu.Lock()
	switch {
	case err == nil:
		op.State, op.Result = OpDone, res
	case app.IsAborted(err):
		op.State = OpAborted
	default:
		op.State, op.Error = OpFailed, err.Error()
	}
	close(op.done)
	snap := *op
	o.mu.Unlock()

	o.log.Debug("operation finished", zap.String("id", op.ID), zap.String("tool", op.Tool), zap.String("state", string(snap.State)))
	if o.emitter != nil {
		o.emitter.Emit(o.ctx, EventOperationFinished, snap)
	}
}

// snapshot copies op; a running one gets the pending prompt attached.
func (o *Operations) snapshot(op *Operation) Operation {
	o.mu.Lock()
	snap := *op
	o.mu.Unlock()
	snap.done = nil
	if snap.State == OpRunning {
		if req, ok := o.pending(); ok {
			snap.Prompt = &req
		}
	}
	return snap
}

func (o *Operations) pruneLocked() {
	if len(o.ops) <= keepFinished {
		return
	}
	var finished []*Operation
	for _, op := range o.ops {
		if op.State != OpRunning {
			finished = append(finished, op)
		}
	}
	sort.Slice(finished, func(i, j int) bool { return finished[i].CreatedAt < finished[j].CreatedAt })
	for _, op := range finished {
		if len(o.ops) <= keepFinished {
			return
		}
		delete(o.ops, op.ID)
	}
}
