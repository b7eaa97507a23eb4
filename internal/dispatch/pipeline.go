package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	dErrors "portico/pkg/domain-errors"
)

// Dispatcher sends an exchange through the handler pipeline and returns once
// the pipeline is done with it. A non-nil error is an infrastructure fault,
// never a protocol verdict; verdicts travel on the exchange itself.
type Dispatcher interface {
	Dispatch(ctx context.Context, ex *Exchange) error
}

// Handler processes one exchange. A handler may settle the exchange, mutate
// the transaction's shared response, attach the ambient principal, or do
// nothing and let later handlers decide. Returned errors are infrastructure
// faults and abort the dispatch.
type Handler interface {
	Handle(ctx context.Context, ex *Exchange) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, ex *Exchange) error

func (f HandlerFunc) Handle(ctx context.Context, ex *Exchange) error {
	return f(ctx, ex)
}

type registration struct {
	name    string
	order   int
	seq     int
	ops     map[Op]struct{}
	handler Handler
}

func (r registration) matches(op Op) bool {
	if r.ops == nil {
		return true
	}
	_, ok := r.ops[op]
	return ok
}

// Pipeline is the in-process handler pipeline: an ordered, operation-filtered
// chain of named handlers. Registration happens at assembly time; dispatching
// is read-only and safe for concurrent requests.
type Pipeline struct {
	mu   sync.RWMutex
	regs []registration
	seq  int
}

// NewPipeline returns an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// RegisterOption configures one handler registration.
type RegisterOption func(*registration)

// WithOrder places the handler explicitly; lower runs earlier. Handlers with
// equal order run in registration sequence. The default order is 0.
func WithOrder(order int) RegisterOption {
	return func(r *registration) {
		r.order = order
	}
}

// ForOps restricts the handler to the given operations. Without it the
// handler sees every operation.
func ForOps(ops ...Op) RegisterOption {
	return func(r *registration) {
		r.ops = make(map[Op]struct{}, len(ops))
		for _, op := range ops {
			r.ops[op] = struct{}{}
		}
	}
}

// Register adds a named handler to the pipeline. Like http.ServeMux.Handle it
// panics on assembly mistakes (empty name, nil handler, duplicate name):
// those are programmer errors caught at startup, not runtime conditions.
func (p *Pipeline) Register(name string, h Handler, opts ...RegisterOption) {
	if name == "" {
		panic("dispatch: handler name must not be empty")
	}
	if h == nil {
		panic("dispatch: handler must not be nil")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, reg := range p.regs {
		if reg.name == name {
			panic(fmt.Sprintf("dispatch: handler %q already registered", name))
		}
	}

	reg := registration{name: name, seq: p.seq, handler: h}
	p.seq++
	for _, opt := range opts {
		opt(&reg)
	}

	p.regs = append(p.regs, reg)
	sort.SliceStable(p.regs, func(i, j int) bool {
		if p.regs[i].order != p.regs[j].order {
			return p.regs[i].order < p.regs[j].order
		}
		return p.regs[i].seq < p.regs[j].seq
	})
}

// Remove unregisters a handler by name. It reports whether the name was
// present. Removing terminal handlers is how hosts end up on the cascade's
// fatal path, so removal is deliberate and by exact name.
func (p *Pipeline) Remove(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, reg := range p.regs {
		if reg.name == name {
			p.regs = append(p.regs[:i], p.regs[i+1:]...)
			return true
		}
	}
	return false
}

// Registered returns the names of handlers that would see the given
// operation, in execution order. Useful for assembly-time logging.
func (p *Pipeline) Registered(op Op) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var names []string
	for _, reg := range p.regs {
		if reg.matches(op) {
			names = append(names, reg.name)
		}
	}
	return names
}

// Dispatch runs the exchange through every matching handler in order,
// stopping at the first settlement. It never interprets the verdict; that is
// the caller's job. A handler error aborts the run and surfaces as an
// infrastructure fault.
func (p *Pipeline) Dispatch(ctx context.Context, ex *Exchange) error {
	if ex == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "exchange is nil")
	}

	p.mu.RLock()
	regs := make([]registration, len(p.regs))
	copy(regs, p.regs)
	p.mu.RUnlock()

	for _, reg := range regs {
		if !reg.matches(ex.Op()) {
			continue
		}
		if err := reg.handler.Handle(ctx, ex); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal,
				fmt.Sprintf("pipeline handler %q failed", reg.name))
		}
		if ex.Settled() {
			break
		}
	}
	return nil
}
