// Package driver runs lowering over whole modules: a validation gate,
// then per-function lowering and linearization fanned out over a
// worker pool. Results come back indexed by function, so output order
// never depends on scheduling.
package driver

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"keel/internal/diag"
	"keel/internal/ir"
	"keel/internal/irpack"
	"keel/internal/linear"
	"keel/internal/observ"
	"keel/internal/selgen"
	"keel/internal/target"
)

// maxDiagnostics bounds the bag of one function; a function producing
// more is broken enough that the tail adds nothing.
const maxDiagnostics = 256

// Options configures a module lowering run.
type Options struct {
	Target   *target.Desc
	Selector target.Selector
	// Jobs limits worker parallelism; 0 means GOMAXPROCS.
	Jobs int
	// Timer, when set, receives per-phase timings.
	Timer *observ.Timer
}

// FuncResult is the outcome for one function. Exactly one of three
// shapes: Invalid with diagnostics, Err on a contract violation, or
// Lowering and Machine populated.
type FuncResult struct {
	Func *ir.Func

	Lowering *selgen.Result
	Machine  *linear.MFunc
	Digest   irpack.Digest

	Bag *diag.Bag
	// Invalid marks a function rejected by the validation gate.
	Invalid bool
	// Err is set when lowering broke an internal invariant; the
	// function's partial state is discarded.
	Err error
}

// ModuleResult aggregates per-function results, index-aligned with
// Module.Funcs.
type ModuleResult struct {
	Module *ir.Module
	Funcs  []FuncResult
}

// HasErrors reports whether any function failed or produced an error
// diagnostic.
func (r *ModuleResult) HasErrors() bool {
	for i := range r.Funcs {
		fr := &r.Funcs[i]
		if fr.Err != nil || fr.Invalid || fr.Bag.HasErrors() {
			return true
		}
	}
	return false
}

// LowerModule validates and lowers every function of m. Functions are
// independent; one function's failure never blocks another. The
// returned error reflects infrastructure problems only, never bad
// input.
func LowerModule(ctx context.Context, m *ir.Module, opts Options) (*ModuleResult, error) {
	if opts.Target == nil {
		opts.Target = target.Generic64()
	}
	if opts.Selector == nil {
		opts.Selector = target.GenericSelector{}
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	var phase int
	if opts.Timer != nil {
		phase = opts.Timer.Begin("lower")
	}

	out := &ModuleResult{
		Module: m,
		Funcs:  make([]FuncResult, len(m.Funcs)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, max(len(m.Funcs), 1)))
	for i, f := range m.Funcs {
		i, f := i, f
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			out.Funcs[i] = lowerOne(f, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.Timer != nil {
		opts.Timer.End(phase, fmt.Sprintf("%d funcs, %d jobs", len(m.Funcs), jobs))
	}
	return out, nil
}

func lowerOne(f *ir.Func, opts Options) FuncResult {
	bag := diag.NewBag(maxDiagnostics)
	fr := FuncResult{Func: f, Bag: bag}
	if f == nil {
		fr.Invalid = true
		return fr
	}

	if err := ir.ValidateFunc(f); err != nil {
		bag.Add(diag.Diagnostic{
			Severity: diag.SevError,
			Code:     diag.IRInvalidFunction,
			Message:  fmt.Sprintf("function %s rejected: %v", f.Name, err),
			Primary:  f.Span,
		})
		fr.Invalid = true
		return fr
	}

	rep := &diag.BagReporter{Bag: bag}
	res, err := selgen.LowerFunc(f, opts.Target, rep)
	if err != nil {
		fr.Err = err
		return fr
	}
	fr.Lowering = res
	fr.Machine = linear.Run(res, opts.Selector, rep)

	if d, derr := irpack.FuncDigest(f); derr == nil {
		fr.Digest = d
	}
	return fr
}
