package trinity

import (
	"context"
	"errors"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// node is a single composition of a single template. A new node is created
// for every composition, root or nested, and never reused.
//
// Everything a node does after compose returns happens inside a turn of its
// Document, so its fields need no locking of their own.
type node struct {
	engine *Engine
	ctx    context.Context
	span   trace.Span
	doc    *Document
	name   string
	paths  [3]string
	data   any
	cb     Callback

	join     *join
	frag     *Fragment
	script   Script
	scripted bool

	// reported latches the first call to report, so a failure followed
	// by more operations finishing can't produce a second callback
	reported atomic.Bool
}

func noopCallback(error, *Fragment, Invoker) {}

// compose starts a composition of the template called name against doc. The
// markup, style, and script resources are fetched concurrently; once all
// three are in, the script (if there is one) runs, and once it and every
// composition it started are done, cb is called.
func (e *Engine) compose(ctx context.Context, doc *Document, name string, data any, cb Callback) {
	if cb == nil {
		cb = noopCallback
	}
	ctx, span := tracer().Start(ctx, "trinity.compose", trace.WithAttributes(
		attribute.String("trinity.template", name),
	))
	n := &node{
		engine: e,
		ctx:    ctx,
		span:   span,
		doc:    doc,
		name:   name,
		data:   data,
		cb:     cb,
	}
	paths, err := e.paths(name)
	if err != nil {
		// callbacks are never called before compose returns
		go doc.turn(func() {
			n.report(&ResourceError{Template: name, Kind: KindMarkup, Err: err})
		})
		return
	}
	n.paths = paths
	n.join = newJoin(3, n.drained)

	logger(ctx).DebugContext(ctx, "composing template", "template", name)
	n.fetch(KindMarkup, n.markupLoaded)
	n.fetch(KindStyle, n.styleLoaded)
	n.fetch(KindScript, n.scriptLoaded)
}

// fetch reads one of the node's resources and hands it to handle inside a
// turn of the Document. The join is ended exactly once per fetch, whatever
// handle does.
func (n *node) fetch(kind Kind, handle func([]byte, error)) {
	n.engine.cache.Get(n.ctx, n.paths[kind], func(source []byte, err error) {
		n.doc.turn(func() {
			defer n.join.end()
			if n.reported.Load() {
				return
			}
			handle(source, err)
		})
	})
}

func (n *node) markupLoaded(source []byte, err error) {
	if err != nil {
		n.fail(KindMarkup, err)
		return
	}
	markup, err := n.engine.executeMarkup(n.paths[KindMarkup], source, n.data)
	if err != nil {
		n.fail(KindMarkup, err)
		return
	}
	frag, err := n.doc.parseFragment(markup)
	if err != nil {
		n.fail(KindMarkup, err)
		return
	}
	n.frag = frag
}

func (n *node) styleLoaded(source []byte, err error) {
	if errors.Is(err, ErrNotFound) {
		return
	}
	if err != nil {
		n.fail(KindStyle, err)
		return
	}
	n.doc.appendStyle(string(source))
}

func (n *node) scriptLoaded(source []byte, err error) {
	if errors.Is(err, ErrNotFound) {
		return
	}
	if err != nil {
		n.fail(KindScript, err)
		return
	}
	n.engine.preloadSource(n.ctx, source)
	script, err := n.engine.compileScript(n.ctx, n.name, n.paths[KindScript], source)
	if err != nil {
		n.fail(KindScript, err)
		return
	}
	n.script = script
}

// drained is called every time the node's join reaches zero. The first time
// with a script available, it runs the script, holding the join open until
// the script returns so any loads it starts are counted before the join can
// drain again. Otherwise, the node is done.
func (n *node) drained() {
	if n.reported.Load() {
		return
	}
	if n.script != nil && !n.scripted {
		n.scripted = true
		n.join.begin()
		logger(n.ctx).DebugContext(n.ctx, "running script", "template", n.name)
		err := n.script(withScriptFailure(n.ctx, n.scriptFailed), n.frag, n.data, n.invoke)
		if err != nil {
			n.fail(KindScript, err)
		}
		n.join.end()
		return
	}
	n.report(nil)
}

// invoke is the Invoker handed to the node's script. The nested composition
// counts as one of the node's operations until its callback has returned.
func (n *node) invoke(ctx context.Context, name string, data any, cb Callback) {
	n.join.begin()
	n.engine.compose(ctx, n.doc, name, data, func(err error, frag *Fragment, load Invoker) {
		defer n.join.end()
		if cb != nil {
			cb(err, frag, load)
		}
	})
}

// scriptFailed fails the node with an error raised by its script after the
// script returned, from one of its load callbacks. Those callbacks run in a
// turn of the Document, like every other handler of the node.
func (n *node) scriptFailed(err error) bool {
	if n.reported.Load() {
		return false
	}
	n.fail(KindScript, err)
	return true
}

func (n *node) fail(kind Kind, err error) {
	n.report(&ResourceError{
		Template: n.name,
		Kind:     kind,
		Path:     n.paths[kind],
		Err:      err,
	})
}

func (n *node) report(err error) {
	if !n.reported.CompareAndSwap(false, true) {
		return
	}
	if err != nil {
		n.span.RecordError(err)
		n.span.SetStatus(codes.Error, "composition failed")
		logger(n.ctx).DebugContext(n.ctx, "composition failed", "template", n.name, "error", err)
		n.span.End()
		n.cb(err, nil, nil)
		return
	}
	logger(n.ctx).DebugContext(n.ctx, "composition complete", "template", n.name)
	n.span.End()
	n.cb(nil, n.frag, n.engine.Invoker(n.doc))
}
