package trinity

import (
	"context"
)

// Build creates a new Document from the template called static and composes
// the template called name into it. The static template's markup, executed
// with data, is the document shell: it gets a stylesheet and a script linked
// from the configured PublicPath, and an empty <style> element that the
// style of name, and of everything name loads, is collected into.
//
// The static template's markup is mandatory; its style and script resources
// are never read, they're linked for the client to fetch.
func (e *Engine) Build(ctx context.Context, static, name string, data any, cb Callback) {
	if cb == nil {
		cb = noopCallback
	}
	ctx = compositionContext(ctx, name)
	paths, err := e.paths(static)
	if err != nil {
		go cb(&ResourceError{Template: static, Kind: KindMarkup, Err: err}, nil, nil)
		return
	}
	e.cache.Get(ctx, paths[KindMarkup], func(source []byte, err error) {
		doc, err := e.buildDocument(static, paths[KindMarkup], source, err, data)
		if err != nil {
			logger(ctx).DebugContext(ctx, "error building document", "template", static, "error", err)
			cb(err, nil, nil)
			return
		}
		e.compose(ctx, doc, name, data, cb)
	})
}

func (e *Engine) buildDocument(static, path string, source []byte, readErr error, data any) (*Document, error) {
	fail := func(err error) error {
		return &ResourceError{Template: static, Kind: KindMarkup, Path: path, Err: err}
	}
	if readErr != nil {
		return nil, fail(readErr)
	}
	markup, err := e.executeMarkup(path, source, data)
	if err != nil {
		return nil, fail(err)
	}
	doc, err := parseDocument(markup)
	if err != nil {
		return nil, fail(err)
	}
	staticLinks(e.cfg.PublicPath, static).attach(doc)
	return doc, nil
}
