package trinity

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Engine composes templates stored in an fs.FS into documents. Each server
// should have one Engine, shared by every request; it holds the resource
// cache, so resources are read at most once for the Engine's lifetime.
//
// An Engine must be instantiated through New, its empty value is not usable.
// It can safely be used by multiple goroutines.
type Engine struct {
	cfg      Config
	cache    *Cache
	compiler ScriptCompiler
	funcs    template.FuncMap

	// cache our parsed markup to avoid re-parsing it for every
	// composition; keyed by resource path
	templateCache   map[string]*template.Template
	templateCacheMu sync.RWMutex

	// same for compiled scripts
	scriptCache   map[string]Script
	scriptCacheMu sync.RWMutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithCompiler sets the ScriptCompiler used for script resources. The
// default is a LuaCompiler.
func WithCompiler(compiler ScriptCompiler) Option {
	return func(e *Engine) {
		if compiler != nil {
			e.compiler = compiler
		}
	}
}

// WithFuncs adds functions to the html/template FuncMap that markup is
// executed with. Later calls override earlier ones for the same name.
func WithFuncs(funcs template.FuncMap) Option {
	return func(e *Engine) {
		e.funcs = mergeFuncMaps(e.funcs, funcs)
	}
}

// WithCache makes the Engine read resources through cache instead of a
// Cache of its own. The Engine's filesystem is ignored in that case.
func WithCache(cache *Cache) Option {
	return func(e *Engine) {
		if cache != nil {
			e.cache = cache
		}
	}
}

// New returns an Engine that reads templates from fsys, configured by cfg.
// Empty settings in cfg are filled in from DefaultConfig.
func New(fsys fs.FS, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:           cfg.withDefaults(),
		compiler:      &LuaCompiler{},
		funcs:         template.FuncMap{},
		templateCache: map[string]*template.Template{},
		scriptCache:   map[string]Script{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = NewCache(fsys)
	}
	return e
}

// Config returns the Engine's configuration, with defaults filled in.
func (e *Engine) Config() Config {
	return e.cfg
}

// Cache returns the Cache the Engine reads resources through.
func (e *Engine) Cache() *Cache {
	return e.cache
}

// paths returns the resource paths for the template called name, indexed by
// Kind.
func (e *Engine) paths(name string) ([3]string, error) {
	base := path.Join(e.cfg.Path, name)
	if name == "" || !fs.ValidPath(base) {
		return [3]string{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return [3]string{
		KindMarkup: base + ".html",
		KindStyle:  base + ".css",
		KindScript: base + e.compiler.Extension(),
	}, nil
}

// Compose builds a new Document from the configured static template and
// composes the template called name into it, delivering the result to cb.
// data is made available to the markup and the script; it may be nil.
//
// cb is called exactly once, after every composition the template's script
// started has finished.
func (e *Engine) Compose(ctx context.Context, name string, data any, cb Callback) {
	e.Build(ctx, e.cfg.Static, name, data, cb)
}

// Execute is Compose for callers that want to wait for the result. If ctx is
// done first, Execute returns ctx.Err(); the composition itself isn't
// stopped and finishes in the background.
func (e *Engine) Execute(ctx context.Context, name string, data any) (*Fragment, Invoker, error) {
	type result struct {
		frag *Fragment
		load Invoker
		err  error
	}
	results := make(chan result, 1)
	e.Compose(ctx, name, data, func(err error, frag *Fragment, load Invoker) {
		results <- result{frag: frag, load: load, err: err}
	})
	select {
	case res := <-results:
		return res.frag, res.load, res.err
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// Invoker returns an Invoker that composes templates against doc. It isn't
// tied to any composition in progress, so calling it never holds up another
// composition's callback.
func (e *Engine) Invoker(doc *Document) Invoker {
	return func(ctx context.Context, name string, data any, cb Callback) {
		e.compose(ctx, doc, name, data, cb)
	}
}

// Warm reads every template matching the configured Preload patterns, and
// the templates their scripts load, into the cache. Templates are listed
// from the filesystem the cache reads. Only the markup of the static
// template is read, its other resources are for the client. Warm returns
// once the reads have been started.
func (e *Engine) Warm(ctx context.Context) error {
	if e.cache.fsys == nil {
		return fmt.Errorf("error listing templates: %w", ErrNoFilesystem)
	}
	for _, pattern := range e.cfg.Preload {
		matches, err := doublestar.Glob(e.cache.fsys, path.Join(e.cfg.Path, pattern))
		if err != nil {
			return fmt.Errorf("error listing templates for %q: %w", pattern, err)
		}
		for _, match := range matches {
			if !strings.HasSuffix(match, ".html") {
				continue
			}
			name := strings.TrimSuffix(match, ".html")
			if e.cfg.Path != "." {
				name = strings.TrimPrefix(name, e.cfg.Path+"/")
			}
			if name == e.cfg.Static {
				e.cache.Warm(ctx, match)
				continue
			}
			e.preload(ctx, name)
		}
	}
	return nil
}
