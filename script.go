package trinity

import "context"

// Callback receives the result of a composition. On failure, err is set and
// frag and load are nil. On success, frag holds the composed markup and load
// can be used to compose further templates against the same Document.
type Callback func(err error, frag *Fragment, load Invoker)

// Invoker composes the template called name with data, delivering the
// result to cb. The Invoker handed to a Script keeps the Script's own
// composition open until cb has returned, so anything a Script loads is
// finished before the Script's caller hears about it.
//
// cb may be nil if the caller doesn't care about the result.
type Invoker func(ctx context.Context, name string, data any, cb Callback)

// Script is a compiled enrichment step for a template. It's run once the
// template's markup has been parsed into frag, with the data the template
// was composed with. It may modify frag, and it may call load any number of
// times, from inside the call or from callbacks of earlier load calls.
//
// A Script must not block waiting for the results of load; they are
// delivered after the Script returns.
type Script func(ctx context.Context, frag *Fragment, data any, load Invoker) error

// ScriptCompiler turns the source of a template's script resource into a
// Script.
type ScriptCompiler interface {
	// Extension is the file extension, including the leading dot, of
	// the script resources this compiler understands.
	Extension() string

	// Compile compiles the script source for the template called name.
	// It shouldn't run the script.
	Compile(ctx context.Context, name string, source []byte) (Script, error)
}

// DependencyScanner is an optional interface for ScriptCompilers. Those
// fulfilling it are asked for the templates a script loads, so they can be
// read ahead of time. Compilers that don't implement it are scanned with
// ScanDependencies and the primitive name "load".
//
// Scanning is best-effort: a template the scan misses is still loaded when
// the script asks for it, just without a warm cache.
type DependencyScanner interface {
	// Dependencies returns the names of the templates the script source
	// loads that can be determined without running it.
	Dependencies(source []byte) []string
}

type scriptFailureKey struct{}

// withScriptFailure returns a copy of ctx that lets the code running a
// script's load callbacks fail the composition that ran the script.
func withScriptFailure(ctx context.Context, fail func(error) bool) context.Context {
	return context.WithValue(ctx, scriptFailureKey{}, fail)
}

// failScript fails the composition whose script ctx was handed to, if it
// hasn't reported yet. It returns false if nothing was failed, either
// because ctx isn't a script's or because the composition already reported.
func failScript(ctx context.Context, err error) bool {
	fail, ok := ctx.Value(scriptFailureKey{}).(func(error) bool)
	if !ok {
		return false
	}
	return fail(err)
}

// compileScript compiles the script stored at path for the template called
// name. Compiled scripts are cached by path, like parsed markup, since the
// source behind a path never changes. Failures aren't cached.
func (e *Engine) compileScript(ctx context.Context, name, path string, source []byte) (Script, error) {
	e.scriptCacheMu.RLock()
	cached, ok := e.scriptCache[path]
	e.scriptCacheMu.RUnlock()
	if ok {
		return cached, nil
	}
	script, err := e.compiler.Compile(ctx, name, source)
	if err != nil {
		return nil, err
	}
	e.scriptCacheMu.Lock()
	defer e.scriptCacheMu.Unlock()
	if cached, ok := e.scriptCache[path]; ok {
		return cached, nil
	}
	e.scriptCache[path] = script
	return script, nil
}
