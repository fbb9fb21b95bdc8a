package trinity

import (
	"context"
	"regexp"
	"slices"
	"sync"
)

// DefaultPrimitive is the name scripts are expected to give the Invoker
// they're handed.
const DefaultPrimitive = "load"

// ScanDependencies finds the template names passed as string literals to
// calls of primitive in source. It recognizes primitive("name", ...),
// primitive('name', ...), and Lua's primitive "name" call form. Method calls
// like obj.load("name") and names computed at runtime are skipped. Names are
// returned in the order they first appear, without duplicates.
func ScanDependencies(source []byte, primitive string) []string {
	if primitive == "" {
		return nil
	}
	var names []string
	for _, match := range scanPattern(primitive).FindAllSubmatch(source, -1) {
		name := string(match[1])
		if name == "" {
			name = string(match[2])
		}
		if slices.Contains(names, name) {
			continue
		}
		names = append(names, name)
	}
	return names
}

// scanPatterns holds a compiled *regexp.Regexp per primitive.
var scanPatterns sync.Map

func scanPattern(primitive string) *regexp.Regexp {
	if pattern, ok := scanPatterns.Load(primitive); ok {
		return pattern.(*regexp.Regexp)
	}
	pattern := regexp.MustCompile(`(?:^|[^\w.:])` + regexp.QuoteMeta(primitive) +
		`\s*(?:\(\s*)?(?:"([^"\\\n]+)"|'([^'\\\n]+)')`)
	actual, _ := scanPatterns.LoadOrStore(primitive, pattern)
	return actual.(*regexp.Regexp)
}

func (e *Engine) dependencies(source []byte) []string {
	if scanner, ok := e.compiler.(DependencyScanner); ok {
		return scanner.Dependencies(source)
	}
	return ScanDependencies(source, DefaultPrimitive)
}

// preloadSource warms the cache for every template the script source loads.
func (e *Engine) preloadSource(ctx context.Context, source []byte) {
	for _, name := range e.dependencies(source) {
		e.preload(ctx, name)
	}
}

// preload issues reads for all three of the template's resources and
// returns without waiting for them. If this call started the script read,
// the script is scanned for its own dependencies once it arrives; if the
// script was already cached or in flight, whoever started it has taken care
// of that, which is what stops templates that load each other from looping.
func (e *Engine) preload(ctx context.Context, name string) {
	paths, err := e.paths(name)
	if err != nil {
		// the composition that asks for it will report the bad name
		logger(ctx).DebugContext(ctx, "skipping preload", "template", name, "error", err)
		return
	}
	e.cache.Warm(ctx, paths[KindMarkup])
	e.cache.Warm(ctx, paths[KindStyle])
	if !e.cache.Warm(ctx, paths[KindScript]) {
		return
	}
	logger(ctx).DebugContext(ctx, "preloading template", "template", name)
	e.cache.Get(ctx, paths[KindScript], func(source []byte, err error) {
		if err != nil {
			return
		}
		e.preloadSource(ctx, source)
	})
}
