// Package trinity composes HTML documents on the server out of templates,
// each made of up to three resources: markup, style, and an enrichment
// script.
//
// A template named "profile" lives in the Engine's filesystem as
// profile.html, profile.css, and profile.lua (the script's extension comes
// from the ScriptCompiler). The markup is an html/template, executed with the
// data the template is composed with, and is required. The style and the
// script are optional.
//
// To compose a template, call Compose (or Execute, to wait for the result).
// The Engine builds a Document from the configured static template, which is
// the shell every page shares, and links the static template's stylesheet
// and script from the configured public path. It then reads the requested
// template's three resources concurrently: the markup is parsed into a
// Fragment, the style is appended to a single <style> element shared by the
// whole Document, and the script is compiled. Once all three are in, the
// script runs with the Fragment, the data, and an Invoker.
//
// Scripts use the Invoker to compose other templates into the same Document,
// usually to insert the resulting Fragments into their own. Those templates'
// scripts can do the same, to any depth. A composition's callback isn't
// called until every composition its script started, directly or
// indirectly, has finished and reported to its own callback, so the Fragment
// a caller receives is complete.
//
// Resources are read through a Cache, once per path for the lifetime of the
// Engine. Before a script runs, its source is scanned for the templates it
// loads, so their resources are already being read by the time it asks for
// them.
//
// To write a whole page, use Render or WriteDocument.
package trinity
