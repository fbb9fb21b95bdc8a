package trinity

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// ErrorPageData is the data the configured ErrorTemplate is executed with.
type ErrorPageData struct {
	// Template is the name of the template that failed to compose.
	Template string
}

// WriteDocument composes the template called name with data and writes the
// whole document, with the composed fragment appended to its <body>, to out.
// If the composition fails, nothing is written and the error is returned.
func (e *Engine) WriteDocument(ctx context.Context, out io.Writer, name string, data any) error {
	frag, _, err := e.Execute(ctx, name, data)
	if err != nil {
		return err
	}
	doc := frag.Document()
	doc.turn(func() {
		appendNode(doc.body, frag.root)
		err = doc.Render(out)
	})
	if err != nil {
		return fmt.Errorf("error writing document for %q: %w", name, err)
	}
	return nil
}

// Render writes the document for the template called name to out. If it
// can't, a server error page is written instead. If the Engine's Config
// names an ErrorTemplate, that template's markup will be written; if not, a
// simple text page indicating a server error will be written.
func Render(ctx context.Context, out io.Writer, engine *Engine, name string, data any) {
	defer func() {
		// if the ResponseWriter can be closed, let's try to close it
		if closer, ok := out.(io.Closer); ok {
			err := closer.Close()
			// if there's an error closing it, logging it's about all we can do
			if err != nil {
				logger(ctx).ErrorContext(ctx, "error closing response writer", "error", err)
			}
		}
	}()

	// the document is rendered into memory first, so a failure part way
	// through doesn't leave half a page in out
	var buf bytes.Buffer
	err := engine.WriteDocument(ctx, &buf, name, data)

	// if there's no error, we're done here
	if err == nil {
		_, err = out.Write(buf.Bytes())
		if err != nil {
			logger(ctx).ErrorContext(ctx, "error writing document", "template", name, "error", err)
		}
		return
	}

	// if there is an error, we now need to try and render a server error
	// page

	// but first we're logging whatever went wrong
	logger(ctx).ErrorContext(ctx, "error rendering document", "template", name, "error", err)

	if errTmpl := engine.cfg.ErrorTemplate; errTmpl != "" {
		err = engine.writeErrorPage(ctx, out, errTmpl, ErrorPageData{Template: name})
		if err != nil {
			// if we can't do that, everything's doomed, doomed, doomed
			// just log it and we'll move on
			logger(ctx).ErrorContext(ctx, "error rendering server error page", "error", err)
		}
		return
	}

	// there's no server error template, write a server error message
	_, err = out.Write([]byte("Server error."))
	if err != nil {
		logger(ctx).ErrorContext(ctx, "error writing server error message", "error", err)
	}
}

// writeErrorPage writes the markup of the template called name, executed
// with data. The markup is read synchronously and nothing is composed into
// it, so an error page can't fail the way the page it replaces did.
func (e *Engine) writeErrorPage(ctx context.Context, out io.Writer, name string, data ErrorPageData) error {
	paths, err := e.paths(name)
	if err != nil {
		return err
	}
	source, err := e.cache.ReadNow(ctx, paths[KindMarkup])
	if err != nil {
		return fmt.Errorf("error reading server error page %q: %w", name, err)
	}
	page, err := e.executeMarkup(paths[KindMarkup], source, data)
	if err != nil {
		return err
	}
	_, err = out.Write(page)
	return err
}
