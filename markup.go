package trinity

import (
	"bytes"
	"fmt"
	"html/template"
	"maps"
)

// executeMarkup runs the markup stored at path as an html/template with
// data. Parsed templates are cached by path; the data may differ between
// calls, so the output never is.
func (e *Engine) executeMarkup(path string, source []byte, data any) ([]byte, error) {
	tmpl, err := e.markupTemplate(path, source)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("error executing template %q: %w", path, err)
	}
	return buf.Bytes(), nil
}

func (e *Engine) markupTemplate(path string, source []byte) (*template.Template, error) {
	e.templateCacheMu.RLock()
	cached, ok := e.templateCache[path]
	e.templateCacheMu.RUnlock()
	if ok {
		return cached, nil
	}
	parsed, err := template.New(path).Funcs(e.funcs).Parse(string(source))
	if err != nil {
		return nil, fmt.Errorf("error parsing %q: %w", path, err)
	}
	e.templateCacheMu.Lock()
	defer e.templateCacheMu.Unlock()
	// another composition may have parsed it first; keep theirs so every
	// caller shares one template
	if cached, ok := e.templateCache[path]; ok {
		return cached, nil
	}
	e.templateCache[path] = parsed
	return parsed, nil
}

// mergeFuncMaps flattens two FuncMaps into one, with the values in `extra`
// overriding the values in `in` if they have the same keys.
func mergeFuncMaps(in template.FuncMap, extra template.FuncMap) template.FuncMap {
	res := template.FuncMap{}
	maps.Copy(res, in)
	maps.Copy(res, extra)
	return res
}
