package trinity_test

import (
	"context"
	"html/template"
	"log/slog"
	"os"
	"strings"

	"impractical.co/trinity"
)

func ExampleWithFuncs() {
	// for example purposes, we're just hardcoding values
	templates := newStaticFS(map[string]string{
		"static.html": `<!doctype html><html><head><title>{{ .Title }}</title></head><body></body></html>`,
		"fruit.html":  `<ul>{{ range applesAndOranges .Fruits }}<li>{{ . }}</li>{{ end }}</ul>`,
	})

	// these functions will be available to the markup of every template
	funcs := template.FuncMap{
		"applesAndOranges": func(in []string) []string {
			for pos, fruit := range in {
				if strings.ToLower(fruit) == "apples" {
					in[pos] = "oranges"
				}
			}
			return in
		},
	}

	ctx := trinity.LoggingContext(context.Background(), slog.Default())

	engine := trinity.New(templates, trinity.Config{PublicPath: "/static"}, trinity.WithFuncs(funcs))
	trinity.Render(ctx, os.Stdout, engine, "fruit", struct {
		Title  string
		Fruits []string
	}{
		Title:  "Fruit",
		Fruits: []string{"pears", "apples"},
	})

	//Output:
	// <!DOCTYPE html><html><head><title>Fruit</title><link rel="stylesheet" href="/static/static.css"/><style></style></head><body><script type="text/javascript" src="/static/static.js"></script><ul><li>pears</li><li>oranges</li></ul></body></html>
}
