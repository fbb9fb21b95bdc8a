package trinity_test

import (
	"context"
	"log/slog"
	"os"

	"impractical.co/trinity"
)

func ExampleRender_errorTemplate() {
	// for example purposes, we're just hardcoding values
	templates := newStaticFS(map[string]string{
		"static.html": `<!doctype html><html><head></head><body></body></html>`,
		// purposefully leave out home.html
		"server_error.html": `<!doctype html>
<html lang="en">
	<head>
		<title>Server Error</title>
	</head>
	<body>
		<h1>Server error</h1>
		<p>Something went wrong rendering {{ .Template }}, sorry about that. We're working on fixing it now.</p>
	</body>
</html>`,
	})

	// usually the context comes from the request, but here we're building it from scratch and adding a logger
	ctx := trinity.LoggingContext(context.Background(), slog.Default())

	engine := trinity.New(templates, trinity.Config{ErrorTemplate: "server_error"})
	trinity.Render(ctx, os.Stdout, engine, "home", nil)

	//Output:
	// <!doctype html>
	// <html lang="en">
	// 	<head>
	// 		<title>Server Error</title>
	// 	</head>
	// 	<body>
	// 		<h1>Server error</h1>
	// 		<p>Something went wrong rendering home, sorry about that. We're working on fixing it now.</p>
	// 	</body>
	// </html>
}
