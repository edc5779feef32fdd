package middleware

import (
	"bytes"
	"html/template"
	"net/http"

	goBlog "github.com/MrEthical07/goBlog"
)

var errorPageTemplate = template.Must(template.New("auth-error").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<main data-reason="{{.Reason}}">
<h1>{{.Title}}</h1>
<p>{{.Description}}</p>
<a href="{{.Action.URL}}">{{.Action.Label}}</a>
</main>
</body>
</html>
`))

// ErrorPage renders the auth error page for the reason in the "error" query
// parameter. Unknown or missing reasons render the default text.
func ErrorPage(engine *goBlog.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			return
		}

		content := engine.ErrorContent(goBlog.ParseReason(r.URL.Query().Get("error")))

		var buf bytes.Buffer
		if err := errorPageTemplate.Execute(&buf, content); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(buf.Bytes())
	})
}
