package server

import (
	"html/template"
	"net/http"
	"strings"
)

var configureTmpl = template.Must(template.New("configure").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Name}} {{.Version}}</title>
<style>
body { font-family: sans-serif; max-width: 40em; margin: 3em auto; padding: 0 1em; }
code { background: #f2f2f2; padding: 0 .3em; }
</style>
</head>
<body>
<h1>{{.Name}}</h1>
<p>{{.Description}}</p>
<h2>Sources</h2>
<ol>
{{- range .Sources}}
<li><code>{{.}}</code></li>
{{- end}}
</ol>
{{- if .ManifestURL}}
<p><a href="{{.InstallURL}}">Install in Stremio</a> or add <code>{{.ManifestURL}}</code> manually.</p>
{{- else}}
<p>Add <code>/manifest.json</code> from this host in Stremio to install.</p>
{{- end}}
</body>
</html>
`))

type configurePage struct {
	Name        string
	Version     string
	Description string
	Sources     []string
	ManifestURL string
	InstallURL  template.URL
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	page := configurePage{
		Name:        s.manifest.Name,
		Version:     s.manifest.Version,
		Description: s.manifest.Description,
		ManifestURL: s.addonURL,
	}
	for _, name := range s.sources {
		page.Sources = append(page.Sources, string(name))
	}
	if s.addonURL != "" {
		page.InstallURL = template.URL(installURL(s.addonURL))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := configureTmpl.Execute(w, page); err != nil {
		s.logger.Error("render configure page", "err", err)
	}
}

// installURL rewrites an http(s) manifest URL to the stremio:// scheme.
func installURL(manifestURL string) string {
	for _, prefix := range []string{"https://", "http://"} {
		if strings.HasPrefix(manifestURL, prefix) {
			return "stremio://" + strings.TrimPrefix(manifestURL, prefix)
		}
	}
	return manifestURL
}
