package ogmeta

import (
	"html/template"
	"io"
)

var previewTemplate = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta http-equiv="refresh" content="0;url={{.Target}}">
  <title>{{.Title}}</title>
{{- range .Tags}}
  {{if eq .Attr "name"}}<meta name="{{.Key}}" content="{{.Content}}">{{else}}<meta property="{{.Key}}" content="{{.Content}}">{{end}}
{{- end}}
</head>
<body>
  <a href="{{.Target}}">{{.Target}}</a>
</body>
</html>
`))

type previewData struct {
	Target string
	Title  string
	Tags   []Tag
}

// Render writes the preview document for target. meta may be nil when the
// destination could not be fetched; fallbackTitle is used when meta has no title.
func Render(w io.Writer, target, fallbackTitle string, meta *Meta) error {
	data := previewData{Target: target, Title: fallbackTitle}
	if meta != nil {
		data.Tags = meta.Tags
		if meta.Title != "" {
			data.Title = meta.Title
		}
	}
	return previewTemplate.Execute(w, data)
}
