package server

import (
	"embed"
	"fmt"
	"html/template"

	"github.com/dustin/go-humanize"

	"appupdates/internal/domain"
)

//go:embed templates/index.html
var templatesFS embed.FS

type releaseRow struct {
	domain.Release
	VersionStr string
	Size       int64
	EndOfLife  bool
}

type indexData struct {
	Releases   []releaseRow
	Info       domain.InfoMessage
	MostRecent int
}

var templateFuncs = template.FuncMap{
	"humanize": humanize.Time,
	"size": func(n int64) string {
		if n < 0 {
			return "-1"
		}
		return humanize.Bytes(uint64(n))
	},
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

func loadIndexTemplate() (*template.Template, error) {
	b, err := templatesFS.ReadFile("templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("read embedded index template: %w", err)
	}
	t, err := template.New("index.html").Funcs(templateFuncs).Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("parse embedded index template: %w", err)
	}
	return t, nil
}
