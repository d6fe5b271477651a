// Package dashboard renders Grafana dashboards over the GreptimeDB table the
// prioritized track is written to.
package dashboard

import (
	"embed"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/rotisserie/eris"
)

//go:embed templates/*.json.tmpl
var templates embed.FS

// Params select the table the panels query.
type Params struct {
	Database string
	Table    string
}

// Render parses dashboard templates and writes rendered dashboards to outDir.
// Datasource uids come from the environment.
func Render(outDir string, p Params) ([]string, error) {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", eris.Errorf("dashboard: environment variable %s not set", key)
			}
			return v, nil
		},
	}
	if p.Database == "" || p.Table == "" {
		return nil, eris.New("dashboard: database and table are required")
	}

	names, err := templates.ReadDir("templates")
	if err != nil {
		return nil, eris.Wrap(err, "dashboard: list templates")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "dashboard: create %s", outDir)
	}
	var written []string
	for _, e := range names {
		t, err := template.New(e.Name()).Funcs(funcMap).ParseFS(templates, "templates/"+e.Name())
		if err != nil {
			return written, eris.Wrapf(err, "dashboard: parse %s", e.Name())
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(e.Name(), ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return written, eris.Wrapf(err, "dashboard: create %s", outPath)
		}
		if err := t.Execute(f, p); err != nil {
			f.Close()
			return written, eris.Wrapf(err, "dashboard: render %s", e.Name())
		}
		if err := f.Close(); err != nil {
			return written, eris.Wrapf(err, "dashboard: close %s", outPath)
		}
		written = append(written, outPath)
	}
	return written, nil
}
