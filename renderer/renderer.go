// Package renderer renders run reports as markdown.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/etnz/skinledger/history"
)

//go:embed *.md
var templates embed.FS

// funcs are available in every template.
var funcs = template.FuncMap{
	// cell escapes a value written in a table cell.
	"cell": func(v any) string {
		return strings.ReplaceAll(fmt.Sprint(v), "|", `\|`)
	},
}

// RenderRun renders the report of a single run.
func RenderRun(run history.Run) string {
	partials := map[string]string{
		"run_title":    "run_title.md",
		"run_summary":  "run_summary.md",
		"run_failures": "run_failures.md",
	}
	return renderTemplate("run", "run.md", partials, run)
}

// RenderHistory renders a table of runs, in the given order.
func RenderHistory(runs []history.Run) string {
	return renderTemplate("history", "history.md", nil, runs)
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Funcs(funcs).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		content, err := fs.ReadFile(templates, file)
		if err != nil {
			return fmt.Sprintf("error reading partial template %q: %v", file, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
