package presentation

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))

// RenderPage writes the full dashboard document.
func RenderPage(w io.Writer, vm ViewModel) error {
	if err := pageTemplate.ExecuteTemplate(w, "page", vm); err != nil {
		return fmt.Errorf("render dashboard page: %w", err)
	}
	return nil
}

// RenderContent writes only the part of the page that changes between
// refreshes.
func RenderContent(w io.Writer, vm ViewModel) error {
	if err := pageTemplate.ExecuteTemplate(w, "content", vm); err != nil {
		return fmt.Errorf("render dashboard content: %w", err)
	}
	return nil
}

// Page sections that can be replaced on their own. Each name is also the id
// of the element the section renders into.
const (
	FragmentHealth   = "health"
	FragmentSummary  = "summary"
	FragmentComposer = "composer"
	FragmentSubmit   = "submit"
	FragmentHistory  = "history"
)

// DataFragments are the sections that follow dashboard data. The composer
// form is left out so a push never clobbers what an operator is editing.
var DataFragments = []string{FragmentHealth, FragmentSummary, FragmentSubmit, FragmentHistory}

// RenderFragments renders the named sections keyed by name.
func RenderFragments(vm ViewModel, names ...string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	var buf bytes.Buffer
	for _, name := range names {
		buf.Reset()
		if err := pageTemplate.ExecuteTemplate(&buf, name, vm); err != nil {
			return nil, fmt.Errorf("render %s fragment: %w", name, err)
		}
		out[name] = buf.String()
	}
	return out, nil
}
