package mapview

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/woozymasta/rfegps/assets"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
)

// Page is the rendered web front end.
type Page struct {
	Index   []byte
	Favicon []byte
}

type pageData struct {
	Title string
	CSS   template.CSS
	JS    template.JS
	SVG   template.HTML
}

// BuildPage minifies the embedded assets and renders the index page.
func BuildPage(title string) (*Page, error) {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/javascript", js.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)

	cssMin, err := m.String("text/css", assets.Style)
	if err != nil {
		return nil, fmt.Errorf("minify CSS: %w", err)
	}
	jsMin, err := m.String("text/javascript", assets.Script)
	if err != nil {
		return nil, fmt.Errorf("minify JS: %w", err)
	}
	iconMin, err := m.String("image/svg+xml", assets.WeatherIcon)
	if err != nil {
		return nil, fmt.Errorf("minify SVG: %w", err)
	}
	faviconMin, err := m.String("image/svg+xml", assets.Favicon)
	if err != nil {
		return nil, fmt.Errorf("minify favicon: %w", err)
	}

	tmpl, err := template.New("index").Parse(assets.IndexTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, pageData{
		Title: title,
		CSS:   template.CSS(cssMin),
		JS:    template.JS(jsMin),
		SVG:   template.HTML(iconMin),
	})
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	index, err := m.Bytes("text/html", buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("minify HTML: %w", err)
	}

	return &Page{Index: index, Favicon: []byte(faviconMin)}, nil
}
