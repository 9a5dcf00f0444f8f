// Package assets embeds the raw web page sources.
package assets

import _ "embed"

// IndexTemplate is the HTML page template. CSS, JS and SVG are inlined into it.
//
//go:embed index.html.tpl
var IndexTemplate string

// Style is the page stylesheet.
//
//go:embed style.css
var Style string

// Script is the page script.
//
//go:embed script.js
var Script string

// Favicon is the SVG site icon.
//
//go:embed favicon.svg
var Favicon string

// WeatherIcon is the status panel icon.
//
//go:embed cloud.svg
var WeatherIcon string
