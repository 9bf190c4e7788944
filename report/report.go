// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package report renders an HTML index of generated charts and text
// summary tables.
package report

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/safehtml/template"
)

// A Page is one HTML index.
type Page struct {
	Title    string
	Sections []Section
}

// A Section groups the charts and tables of one configuration.
type Section struct {
	Heading string
	Charts  []Chart

	// Tables are preformatted text tables.
	Tables []string
}

// A Chart links to a chart file.
type Chart struct {
	Name string
	Path string // slash-separated, relative to the page
}

// NewChart returns a Chart for the file at path, linked relative to
// dir, the directory the page is written to.
func NewChart(name, dir, path string) (Chart, error) {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return Chart{}, err
	}
	return Chart{Name: name, Path: filepath.ToSlash(rel)}, nil
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
{{- range .Sections}}
<h2>{{.Heading}}</h2>
{{- if .Charts}}
<ul>
{{- range .Charts}}
<li><a href="{{.Path}}">{{.Name}}</a></li>
{{- end}}
</ul>
{{- end}}
{{- range .Tables}}
<pre>{{.}}</pre>
{{- end}}
{{- end}}
</body>
</html>
`))

// Write renders p to w.
func Write(w io.Writer, p Page) error {
	return pageTemplate.Execute(w, p)
}

// WriteFile renders p to the file at path.
func WriteFile(path string, p Page) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
