package receipt

import (
	_ "embed"
	"html/template"
)

//go:embed static/index.html
var indexHTML string

var pageTemplate = template.Must(template.New("index").Parse(indexHTML))

// pageData is rendered by the index template
type pageData struct {
	Current *Scan
	History []Record
	Columns []string
	Saved   bool
	Error   string // Upload or extraction failure
	SaveErr string // Persistence failure; the record is still shown
}
