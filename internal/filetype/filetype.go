package filetype

import (
	"fmt"
	"strings"
)

// FileType identifies a supported document kind. The numeric codes are
// persisted in the study database and must stay stable.
type FileType int

const (
	CSV FileType = iota + 1
	DDL
	Excel
	Java
	JS
	JSON
	HTML
	Markdown
	PDF
	Python
	RichText
	SQL
	Text
	XML
	XSL
	YAML
)

var extensions = map[FileType]string{
	CSV:      "csv",
	DDL:      "ddl",
	Excel:    "xlsx",
	Java:     "java",
	JS:       "js",
	JSON:     "json",
	HTML:     "html",
	Markdown: "md",
	PDF:      "pdf",
	Python:   "py",
	RichText: "rtf",
	SQL:      "sql",
	Text:     "txt",
	XML:      "xml",
	XSL:      "xsl",
	YAML:     "yaml",
}

var byExtension = func() map[string]FileType {
	m := make(map[string]FileType, len(extensions))
	for ft, ext := range extensions {
		m[ext] = ft
	}
	return m
}()

// FromFileName classifies a file by the extension after the final dot.
// The match is exact and case-sensitive; ok is false when the extension is
// not one of the supported kinds.
func FromFileName(fileName string) (FileType, bool) {
	idx := strings.LastIndex(fileName, ".")
	if idx < 0 || idx == len(fileName)-1 {
		return 0, false
	}
	ft, ok := byExtension[fileName[idx+1:]]
	return ft, ok
}

// FromInt restores a FileType from its persisted numeric code.
func FromInt(code int) (FileType, error) {
	ft := FileType(code)
	if _, ok := extensions[ft]; !ok {
		return 0, fmt.Errorf("no file type for code %d", code)
	}
	return ft, nil
}

// Extension returns the bare extension for the type, without the dot.
func (t FileType) Extension() string {
	return extensions[t]
}

func (t FileType) String() string {
	switch t {
	case CSV:
		return "CSV"
	case DDL:
		return "DDL"
	case Excel:
		return "EXCEL"
	case Java:
		return "JAVA"
	case JS:
		return "JS"
	case JSON:
		return "JSON"
	case HTML:
		return "HTML"
	case Markdown:
		return "MARKDOWN"
	case PDF:
		return "PDF"
	case Python:
		return "PYTHON"
	case RichText:
		return "RICH_TEXT"
	case SQL:
		return "SQL"
	case Text:
		return "TEXT"
	case XML:
		return "XML"
	case XSL:
		return "XSL"
	case YAML:
		return "YAML"
	default:
		return fmt.Sprintf("FileType(%d)", int(t))
	}
}

// All returns every supported type, in code order.
func All() []FileType {
	out := make([]FileType, 0, len(extensions))
	for i := CSV; i <= YAML; i++ {
		out = append(out, i)
	}
	return out
}
