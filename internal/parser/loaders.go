package parser

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/tealeg/xlsx"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"study-stream/internal/models"
)

// loadPDF extracts plain text page by page and splits each page,
// preserving the page number on every chunk.
func (s *Splitter) loadPDF(filePath string) ([]models.Chunk, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	var chunks []models.Chunk
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, err
		}
		pageChunks, err := s.splitBounded(pageText, i, defaultSeparators)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, pageChunks...)
	}
	return chunks, nil
}

// loadXLSX renders each sheet as tab-separated rows under a sheet header;
// the sheet index stands in for the page number.
func (s *Splitter) loadXLSX(filePath string) ([]models.Chunk, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, err
	}

	var chunks []models.Chunk
	for sheetNum, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		sheetChunks, err := s.splitBounded(text.String(), sheetNum+1, defaultSeparators)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, sheetChunks...)
	}
	return chunks, nil
}

// loadCSV parses row-wise so each chunk stays aligned to record
// boundaries.
func (s *Splitter) loadCSV(filePath string) ([]models.Chunk, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	docs, err := documentloaders.NewCSV(f).Load(context.Background())
	if err != nil {
		return nil, err
	}

	var chunks []models.Chunk
	var batch strings.Builder
	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		split, err := s.splitBounded(batch.String(), defaultPageNumber, []string{"\n\n", "\n", " ", ""})
		if err != nil {
			return err
		}
		chunks = append(chunks, split...)
		batch.Reset()
		return nil
	}
	for _, doc := range docs {
		if batch.Len()+len(doc.PageContent) > s.chunkSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		batch.WriteString(doc.PageContent)
		batch.WriteString("\n\n")
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// loadHTML uses the structured HTML loader to strip markup before
// splitting.
func (s *Splitter) loadHTML(filePath string) ([]models.Chunk, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	docs, err := documentloaders.NewHTML(f).Load(context.Background())
	if err != nil {
		return nil, err
	}
	var text strings.Builder
	for _, doc := range docs {
		text.WriteString(doc.PageContent)
		text.WriteString("\n\n")
	}
	return s.splitBounded(text.String(), defaultPageNumber, defaultSeparators)
}

// loadMarkdown normalizes GFM to HTML with goldmark, then extracts the
// rendered text so that markup syntax does not end up inside chunks.
// Element boundaries become paragraph breaks for the splitter.
func (s *Splitter) loadMarkdown(filePath string) ([]models.Chunk, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert(data, &buf); err != nil {
		return nil, err
	}
	return s.splitBounded(extractTextFromHTML(buf.String()), defaultPageNumber, defaultSeparators)
}

// loadRTF strips RTF control words and groups down to the raw text run.
func (s *Splitter) loadRTF(filePath string) ([]models.Chunk, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	content := string(data)
	if !strings.HasPrefix(content, `{\rtf`) {
		return nil, fmt.Errorf("not an RTF document: %s", filePath)
	}
	return s.splitBounded(extractTextFromRTF(content), defaultPageNumber, defaultSeparators)
}

// extractTextFromHTML keeps only text outside of tags; block-level closing
// tags are replaced by paragraph breaks.
func extractTextFromHTML(html string) string {
	var text strings.Builder
	inTag := false
	for i := 0; i < len(html); i++ {
		switch html[i] {
		case '<':
			inTag = true
			if strings.HasPrefix(html[i:], "</p>") || strings.HasPrefix(html[i:], "</h") ||
				strings.HasPrefix(html[i:], "</li>") || strings.HasPrefix(html[i:], "</tr>") {
				text.WriteString("\n\n")
			}
		case '>':
			inTag = false
		default:
			if !inTag {
				text.WriteByte(html[i])
			}
		}
	}
	return text.String()
}

func extractTextFromRTF(content string) string {
	var text strings.Builder
	depth := 0
	for i := 0; i < len(content); i++ {
		c := content[i]
		switch {
		case c == '{':
			depth++
		case c == '}':
			depth--
		case c == '\\':
			// Skip the control word and its numeric argument.
			j := i + 1
			for j < len(content) && (isAlpha(content[j]) || isDigit(content[j]) || content[j] == '-') {
				j++
			}
			word := content[i+1 : j]
			if word == "par" || word == "line" {
				text.WriteString("\n")
			}
			if j < len(content) && content[j] == ' ' {
				j++
			}
			i = j - 1
		case depth <= 1 && c != '\r' && c != '\n':
			text.WriteByte(c)
		}
	}
	return text.String()
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
