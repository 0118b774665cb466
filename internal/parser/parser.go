package parser

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/textsplitter"

	"study-stream/internal/filetype"
	"study-stream/internal/models"
)

// loaderFunc attempts a format-specific parse-and-split of one file.
type loaderFunc func(s *Splitter, filePath string) ([]models.Chunk, error)

// Splitter turns a classified file into an ordered sequence of chunks.
// Every supported file type has a format-aware loader; when that loader
// fails the file is re-read as plain text and split by the generic
// recursive splitter, so a readable non-empty file always yields chunks.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	loaders      map[filetype.FileType]loaderFunc
}

const (
	defaultChunkSize    = 1000 // characters
	defaultChunkOverlap = 100  // characters
	defaultPageNumber   = 1
)

func NewSplitter(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = defaultChunkOverlap
	}
	s := &Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
	s.loaders = map[filetype.FileType]loaderFunc{
		filetype.CSV:      (*Splitter).loadCSV,
		filetype.DDL:      codeLoader(sqlSeparators),
		filetype.Excel:    (*Splitter).loadXLSX,
		filetype.Java:     codeLoader(javaSeparators),
		filetype.JS:       codeLoader(jsSeparators),
		filetype.JSON:     (*Splitter).loadText,
		filetype.HTML:     (*Splitter).loadHTML,
		filetype.Markdown: (*Splitter).loadMarkdown,
		filetype.PDF:      (*Splitter).loadPDF,
		filetype.Python:   codeLoader(pythonSeparators),
		filetype.RichText: (*Splitter).loadRTF,
		filetype.SQL:      codeLoader(sqlSeparators),
		filetype.Text:     (*Splitter).loadText,
		filetype.XML:      (*Splitter).loadText,
		filetype.XSL:      (*Splitter).loadText,
		filetype.YAML:     (*Splitter).loadText,
	}
	return s
}

// Split parses filePath with the loader registered for fileType. Chunk
// order matches document order; sequence ids are assigned top to bottom.
func (s *Splitter) Split(filePath string, fileType filetype.FileType) ([]models.Chunk, error) {
	loader, ok := s.loaders[fileType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnsupportedFileType, fileType)
	}

	chunks, err := loader(s, filePath)
	if err != nil {
		log.Warn().Err(err).Str("file", filePath).Stringer("type", fileType).
			Msg("Format loader failed, falling back to plain text")
		chunks, err = s.loadText(filePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", models.ErrIngestion, filePath, err)
		}
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: no content in %s", models.ErrIngestion, filePath)
	}

	for i := range chunks {
		chunks[i].Source = filePath
		chunks[i].ChunkID = i + 1
	}
	return chunks, nil
}

// splitBounded runs the recursive character splitter with the configured
// window and overlap, breaking preferentially at the given separators.
func (s *Splitter) splitBounded(content string, pageNumber int, separators []string) ([]models.Chunk, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(s.chunkSize),
		textsplitter.WithChunkOverlap(s.chunkOverlap),
		textsplitter.WithSeparators(separators),
	)
	parts, err := splitter.SplitText(content)
	if err != nil {
		return nil, err
	}
	var chunks []models.Chunk
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{Content: part, PageNumber: pageNumber})
	}
	return chunks, nil
}

var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Separator sets for language-aware code splitting, preferring breaks at
// declaration boundaries before blank lines.
var (
	javaSeparators = []string{
		"\nclass ", "\npublic ", "\nprotected ", "\nprivate ", "\nstatic ",
		"\n\n", "\n", " ", "",
	}
	jsSeparators = []string{
		"\nfunction ", "\nconst ", "\nlet ", "\nvar ", "\nclass ",
		"\nexport ", "\n\n", "\n", " ", "",
	}
	pythonSeparators = []string{
		"\nclass ", "\ndef ", "\n\tdef ", "\n\n", "\n", " ", "",
	}
	sqlSeparators = []string{";\n", "\n\n", "\n", " ", ""}
)

// codeLoader builds a loader that reads the whole source file and splits
// it with a language-specific separator set.
func codeLoader(separators []string) loaderFunc {
	return func(s *Splitter, filePath string) ([]models.Chunk, error) {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		return s.splitBounded(string(data), defaultPageNumber, separators)
	}
}

// loadText is the generic whole-file loader and the shared fallback.
func (s *Splitter) loadText(filePath string) ([]models.Chunk, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return s.splitBounded(string(data), defaultPageNumber, defaultSeparators)
}
