package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-stream/internal/filetype"
	"study-stream/internal/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSplit_TextProducesOrderedChunks(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "Paragraph %02d about a distinct study topic with enough words to matter.\n\n", i)
	}
	original := b.String()
	path := writeFile(t, "notes.txt", original)

	s := NewSplitter(200, 20)
	chunks, err := s.Split(path, filetype.Text)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	// Chunks must appear in source order with sequential ids.
	lastPos := -1
	for i, chunk := range chunks {
		assert.Equal(t, i+1, chunk.ChunkID)
		assert.Equal(t, path, chunk.Source)
		pos := strings.Index(original, chunk.Content)
		require.GreaterOrEqual(t, pos, 0, "chunk %d not found in source", i)
		assert.GreaterOrEqual(t, pos, lastPos, "chunk %d out of order", i)
		lastPos = pos
	}
}

func TestSplit_ChunksRespectSizeBound(t *testing.T) {
	path := writeFile(t, "big.txt", strings.Repeat("word ", 2000))
	s := NewSplitter(300, 30)
	chunks, err := s.Split(path, filetype.Text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk.Content), 300)
	}
}

func TestSplit_Markdown(t *testing.T) {
	md := "# Biology\n\nCells are the basic unit of life.\n\n## Mitosis\n\nMitosis is cell division producing two identical cells.\n"
	path := writeFile(t, "bio.md", md)

	s := NewSplitter(1000, 100)
	chunks, err := s.Split(path, filetype.Markdown)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	joined := ""
	for _, chunk := range chunks {
		joined += chunk.Content + "\n"
	}
	assert.Contains(t, joined, "Cells are the basic unit of life")
	assert.Contains(t, joined, "Mitosis is cell division")
	assert.NotContains(t, joined, "## ") // markup stripped
}

func TestSplit_CSVRowWise(t *testing.T) {
	csv := "name,score\nalice,90\nbob,85\n"
	path := writeFile(t, "grades.csv", csv)

	s := NewSplitter(1000, 100)
	chunks, err := s.Split(path, filetype.CSV)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Contains(t, chunks[0].Content, "alice")
	assert.Contains(t, chunks[0].Content, "bob")
}

func TestSplit_CodeBreaksAtDeclarations(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "def handler_%d(request):\n    value = compute_%d(request)\n    return value\n\n", i, i)
	}
	path := writeFile(t, "views.py", b.String())

	s := NewSplitter(250, 25)
	chunks, err := s.Split(path, filetype.Python)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
}

func TestSplit_FallbackOnMalformedFormat(t *testing.T) {
	// Not a real PDF: the format loader fails and the generic text
	// fallback must still produce chunks.
	path := writeFile(t, "broken.pdf", "plain text pretending to be a pdf, still readable")

	s := NewSplitter(1000, 100)
	chunks, err := s.Split(path, filetype.PDF)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Contains(t, chunks[0].Content, "still readable")
}

func TestSplit_EmptyFileFails(t *testing.T) {
	path := writeFile(t, "empty.txt", "")
	s := NewSplitter(1000, 100)
	_, err := s.Split(path, filetype.Text)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrIngestion))
}

func TestSplit_MissingFileFails(t *testing.T) {
	s := NewSplitter(1000, 100)
	_, err := s.Split(filepath.Join(t.TempDir(), "missing.txt"), filetype.Text)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrIngestion))
}

func TestSplit_RTFStripsControlWords(t *testing.T) {
	rtf := `{\rtf1\ansi\deff0 {\fonttbl {\f0 Times;}}\f0\fs24 Photosynthesis converts light into energy.\par}`
	path := writeFile(t, "essay.rtf", rtf)

	s := NewSplitter(1000, 100)
	chunks, err := s.Split(path, filetype.RichText)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Contains(t, chunks[0].Content, "Photosynthesis converts light into energy")
	assert.NotContains(t, chunks[0].Content, `\rtf`)
}

func TestSplit_HTMLStripsMarkup(t *testing.T) {
	html := "<html><body><h1>Chemistry</h1><p>Atoms bond to form molecules.</p></body></html>"
	path := writeFile(t, "chem.html", html)

	s := NewSplitter(1000, 100)
	chunks, err := s.Split(path, filetype.HTML)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	joined := ""
	for _, chunk := range chunks {
		joined += chunk.Content
	}
	assert.Contains(t, joined, "Atoms bond to form molecules")
	assert.NotContains(t, joined, "<p>")
}
