package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"study-stream/internal/assistant"
	"study-stream/internal/config"
	"study-stream/internal/db"
	"study-stream/internal/embedding"
	"study-stream/internal/filetype"
	"study-stream/internal/helper"
	"study-stream/internal/llmservice"
	"study-stream/internal/models"
	"study-stream/internal/parser"
	"study-stream/internal/prompt"
	"study-stream/internal/rag"
	"study-stream/internal/tui"
	"study-stream/internal/vectordb"
)

const (
	configFilePath = "./configs/config.yaml"
	transcriptSize = 50
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Path to a document file to ingest")
	query := flag.String("query", "", "Question to be answered against the ingested documents")
	chat := flag.Bool("chat", false, "Open the interactive chat panel")
	saveNote := flag.String("save-note", "", "Note text to save for the default subject")
	showNote := flag.Bool("show-note", false, "Print the note of the default subject")
	removeID := flag.Int64("remove", 0, "ID of a document record to remove")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Secrets and the database DSN may live in a .env file.
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	log.Debug().Interface("config", cfg).Msg("Loaded config")

	// run owns the deferred cleanup; exiting from main keeps the
	// database handle closed on every path.
	if err := run(context.Background(), cfg, *filePath, *query, *chat, *saveNote, *showNote, *removeID); err != nil {
		log.Fatal().Err(err).Msg("study-stream failed")
	}
}

func run(ctx context.Context, cfg *config.Config, filePath, query string, chat bool, saveNote string, showNote bool, removeID int64) error {
	app, err := buildApp(ctx, cfg)
	if err != nil {
		// Includes a store that could not be opened: the application
		// cannot run without its knowledge base.
		return err
	}
	defer app.close()

	switch {
	case filePath != "":
		return ingestFile(ctx, app, filePath)
	case query != "":
		return askOnce(ctx, app, query)
	case chat:
		return runChat(ctx, app)
	case saveNote != "":
		return saveSubjectNote(ctx, app, saveNote)
	case showNote:
		return showSubjectNote(ctx, app)
	case removeID != 0:
		return removeDocument(ctx, app, removeID)
	default:
		return fmt.Errorf("provide one of: -file, -query, -chat, -save-note, -show-note or -remove")
	}
}

// app bundles the wired core so the command handlers stay thin.
type app struct {
	assistant *assistant.Assistant
	repo      *db.StudyRepo
	store     *vectordb.Store
	sqldb     interface{ Close() error }
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		return nil, fmt.Errorf("initializing embedder: %w", err)
	}

	if err := helper.CreateFolder(cfg.RAG.PersistDir); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", models.ErrStoreUnavailable, cfg.RAG.PersistDir, err)
	}
	store, err := vectordb.Open(embedder, cfg.EmbedLLM.Model, cfg.RAG.CollectionName, cfg.RAG.PersistDir)
	if err != nil {
		return nil, err
	}

	llm, err := llmservice.NewClient(&cfg.ChatLLM)
	if err != nil {
		return nil, fmt.Errorf("initializing LLM client: %w", err)
	}

	templateType, err := prompt.ParseTemplateType(cfg.RAG.Template)
	if err != nil {
		return nil, err
	}
	spec := prompt.Spec{
		SystemPrompt: cfg.SystemPrompt,
		Template:     templateType,
		UseHistory:   cfg.RAG.UseHistory,
	}
	qaService := rag.NewQAService(store, llm, spec, cfg.RAG.TopK)
	splitter := parser.NewSplitter(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)

	sqldb, err := db.ConnectDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to study database: %w", err)
	}
	bunDB := db.NewDB(sqldb, cfg.Database.Debug)
	if err := db.InitDB(ctx, bunDB); err != nil {
		return nil, fmt.Errorf("initializing study database: %w", err)
	}
	repo := db.NewStudyRepo(bunDB)

	return &app{
		assistant: assistant.New(splitter, store, qaService, repo, repo),
		repo:      repo,
		store:     store,
		sqldb:     sqldb,
	}, nil
}

func (a *app) close() {
	if err := a.sqldb.Close(); err != nil {
		log.Warn().Err(err).Msg("Error closing study database")
	}
}

// defaultSubject is where CLI-registered documents and notes land: the
// first subject of the first school.
func defaultSubject(ctx context.Context, a *app) (*db.Subject, error) {
	schools, err := a.repo.FetchSchools(ctx)
	if err != nil {
		return nil, err
	}
	if len(schools) == 0 || len(schools[0].Subjects) == 0 {
		return nil, fmt.Errorf("no subject to work with")
	}
	return schools[0].Subjects[0], nil
}

// ingestFile registers the file as a document under the default subject
// and runs it through the ingestion pipeline.
func ingestFile(ctx context.Context, a *app, path string) error {
	ft, ok := filetype.FromFileName(path)
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrUnsupportedFileType, path)
	}

	subject, err := defaultSubject(ctx, a)
	if err != nil {
		return fmt.Errorf("attaching document: %w", err)
	}

	doc := &db.Document{
		SubjectID: subject.ID,
		Name:      filepath.Base(path),
		FilePath:  path,
		FileType:  int16(ft),
		Status:    models.StatusNew,
	}
	if err := a.repo.CreateDocument(ctx, doc); err != nil {
		return fmt.Errorf("registering document: %w", err)
	}

	if err := a.assistant.Ingest(ctx, doc.ID); err != nil {
		return fmt.Errorf("ingesting %s: %w", path, err)
	}
	log.Info().Str("file", path).Int("chunks_total", a.store.Count()).Msg("Document ingested")
	return nil
}

func askOnce(ctx context.Context, a *app, question string) error {
	result, err := a.assistant.Ask(ctx, question)
	if err != nil {
		return err
	}

	fmt.Printf("Question:\n%s\n\n", result.Question)
	fmt.Printf("Answer:\n%s\n\n", result.Answer)
	fmt.Println("Sources:")
	for _, source := range result.Sources {
		fmt.Printf("  - %s (page %d, chunk %d)\n", source.Source, source.PageNumber, source.ChunkID)
	}
	return nil
}

// runChat restores the persisted conversation into the panel before
// handing over the terminal.
func runChat(ctx context.Context, a *app) error {
	messages, err := a.assistant.Transcript(ctx, transcriptSize)
	if err != nil {
		log.Warn().Err(err).Msg("Could not restore the conversation")
	}
	model := tui.New(a.assistant, tui.TranscriptLines(messages))
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("chat panel failed: %w", err)
	}
	return nil
}

func saveSubjectNote(ctx context.Context, a *app, text string) error {
	subject, err := defaultSubject(ctx, a)
	if err != nil {
		return err
	}
	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return err
	}
	if err := a.repo.SaveNote(ctx, &db.Note{SubjectID: subject.ID, JSONContent: content}); err != nil {
		return fmt.Errorf("saving note: %w", err)
	}
	log.Info().Int64("subject", subject.ID).Msg("Note saved")
	return nil
}

func showSubjectNote(ctx context.Context, a *app) error {
	subject, err := defaultSubject(ctx, a)
	if err != nil {
		return err
	}
	note, err := a.repo.GetNote(ctx, subject.ID)
	if err != nil {
		return err
	}
	var content map[string]string
	if err := json.Unmarshal(note.JSONContent, &content); err != nil {
		return err
	}
	fmt.Println(content["text"])
	return nil
}

// removeDocument deletes only the record; ingested vectors stay in the
// store.
func removeDocument(ctx context.Context, a *app, id int64) error {
	if err := a.repo.DeleteDocument(ctx, id); err != nil {
		return err
	}
	log.Info().Int64("document", id).Msg("Document record removed")
	return nil
}
