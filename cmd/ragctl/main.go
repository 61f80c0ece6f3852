// Command ragctl is the CLI surface over the retrieval engine: ingest
// a document, delete one, toggle its selection, run a chat query, and
// list a session's documents.
//
// Usage:
//
//	ragctl ingest --session s1 --file paper.pdf
//	ragctl query --session s1 "what is the refund policy?"
//	ragctl list --session s1
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/docuquery/pkg/cache"
	"github.com/kadirpekel/docuquery/pkg/chunk"
	"github.com/kadirpekel/docuquery/pkg/config"
	"github.com/kadirpekel/docuquery/pkg/embed"
	"github.com/kadirpekel/docuquery/pkg/ingest"
	"github.com/kadirpekel/docuquery/pkg/llm"
	"github.com/kadirpekel/docuquery/pkg/logger"
	"github.com/kadirpekel/docuquery/pkg/pipeline"
	"github.com/kadirpekel/docuquery/pkg/rerank"
	"github.com/kadirpekel/docuquery/pkg/sessionstore"
)

// CLI defines ragctl's command-line interface.
type CLI struct {
	Config string `short:"c" help:"Path to config file." type:"path"`

	Ingest IngestCmd `cmd:"" help:"Ingest a PDF into a session (or the shared library)."`
	Delete DeleteCmd `cmd:"" help:"Delete a document by ID."`
	Select SelectCmd `cmd:"" help:"Toggle a document's selection flag."`
	Query  QueryCmd  `cmd:"" help:"Run a chat query against a session."`
	List   ListCmd   `cmd:"" help:"List a session's documents."`
}

// app bundles the wired components every subcommand needs.
type app struct {
	cfg     *config.Config
	store   *sessionstore.Store
	manager *ingest.Manager
	engine  *pipeline.Engine
}

func buildApp(cfgPath string) (*app, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("ragctl: load config: %w", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger.Init(level, os.Stderr, cfg.LogFormat)

	store, err := sessionstore.Open(filepath.Join(cfg.StorageRoot, "metadata.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("ragctl: open sessionstore: %w", err)
	}

	c := cache.New(cfg.Cache.Duration(), cfg.Cache.MaxEntries)
	embedder := embed.Shared()
	chunker, err := chunk.New(cfg.Chunk.ChunkConfig())
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("ragctl: build chunker: %w", err)
	}

	manager := ingest.New(ingest.Paths{Root: cfg.StorageRoot}, store, c, embedder, chunker)
	llmClient := llm.New(cfg.LLM.ClientConfig())
	reranker := rerank.New()

	engine := pipeline.New(llmClient, manager, embedder, reranker)
	engine.Config = cfg.Pipeline.PipelineConfig()

	cleanup := func() { store.Close() }
	return &app{cfg: cfg, store: store, manager: manager, engine: engine}, cleanup, nil
}

// IngestCmd ingests a PDF, stamping it as a session document unless
// --library is set.
type IngestCmd struct {
	Session string `help:"Session ID. Omit with --library for a shared-library document."`
	Library bool   `help:"Ingest into the shared library instead of a session."`
	File    string `required:"" help:"Path to the PDF file." type:"existingfile"`
}

func (c *IngestCmd) Run(cli *CLI) error {
	a, cleanup, err := buildApp(cli.Config)
	if err != nil {
		return err
	}
	defer cleanup()

	var sessionID *string
	if !c.Library {
		if c.Session == "" {
			return fmt.Errorf("ragctl: --session is required unless --library is set")
		}
		sessionID = &c.Session
	}

	doc, err := a.manager.Ingest(context.Background(), sessionID, c.File, filepath.Base(c.File))
	if err != nil {
		return fmt.Errorf("ragctl: ingest: %w", err)
	}
	fmt.Printf("ingested %s (%d pages, %d chunks)\n", doc.ID, doc.PageCount, doc.ChunkCount)
	return nil
}

// DeleteCmd removes a document and rebuilds its owning index directory.
type DeleteCmd struct {
	DocID string `arg:"" help:"Document ID to delete."`
}

func (c *DeleteCmd) Run(cli *CLI) error {
	a, cleanup, err := buildApp(cli.Config)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.manager.Delete(context.Background(), c.DocID); err != nil {
		return fmt.Errorf("ragctl: delete: %w", err)
	}
	fmt.Printf("deleted %s\n", c.DocID)
	return nil
}

// SelectCmd toggles a document's selection flag.
type SelectCmd struct {
	DocID    string `arg:"" help:"Document ID."`
	Selected bool   `default:"true" negatable:"" help:"Selection state to set."`
}

func (c *SelectCmd) Run(cli *CLI) error {
	a, cleanup, err := buildApp(cli.Config)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.store.SetSelected(context.Background(), c.DocID, c.Selected); err != nil {
		return fmt.Errorf("ragctl: select: %w", err)
	}
	fmt.Printf("%s selected=%v\n", c.DocID, c.Selected)
	return nil
}

// QueryCmd runs one query through the pipeline for a session.
type QueryCmd struct {
	Session string `required:"" help:"Session ID."`
	WebMode bool   `name:"web" help:"Force library-only retrieval for this session."`
	Query   string `arg:"" help:"The natural-language query."`
}

func (c *QueryCmd) Run(cli *CLI) error {
	a, cleanup, err := buildApp(cli.Config)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()
	if err := a.store.EnsureSession(ctx, c.Session); err != nil {
		return fmt.Errorf("ragctl: ensure session: %w", err)
	}
	if c.WebMode {
		if err := a.store.SetWebMode(ctx, c.Session, true); err != nil {
			return fmt.Errorf("ragctl: set web mode: %w", err)
		}
	}

	resp, err := a.engine.Run(ctx, c.Session, c.Query)
	if err != nil {
		return fmt.Errorf("ragctl: query: %w", err)
	}

	fmt.Println(resp.Answer)
	for _, src := range resp.Sources {
		fmt.Printf("  - %s (p.%d, %s)\n", src.Filename, src.Page, src.Origin)
	}
	slog.Debug("query complete", "verdict", resp.Verdict, "confident", resp.Confident, "context_verdict", resp.ContextVerdict)
	return nil
}

// ListCmd lists a session's documents.
type ListCmd struct {
	Session string `required:"" help:"Session ID."`
}

func (c *ListCmd) Run(cli *CLI) error {
	a, cleanup, err := buildApp(cli.Config)
	if err != nil {
		return err
	}
	defer cleanup()

	docs, err := a.store.ListSessionDocuments(context.Background(), c.Session)
	if err != nil {
		return fmt.Errorf("ragctl: list: %w", err)
	}
	for _, d := range docs {
		fmt.Printf("%s\t%s\tselected=%v\tchunks=%d\n", d.ID, d.Filename, d.Selected, d.ChunkCount)
	}
	return nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli, kong.Name("ragctl"), kong.Description("Agentic retrieval-augmented question answering over PDF collections."))
	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
