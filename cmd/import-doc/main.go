package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/josinaldojr/smart-assistant/internal/app"
	"github.com/josinaldojr/smart-assistant/internal/config"
	"github.com/josinaldojr/smart-assistant/internal/ingest"
	"github.com/josinaldojr/smart-assistant/internal/logging"
	"github.com/spf13/cobra"
)

type options struct {
	spreadsheet bool
	file        string
	fromFiles   bool
	path        string
	fromURL     bool
	baseURL     string
	maxPages    int
}

func main() {
	var opts options

	root := &cobra.Command{
		Use:          "import-doc",
		Short:        "Importa documentos para o índice vetorial",
		Long:         `Embeds spreadsheet rows, local documents (.md/.txt/.html/.pdf) or crawled pages and writes them to the configured vector index.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	f := root.Flags()
	f.BoolVar(&opts.spreadsheet, "spreadsheet", false, "importar a planilha configurada (blob ou IMPORT_FILE)")
	f.StringVar(&opts.file, "file", "", "planilha local (.xlsx/.csv); substitui a origem configurada")
	f.BoolVar(&opts.fromFiles, "from-files", false, "importar a partir de arquivos locais (.md/.txt/.html/.pdf)")
	f.StringVar(&opts.path, "path", "", "diretório base para arquivos locais")
	f.BoolVar(&opts.fromURL, "from-url", false, "importar via crawl HTTP")
	f.StringVar(&opts.baseURL, "base-url", "", "URL base para crawl")
	f.IntVar(&opts.maxPages, "max-pages", 50, "limite de páginas para crawl HTTP")

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	if !opts.spreadsheet && opts.file == "" && !opts.fromFiles && !opts.fromURL {
		return errors.New("use pelo menos um modo: --spreadsheet, --file, --from-files ou --from-url")
	}
	if opts.fromFiles && opts.path == "" {
		return errors.New("--path é obrigatório com --from-files")
	}
	if opts.fromURL && opts.baseURL == "" {
		return errors.New("--base-url é obrigatório com --from-url")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.spreadsheet || opts.file != "" {
		importer := a.Importer
		if opts.file != "" {
			importer = ingest.NewImporter(ingest.FileSource{Path: opts.file}, a.Embeddings, a.Index, cfg.EmbeddingDimensions)
		}
		res, err := importer.Run(ctx)
		if err != nil {
			return err
		}
		slog.Info("spreadsheet imported", "imported", res.Imported, "skipped", res.Skipped)
	}

	if opts.fromFiles {
		records, err := ingest.LoadFiles(opts.path)
		if err != nil {
			return err
		}
		res, err := a.Importer.Index(ctx, records)
		if err != nil {
			return err
		}
		slog.Info("files imported", "path", opts.path, "imported", res.Imported, "skipped", res.Skipped)
	}

	if opts.fromURL {
		client := &http.Client{Timeout: 30 * time.Second}
		records, err := ingest.Crawl(ctx, client, opts.baseURL, opts.maxPages)
		if err != nil {
			return err
		}
		res, err := a.Importer.Index(ctx, records)
		if err != nil {
			return err
		}
		slog.Info("pages imported", "base_url", opts.baseURL, "imported", res.Imported, "skipped", res.Skipped)
	}

	slog.Info("importação concluída")
	return nil
}
