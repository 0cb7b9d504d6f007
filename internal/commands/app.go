package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/dvloznov/statement-ledger/internal/archive"
	"github.com/dvloznov/statement-ledger/internal/categorizer"
	"github.com/dvloznov/statement-ledger/internal/config"
	infra "github.com/dvloznov/statement-ledger/internal/infra/bigquery"
	"github.com/dvloznov/statement-ledger/internal/ingest"
	"github.com/dvloznov/statement-ledger/internal/ledger"
	"github.com/dvloznov/statement-ledger/internal/logger"
	"github.com/dvloznov/statement-ledger/internal/pipeline"
	"github.com/dvloznov/statement-ledger/internal/sheets"
)

// App holds configuration and the clients shared by commands. Clients are
// created on first use and released by Close.
type App struct {
	Config config.Config
	Out    io.Writer
	Now    func() time.Time

	// Tabular replaces the Google Sheets backend when set.
	Tabular ledger.TabularStore

	storage  *storage.Client
	batchLog *infra.BatchRepository
}

func newApp() *App {
	return &App{Out: os.Stdout, Now: time.Now}
}

// Close releases any clients the commands created.
func (a *App) Close() {
	if a.storage != nil {
		_ = a.storage.Close()
		a.storage = nil
	}
	if a.batchLog != nil {
		_ = a.batchLog.Close()
		a.batchLog = nil
	}
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) googleOptions() []option.ClientOption {
	if a.Config.Sheets.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(a.Config.Sheets.CredentialsFile)}
}

func (a *App) storageClient(ctx context.Context) (*storage.Client, error) {
	if a.storage != nil {
		return a.storage, nil
	}
	client, err := storage.NewClient(ctx, a.googleOptions()...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	a.storage = client
	return client, nil
}

func (a *App) ledgerStore(ctx context.Context) (*ledger.Store, error) {
	tab := a.Tabular
	if tab == nil {
		if a.Config.Sheets.SpreadsheetID == "" {
			return nil, fmt.Errorf("%w: set sheets.spreadsheet_id or LEDGER_SHEETS_SPREADSHEET_ID", ledger.ErrNoStore)
		}
		client, err := sheets.New(ctx, a.Config.Sheets.SpreadsheetID, a.googleOptions()...)
		if err != nil {
			return nil, err
		}
		tab = client
	}
	return ledger.NewStore(tab,
		ledger.WithPartitionStyle(ledger.PartitionStyle(a.Config.Ledger.PartitionStyle)),
		ledger.WithValidation(a.Config.Ledger.Validation),
		ledger.WithClock(a.Now),
	), nil
}

func (a *App) classifier(ctx context.Context) (*categorizer.Classifier, error) {
	c := a.Config.Classifier
	if c.Mode != config.ModeModel {
		return categorizer.New(), nil
	}
	oracle, err := categorizer.NewGeminiOracle(ctx, categorizer.GeminiConfig{
		Project:  c.Project,
		Location: c.Location,
		APIKey:   c.APIKey,
		Model:    c.Model,
		Timeout:  c.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return categorizer.New(categorizer.WithOracle(oracle)), nil
}

func (a *App) batchRepository(ctx context.Context) (*infra.BatchRepository, error) {
	if a.batchLog != nil {
		return a.batchLog, nil
	}
	repo, err := infra.NewBatchRepository(ctx, infra.TableRef{
		Project: a.Config.BatchLog.Project,
		Dataset: a.Config.BatchLog.Dataset,
		Table:   a.Config.BatchLog.Table,
	})
	if err != nil {
		return nil, err
	}
	a.batchLog = repo
	return repo, nil
}

func (a *App) ingestor(ctx context.Context) (*pipeline.Ingestor, error) {
	profiles := ingest.DefaultProfiles()
	if path := a.Config.Ingest.ProfilesFile; path != "" {
		extra, err := ingest.LoadProfiles(path)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, extra...)
	}
	mapper := ingest.NewHeaderMapper(profiles, a.Config.Ingest.HeaderSearchLimit)

	classifier, err := a.classifier(ctx)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{pipeline.WithClock(a.Now)}
	if bucket := a.Config.Archive.Bucket; bucket != "" {
		client, err := a.storageClient(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithArchiver(archive.New(client, bucket)))
	}
	if a.Config.BatchLog.Project != "" {
		repo, err := a.batchRepository(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithBatchLog(repo))
	}

	registry := ingest.DefaultRegistry(mapper, nil)
	return pipeline.NewIngestor(registry, classifier, opts...), nil
}

// readInput loads a local file, stdin for "-", or a gs:// object.
func (a *App) readInput(ctx context.Context, src string) ([]byte, error) {
	switch {
	case src == "-":
		return io.ReadAll(os.Stdin)
	case archive.IsURI(src):
		client, err := a.storageClient(ctx)
		if err != nil {
			return nil, err
		}
		return archive.NewFetcher(client).Fetch(ctx, src)
	default:
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", src, err)
		}
		return data, nil
	}
}

func withLogger(ctx context.Context, level string) context.Context {
	return logger.WithContext(ctx, logger.NewWithLevel(level))
}
