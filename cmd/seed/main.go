package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"casefile/internal/app"
	"casefile/internal/config"
	models "casefile/internal/domain/models/editing"
	editingSvc "casefile/internal/domain/services/editing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Fixtures is the seed file format
type Fixtures struct {
	Documents []DocumentFixture `yaml:"documents"`
}

// DocumentFixture describes one document and its history
type DocumentFixture struct {
	Name       string           `yaml:"name"`
	Author     string           `yaml:"author"`
	AuthorName string           `yaml:"author_name"`
	Versions   []VersionFixture `yaml:"versions"`
}

// VersionFixture is one saved state; the first one creates the document
type VersionFixture struct {
	Content    string            `yaml:"content"`
	Label      string            `yaml:"label"`
	Summary    string            `yaml:"summary"`
	ChangeType models.ChangeType `yaml:"change_type"`
}

// Validate checks a document fixture before anything is written
func (d DocumentFixture) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Name, validation.Required, validation.Length(1, config.MaxDocumentNameLength)),
		validation.Field(&d.Author, validation.Required),
		validation.Field(&d.Versions, validation.Required),
	)
}

func parseFixtures(data []byte) (*Fixtures, error) {
	var fixtures Fixtures
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	if len(fixtures.Documents) == 0 {
		return nil, errors.New("fixtures contain no documents")
	}
	for i, doc := range fixtures.Documents {
		if err := doc.Validate(); err != nil {
			return nil, fmt.Errorf("document %d (%q): %w", i, doc.Name, err)
		}
	}
	return &fixtures, nil
}

func main() {
	fixturesPath := flag.String("fixtures", "", "YAML fixtures file (defaults to the built-in demo documents)")
	dryRun := flag.Bool("dry-run", false, "Validate fixtures without writing anything")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// SAFETY: seeding demo data into production is never intended
	if cfg.Environment == "prod" {
		log.Fatalf("BLOCKED: refusing to seed demo documents in production")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	data := defaultFixtures
	if *fixturesPath != "" {
		if data, err = os.ReadFile(*fixturesPath); err != nil {
			log.Fatalf("Failed to read fixtures: %v", err)
		}
	}
	fixtures, err := parseFixtures(data)
	if err != nil {
		log.Fatalf("Invalid fixtures: %v", err)
	}
	if *dryRun {
		log.Printf("Fixtures valid: %d documents", len(fixtures.Documents))
		return
	}

	if cfg.StoreBackend == "memory" {
		log.Fatalf("STORE_BACKEND=memory: seeded documents would vanish when this command exits")
	}

	ctx := context.Background()
	services, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to set up services: %v", err)
	}
	defer services.Close()

	for _, fixture := range fixtures.Documents {
		doc, err := seedDocument(ctx, services, fixture)
		if err != nil {
			log.Fatalf("Failed to seed %q: %v", fixture.Name, err)
		}
		logger.Info("document seeded",
			"id", doc.ID,
			"name", doc.Name,
			"versions", doc.CurrentVersionNumber,
		)
	}
	log.Printf("Seeded %d documents", len(fixtures.Documents))
}

// seedDocument creates the document from the first version and replays the
// rest as edits under a short-lived lock
func seedDocument(ctx context.Context, services *app.Services, fixture DocumentFixture) (*models.Document, error) {
	doc, _, err := services.Versions.CreateDocument(ctx, &editingSvc.CreateDocumentRequest{
		Name:    fixture.Name,
		Content: fixture.Versions[0].Content,
		UserID:  fixture.Author,
	})
	if err != nil {
		return nil, err
	}
	if len(fixture.Versions) == 1 {
		return doc, nil
	}

	sessionID := "seed-" + uuid.NewString()
	if _, err := services.Locks.Acquire(ctx, &editingSvc.AcquireLockRequest{
		DocumentID: doc.ID,
		HolderID:   fixture.Author,
		HolderName: fixture.AuthorName,
		SessionID:  sessionID,
	}); err != nil {
		return nil, err
	}

	for _, v := range fixture.Versions[1:] {
		req := &editingSvc.CreateVersionRequest{
			DocumentID: doc.ID,
			SessionID:  sessionID,
			UserID:     fixture.Author,
			Content:    v.Content,
			ChangeType: v.ChangeType,
		}
		if v.Label != "" {
			req.Label = &v.Label
		}
		if v.Summary != "" {
			req.Summary = &v.Summary
		}
		if _, err := services.Versions.CreateVersion(ctx, req); err != nil {
			return nil, err
		}
	}

	if err := services.Locks.Release(ctx, doc.ID, fixture.Author, sessionID, models.ReleaseSaveCompleted); err != nil {
		return nil, err
	}
	return services.Versions.GetDocument(ctx, doc.ID)
}
