package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"thucydides/internal/ai"
	"thucydides/internal/chunk"
	"thucydides/internal/config"
	"thucydides/internal/model"
	mysqlClient "thucydides/internal/platform/mysql"
	"thucydides/internal/pkg/gutenberg"
	"thucydides/internal/repository"
	"thucydides/internal/vectorstore"
	"thucydides/internal/vectorstore/qdrant"
)

// embedBatchSize is how many chunks go to the embedding API per call.
const embedBatchSize = 32

type book struct {
	FigureName  string
	GutenbergID int
	SourceTitle string
}

// The library is the source of truth for what the RAG corpus contains. Each
// entry pairs a figure with one primary or secondary text.
var library = []book{
	{FigureName: "Marcus Aurelius", GutenbergID: 2680, SourceTitle: "Meditations"},
	{FigureName: "Socrates", GutenbergID: 1657, SourceTitle: "The Apology of Socrates by Plato"},
	{FigureName: "Cleopatra", GutenbergID: 14210, SourceTitle: "Plutarch's Life of Antony"},
}

var seedFigures = []model.Figure{
	{
		Name:        "Marcus Aurelius",
		Title:       "Roman Emperor & Stoic Philosopher",
		Era:         "Roman Empire",
		Avatar:      "https://api.dicebear.com/8.x/adventurer/svg?seed=MarcusAurelius",
		Description: "The Stoic Emperor and last of the Five Good Emperors of Rome.",
		Bio:         "Marcus Aurelius was Roman emperor from 161 to 180 and a Stoic philosopher...",
	},
	{
		Name:        "Socrates",
		Title:       "Athenian Philosopher",
		Era:         "Ancient Greece",
		Avatar:      "https://api.dicebear.com/8.x/adventurer/svg?seed=Socrates",
		Description: "A founder of Western philosophy, known for his method of questioning.",
		Bio:         "Socrates was a Greek philosopher from Athens who is credited as the founder of Western philosophy...",
	},
	{
		Name:        "Cleopatra",
		Title:       "Last Pharaoh of Egypt",
		Era:         "Ptolemaic Egypt",
		Avatar:      "https://api.dicebear.com/8.x/adventurer/svg?seed=Cleopatra",
		Description: "The last active ruler of the Ptolemaic Kingdom of Egypt.",
		Bio:         "Cleopatra VII Philopator was Queen of the Ptolemaic Kingdom of Egypt from 51 to 30 BC...",
	},
}

func main() {
	recreate := flag.Bool("recreate", false, "drop and recreate the vector collection before indexing")
	seed := flag.Bool("seed", false, "upsert the figure catalog rows in MySQL")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if cfg.Gemini.APIKey == "" {
		log.Fatal("GOOGLE_API_KEY is not set")
	}

	if *seed {
		if err := seedCatalog(ctx, cfg); err != nil {
			log.Fatalf("seed figures failed: %v", err)
		}
	}

	store := qdrant.New(qdrant.Config{
		URL:        cfg.Qdrant.URL,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
	})
	if *recreate {
		log.Printf("recreating collection %q", cfg.Qdrant.Collection)
		if err := store.Recreate(ctx); err != nil {
			log.Fatalf("recreate collection failed: %v", err)
		}
	} else if err := store.EnsureCollection(ctx); err != nil {
		log.Fatalf("ensure collection failed: %v", err)
	}

	aiService := ai.NewService(
		ai.NewGeminiClient(),
		ai.GenerationConfig{},
		ai.EmbeddingConfig{
			BaseURL: cfg.Gemini.BaseURL,
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.EmbeddingModel,
		},
	)

	httpClient := &http.Client{Timeout: 2 * time.Minute}
	for _, b := range library {
		if err := indexBook(ctx, httpClient, aiService, store, b); err != nil {
			log.Fatalf("index %q failed: %v", b.SourceTitle, err)
		}
	}
	log.Print("ingestion complete")
}

func indexBook(
	ctx context.Context,
	httpClient *http.Client,
	aiService *ai.Service,
	store *qdrant.Store,
	b book,
) error {
	log.Printf("processing %q for %s (book id %d)", b.SourceTitle, b.FigureName, b.GutenbergID)

	raw, err := gutenberg.Download(ctx, httpClient, b.GutenbergID)
	if err != nil {
		return err
	}
	cleaned := gutenberg.Clean(raw)

	chunks, err := chunk.Split(cleaned, chunk.DefaultSize, chunk.DefaultOverlap)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		log.Printf("no chunks generated for book %d, skipping", b.GutenbergID)
		return nil
	}
	log.Printf("split into %d chunks, indexing in batches of %d", len(chunks), embedBatchSize)

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vectors, err := aiService.EmbedDocuments(ctx, texts)
		if err != nil {
			return err
		}

		docs := make([]vectorstore.IndexedDocument, len(batch))
		for i, c := range batch {
			docs[i] = vectorstore.IndexedDocument{
				ID:         uuid.NewString(),
				FigureName: b.FigureName,
				SourceName: b.SourceTitle,
				Text:       c.Text,
				Vector:     vectors[i],
			}
		}
		if err := store.Upsert(ctx, docs); err != nil {
			return err
		}
		log.Printf("indexed %d/%d chunks of %q", end, len(chunks), b.SourceTitle)
	}
	return nil
}

func seedCatalog(ctx context.Context, cfg *config.Config) error {
	db, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(&model.Figure{}); err != nil {
		return err
	}

	figureRepo := repository.NewFigureRepository(db)
	for i := range seedFigures {
		if err := figureRepo.Upsert(&seedFigures[i]); err != nil {
			return err
		}
		log.Printf("seeded figure %q", seedFigures[i].Name)
	}
	return nil
}
