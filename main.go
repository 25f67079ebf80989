package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/xiehust/mem0/auth"
	"github.com/xiehust/mem0/configs"
	"github.com/xiehust/mem0/memory"
	"github.com/xiehust/mem0/models"
	"github.com/xiehust/mem0/restclient"
	"github.com/xiehust/mem0/storage"
	"github.com/xiehust/mem0/vectorstores"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml configuration")
	add := flag.String("add", "", "text to store as a new memory")
	search := flag.String("search", "", "query to search stored memories")
	limit := flag.Int("limit", 5, "maximum number of search results")
	flag.Parse()

	ctx := context.Background()

	cfg, err := configs.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("❌ Error loading configuration: %v", err)
	}

	model, err := buildModel(ctx, cfg.Model)
	if err != nil {
		log.Fatalf("❌ Error building model client: %v", err)
	}

	vectors, err := buildVectorStore(ctx, cfg.VectorStore)
	if err != nil {
		log.Fatalf("❌ Error building vector store: %v", err)
	}

	var history storage.Interface
	if cfg.HistoryDBPath != "" {
		sqlite, err := storage.NewSQLiteStorage(cfg.HistoryDBPath)
		if err != nil {
			log.Fatalf("❌ Error opening history db: %v", err)
		}
		defer sqlite.Close()
		history = sqlite
	}

	mem := memory.New(model, vectors, history, cfg.VectorStore.Dimensions,
		vectorstores.DistanceMetric(cfg.VectorStore.Metric))

	if err = mem.Init(ctx); err != nil {
		log.Fatalf("❌ Error provisioning index: %v", err)
	}
	log.Printf("✅ Index %q ready", cfg.VectorStore.Index)

	if *add != "" {
		id, err := mem.Add(ctx, *add, nil)
		if err != nil {
			log.Fatalf("❌ Error adding memory: %v", err)
		}
		log.Printf("✅ Memory stored with id %s", id)
	}

	if *search != "" {
		items, err := mem.Search(ctx, *search, *limit, nil)
		if err != nil {
			log.Fatalf("❌ Error searching memories: %v", err)
		}
		for _, item := range items {
			score := float64(0)
			if item.Score != nil {
				score = *item.Score
			}
			fmt.Printf("%.4f  %s  %s\n", score, item.ID, item.Text)
		}
	}
}

func buildAuthenticator(ctx context.Context, cfg configs.VectorStoreConfig) (restclient.Authenticator, error) {
	switch {
	case cfg.UseIAM:
		awsCfg, err := auth.LoadAWSConfig(ctx, cfg.Region, cfg.AccessKey, cfg.SecretKey)
		if err != nil {
			return nil, err
		}
		return auth.NewSigV4(awsCfg.Credentials, cfg.Region), nil
	case cfg.SecretARN != "":
		awsCfg, err := auth.LoadAWSConfig(ctx, cfg.Region, cfg.AccessKey, cfg.SecretKey)
		if err != nil {
			return nil, err
		}
		return auth.ResolveSecret(ctx, secretsmanager.NewFromConfig(awsCfg), cfg.SecretARN)
	default:
		return auth.BasicAuth{Username: cfg.Username, Password: cfg.Password}, nil
	}
}

func buildVectorStore(ctx context.Context, cfg configs.VectorStoreConfig) (vectorstores.Store, error) {
	switch cfg.Provider {
	case "qdrant":
		return vectorstores.NewQdrantStore(cfg.Host, cfg.Port, cfg.Index)
	default:
		authenticator, err := buildAuthenticator(ctx, cfg)
		if err != nil {
			return nil, err
		}
		rest := restclient.NewRestClient(cfg.Host, nil, authenticator)
		return vectorstores.NewOpenSearchStore(rest, cfg.Index), nil
	}
}

func buildModel(ctx context.Context, cfg configs.ModelConfig) (models.Interface, error) {
	switch cfg.Provider {
	case "openai":
		rest := restclient.NewRestClient(cfg.BaseURL, nil, nil)
		return models.NewOpenAIClient(rest, cfg.Model, cfg.EmbeddingModel), nil
	default:
		awsCfg, err := auth.LoadAWSConfig(ctx, cfg.Region, cfg.AccessKey, cfg.SecretKey)
		if err != nil {
			return nil, err
		}
		return models.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.Model, cfg.EmbeddingModel), nil
	}
}
