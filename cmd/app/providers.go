package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	chatpdf "github.com/tejasgodse/chatpdf/internal/domain/chatpdf"
	"github.com/tejasgodse/chatpdf/internal/infra/chatpdf/blob"
	"github.com/tejasgodse/chatpdf/internal/infra/chatpdf/catalog"
	"github.com/tejasgodse/chatpdf/internal/infra/chatpdf/chunker"
	"github.com/tejasgodse/chatpdf/internal/infra/chatpdf/embedder"
	"github.com/tejasgodse/chatpdf/internal/infra/chatpdf/extractor"
	"github.com/tejasgodse/chatpdf/internal/infra/chatpdf/llmclient"
	"github.com/tejasgodse/chatpdf/internal/infra/chatpdf/queue"
	"github.com/tejasgodse/chatpdf/internal/infra/chatpdf/vectorindex"
	"github.com/tejasgodse/chatpdf/internal/infra/config"
	"github.com/tejasgodse/chatpdf/internal/infra/llm/chatgpt"
)

func provideChatGPTClient(cfg *config.Config) (*chatgpt.Client, error) {
	return chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
}

func provideBlob(cfg *config.Config, logger *slog.Logger) chatpdf.Blob {
	endpoint := strings.TrimSpace(cfg.ChatPDF.Blob.Endpoint)
	accessKey := strings.TrimSpace(cfg.ChatPDF.Blob.AccessKey)
	secretKey := strings.TrimSpace(cfg.ChatPDF.Blob.SecretKey)
	bucket := strings.TrimSpace(cfg.ChatPDF.Blob.Bucket)
	region := strings.TrimSpace(cfg.ChatPDF.Blob.Region)

	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		logger.Info("chatpdf blob store not fully configured, using memory blob")
		return blob.NewMemoryBlob()
	}
	s3Blob, err := blob.NewS3Blob(endpoint, accessKey, secretKey, bucket, region, logger)
	if err != nil {
		logger.Error("failed to initialize s3 blob, using memory blob", "error", err)
		return blob.NewMemoryBlob()
	}
	logger.Info("chatpdf s3 blob enabled", "endpoint", endpoint, "bucket", bucket)
	return s3Blob
}

func provideCatalog(cfg *config.Config, logger *slog.Logger) chatpdf.Catalog {
	pool := chatpdfPostgresPool(cfg, logger)
	if pool != nil {
		return catalog.NewPostgresCatalog(pool)
	}
	logger.Warn("chatpdf catalog falling back to memory")
	return catalog.NewMemoryCatalog()
}

func provideVectorIndex(cfg *config.Config, logger *slog.Logger) chatpdf.VectorIndex {
	pool := chatpdfPostgresPool(cfg, logger)
	if pool != nil {
		return vectorindex.NewPostgresVectorIndex(pool)
	}
	logger.Warn("chatpdf vector index falling back to memory")
	return vectorindex.NewMemoryVectorIndex()
}

func provideEmbedder(client *chatgpt.Client, cfg *config.Config, logger *slog.Logger) chatpdf.Embedder {
	model := strings.TrimSpace(cfg.LLM.EmbeddingModel)
	if client != nil && model != "" {
		return embedder.NewChatGPTEmbedder(client, model, cfg.ChatPDF.EmbedMaxRetries, cfg.ChatPDF.EmbedBaseDelay, logger)
	}
	logger.Warn("embedding client unavailable, using deterministic embedder")
	return embedder.NewDeterministicEmbedder(cfg.ChatPDF.VectorDim)
}

func provideLLM(client *chatgpt.Client, cfg *config.Config, logger *slog.Logger) chatpdf.LLM {
	if client == nil {
		logger.Warn("chatgpt client missing, falling back to echo llm")
		return llmclient.EchoLLM{}
	}
	return llmclient.NewChatGPTLLM(client, cfg.LLM.Model, cfg.LLM.Temperature, logger)
}

func provideExtractor() chatpdf.Extractor {
	return extractor.NewPDFExtractor()
}

func provideChunker(cfg *config.Config, logger *slog.Logger) chatpdf.Chunker {
	c, err := chunker.NewWindowChunker(cfg.ChatPDF.ChunkSize, cfg.ChatPDF.ChunkOverlap)
	if err != nil {
		logger.Error("invalid chunker configuration, using defaults", "error", err)
		c, _ = chunker.NewWindowChunker(512, 100)
	}
	return c
}

func provideQueue(cfg *config.Config, logger *slog.Logger) queue.HandlerQueue {
	if cfg.ChatPDF.Redis.Enabled {
		opt, err := buildValkeyOptions(cfg.ChatPDF.Redis.Addr)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to immediate queue", "error", err)
			return queue.NewImmediateQueue(nil)
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to immediate queue", "error", err)
			return queue.NewImmediateQueue(nil)
		}
		logger.Info("chatpdf valkey queue enabled", "addr", cfg.ChatPDF.Redis.Addr)
		return queue.NewValkeyQueue(client, "chatpdf:ingest", logger)
	}
	return queue.NewImmediateQueue(nil)
}

func provideService(blob chatpdf.Blob, cat chatpdf.Catalog, vec chatpdf.VectorIndex, emb chatpdf.Embedder, llm chatpdf.LLM, ext chatpdf.Extractor, chk chatpdf.Chunker, q queue.HandlerQueue, logger *slog.Logger) *chatpdf.Service {
	svc := chatpdf.NewService(blob, cat, vec, emb, llm, ext, chk, vectorindex.ChunkVectorID, logger)
	q.SetHandler(func(ctx context.Context, name string, payload map[string]any) {
		if name != "ingest" {
			return
		}
		rawKey, ok := payload["storage_key"].(string)
		if !ok {
			return
		}
		if _, err := svc.Ingest(ctx, rawKey); err != nil {
			logger.Warn("background ingest failed", "error", err)
		}
	})
	return svc
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	addr = strings.TrimSpace(addr)
	if strings.Contains(addr, "://") {
		opt, err = valkey.ParseURL(addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}

var (
	chatpdfPoolOnce sync.Once
	chatpdfPool     *pgxpool.Pool
)

func chatpdfPostgresPool(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	chatpdfPoolOnce.Do(func() {
		dsn := strings.TrimSpace(cfg.ChatPDF.Postgres.DSN)
		if dsn == "" {
			logger.Info("chatpdf postgres dsn not set, using memory repositories")
			return
		}
		poolConfig, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			logger.Error("invalid chatpdf postgres dsn, using memory repositories", "error", err)
			return
		}
		registerPgVector(poolConfig, logger)
		if cfg.ChatPDF.Postgres.MaxConns > 0 {
			poolConfig.MaxConns = cfg.ChatPDF.Postgres.MaxConns
		}
		if cfg.ChatPDF.Postgres.MinConns > 0 {
			poolConfig.MinConns = cfg.ChatPDF.Postgres.MinConns
		}
		pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
		if err != nil {
			logger.Error("failed to initialize chatpdf postgres pool, using memory repositories", "error", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			logger.Error("chatpdf postgres ping failed, using memory repositories", "error", err)
			pool.Close()
			return
		}
		logger.Info("chatpdf postgres repository enabled")
		chatpdfPool = pool
	})
	return chatpdfPool
}

func registerPgVector(poolConfig *pgxpool.Config, logger *slog.Logger) {
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		var oid uint32
		if err := conn.QueryRow(ctx, "SELECT 'vector'::regtype::oid").Scan(&oid); err != nil {
			logger.Error("failed to lookup pgvector oid", "error", err)
			return err
		}
		conn.TypeMap().RegisterType(&pgtype.Type{
			Name:  "vector",
			OID:   oid,
			Codec: pgtype.TextCodec{},
		})
		return nil
	}
}
