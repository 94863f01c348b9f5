// Package main is the askpdf CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/askpdf/internal/cache"
	"github.com/hyperjump/askpdf/internal/cli"
	"github.com/hyperjump/askpdf/internal/config"
	"github.com/hyperjump/askpdf/internal/embedding"
	"github.com/hyperjump/askpdf/internal/generation"
	"github.com/hyperjump/askpdf/internal/models"
	"github.com/hyperjump/askpdf/internal/rag"
	"github.com/hyperjump/askpdf/internal/server"
	"github.com/hyperjump/askpdf/internal/storage"
	"github.com/hyperjump/askpdf/internal/vector"
	"github.com/hyperjump/askpdf/internal/watcher"
	"github.com/hyperjump/askpdf/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/askpdf/config.yaml"

// loadConfig loads config from path. With the default path, config.yaml in the
// current directory wins when present, and a missing default file falls back to
// defaults plus ASKPDF_* variables. Returns the path actually loaded, or "".
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			cfg, envErr := config.FromEnv()
			return cfg, "", envErr
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "summarize":
		runSummarize()
	case "passages":
		runPassages()
	case "simplify":
		runTransform("simplify")
	case "translate":
		runTransform("translate")
	case "chat":
		runChat()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("askpdf version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// commonFlags are shared by every subcommand that runs the pipeline.
type commonFlags struct {
	configPath *string
	debug      *bool
	output     *string
	serverURL  *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		configPath: fs.String("config", defaultConfigPath, "config file path"),
		debug:      fs.Bool("debug", false, "enable debug logging"),
		output:     fs.String("output", "text", "output format: text or json"),
		serverURL:  fs.String("server", "", "askpdf server URL; empty runs the pipeline in-process"),
	}
}

// setup loads config and a logger for a subcommand. It exits on failure.
func setup(f commonFlags) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(*f.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || *f.debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	f := addCommonFlags(fs)
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger := setup(f)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug || *f.debug),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	inbox := watcher.NewInbox(components.Pipeline, components.Cache, logger)
	watchSvc := watcher.NewWatcher(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		inbox.Rebuild,
		watcher.WithLogger(logger),
		watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMillis)*time.Millisecond),
	)
	if err := watchSvc.Start(ctx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	go watchSvc.Rescan(ctx)

	srv := server.NewServer(
		components.Pipeline,
		components.Cache,
		cfg,
		logger,
		server.WithStorage(components.Storage),
		server.WithWatch(watchSvc, inbox, resolvedConfigPath),
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")
	watchSvc.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

// documentArgs splits positional args into files and the remaining text.
// Files come first; the text starts at the first argument that is not an existing file.
func documentArgs(args []string) (files []string, text string) {
	i := 0
	for ; i < len(args); i++ {
		info, err := os.Stat(args[i])
		if err != nil || info.IsDir() {
			break
		}
		files = append(files, args[i])
	}
	return files, buildQuery(args[i:])
}

// buildQuery joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after positionals
// to the front so that flag.Parse sees them.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// loadCorpus extracts files and returns their corpus, reusing a stored index when present.
func loadCorpus(ctx context.Context, c *Components, files []string) (*cache.Corpus, error) {
	docs, err := c.Pipeline.Indexer().LoadFiles(files)
	if err != nil {
		return nil, err
	}
	corpus, reused, err := c.Cache.GetOrBuild(ctx, docs, func(ctx context.Context) (vector.Index, error) {
		return c.Pipeline.BuildDocuments(ctx, docs)
	})
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("corpus ready", zap.String("key", corpus.Key), zap.Bool("reused", reused), zap.Int("chunks", corpus.Index.Len()))
	return corpus, nil
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	f := addCommonFlags(fs)
	topK := fs.Int("top-k", 0, "number of supporting chunks (0 = config default)")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: askpdf ask [flags] <file>... <question>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(os.Args[2:]))

	files, question := documentArgs(fs.Args())
	if len(files) == 0 || question == "" {
		fs.Usage()
		os.Exit(1)
	}
	format := cli.ParseFormat(*f.output)
	req := &models.AskRequest{Query: question, TopK: *topK}

	if *f.serverURL != "" {
		client := newAPIClient(*f.serverURL)
		key, err := client.upload(files)
		if err != nil {
			fail("Upload failed: %v", err)
		}
		resp, err := client.ask(key, req)
		if err != nil {
			fail("Ask failed: %v", err)
		}
		if err := cli.WriteAnswer(os.Stdout, resp, format); err != nil {
			fail("Output failed: %v", err)
		}
		return
	}

	cfg, _, logger := setup(f)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	corpus, err := loadCorpus(ctx, components, files)
	if err != nil {
		fail("Failed to build index: %v", err)
	}
	start := time.Now()
	result, err := components.Pipeline.Ask(ctx, req, corpus.Index)
	if err != nil {
		fail("Ask failed: %v", err)
	}
	resp := &models.AnswerResponse{AnswerResult: result, QueryTime: time.Since(start).Milliseconds()}
	if err := cli.WriteAnswer(os.Stdout, resp, format); err != nil {
		fail("Output failed: %v", err)
	}
}

func runSummarize() {
	fs := flag.NewFlagSet("summarize", flag.ExitOnError)
	f := addCommonFlags(fs)
	_ = fs.Parse(argsReorder(os.Args[2:]))
	if fs.NArg() == 0 {
		fmt.Fprintf(fs.Output(), "Usage: askpdf summarize [flags] <file>...\n\n")
		fs.PrintDefaults()
		os.Exit(1)
	}
	format := cli.ParseFormat(*f.output)

	if *f.serverURL != "" {
		client := newAPIClient(*f.serverURL)
		key, err := client.upload(fs.Args())
		if err != nil {
			fail("Upload failed: %v", err)
		}
		summary, err := client.summarize(key)
		if err != nil {
			fail("Summarize failed: %v", err)
		}
		_ = cli.WriteText(os.Stdout, summary, format)
		return
	}

	cfg, _, logger := setup(f)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	corpus, err := loadCorpus(ctx, components, fs.Args())
	if err != nil {
		fail("Failed to build index: %v", err)
	}
	summary, err := components.Pipeline.Summarize(ctx, corpus.Index.Chunks())
	if err != nil {
		fail("Summarize failed: %v", err)
	}
	_ = cli.WriteText(os.Stdout, summary, format)
}

func runPassages() {
	fs := flag.NewFlagSet("passages", flag.ExitOnError)
	f := addCommonFlags(fs)
	limit := fs.Int("limit", 10, "maximum number of passages")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: askpdf passages [flags] <file>... <terms>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(os.Args[2:]))

	files, query := documentArgs(fs.Args())
	if len(files) == 0 || query == "" {
		fs.Usage()
		os.Exit(1)
	}
	format := cli.ParseFormat(*f.output)

	if *f.serverURL != "" {
		client := newAPIClient(*f.serverURL)
		key, err := client.upload(files)
		if err != nil {
			fail("Upload failed: %v", err)
		}
		resp, err := client.passages(key, query, *limit)
		if err != nil {
			fail("Passages failed: %v", err)
		}
		_ = cli.WritePassages(os.Stdout, resp, format)
		return
	}

	cfg, _, logger := setup(f)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	corpus, err := loadCorpus(ctx, components, files)
	if err != nil {
		fail("Failed to build index: %v", err)
	}
	passages, err := corpus.Passages()
	if err != nil {
		fail("Passage index failed: %v", err)
	}
	resp, err := components.Pipeline.Passages(ctx, passages, query, *limit)
	if err != nil {
		fail("Passages failed: %v", err)
	}
	_ = cli.WritePassages(os.Stdout, resp, format)
}

// runTransform handles simplify and translate. Text comes from the arguments,
// or from stdin when no arguments are given.
func runTransform(op string) {
	fs := flag.NewFlagSet(op, flag.ExitOnError)
	f := addCommonFlags(fs)
	language := "English"
	if op == "translate" {
		fs.StringVar(&language, "to", "English", "target language")
	}
	_ = fs.Parse(argsReorder(os.Args[2:]))

	text := buildQuery(fs.Args())
	if text == "" {
		data, err := readStdin()
		if err != nil {
			fail("Failed to read stdin: %v", err)
		}
		text = data
	}
	format := cli.ParseFormat(*f.output)

	if *f.serverURL != "" {
		out, err := newAPIClient(*f.serverURL).transform(op, &models.TransformRequest{Text: text, Language: language})
		if err != nil {
			fail("%s failed: %v", op, err)
		}
		_ = cli.WriteText(os.Stdout, out.Text, format)
		return
	}

	cfg, _, logger := setup(f)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx := context.Background()
	var out string
	if op == "translate" {
		out, err = components.Pipeline.Translate(ctx, text, language)
	} else {
		out, err = components.Pipeline.Simplify(ctx, text)
	}
	if err != nil {
		fail("%s failed: %v", op, err)
	}
	_ = cli.WriteText(os.Stdout, out, format)
}

func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	f := addCommonFlags(fs)
	_ = fs.Parse(argsReorder(os.Args[2:]))

	message := buildQuery(fs.Args())
	if message == "" {
		fmt.Fprintf(fs.Output(), "Usage: askpdf chat [flags] <message>\n\n")
		fs.PrintDefaults()
		os.Exit(1)
	}
	format := cli.ParseFormat(*f.output)

	if *f.serverURL != "" {
		reply, err := newAPIClient(*f.serverURL).chat(&models.ChatRequest{Message: message})
		if err != nil {
			fail("Chat failed: %v", err)
		}
		_ = cli.WriteText(os.Stdout, reply, format)
		return
	}

	cfg, _, logger := setup(f)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	reply, err := components.Pipeline.Chat(context.Background(), message, nil)
	if err != nil {
		fail("Chat failed: %v", err)
	}
	_ = cli.WriteText(os.Stdout, reply, format)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	f := addCommonFlags(fs)
	_ = fs.Parse(os.Args[2:])

	if *f.serverURL != "" {
		status, err := newAPIClient(*f.serverURL).status()
		if err != nil {
			fail("Status failed: %v", err)
		}
		printStatus(status)
		return
	}

	cfg, _, logger := setup(f)
	defer logger.Sync()
	if !cfg.Storage.PersistOrDefault() {
		fmt.Println("Persistence disabled; nothing is stored.")
		return
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		fail("Failed to open storage: %v", err)
	}
	defer store.Close()
	ctx := context.Background()
	corpora, err := store.CountCorpora(ctx)
	if err != nil {
		fail("Status failed: %v", err)
	}
	chunks, err := store.CountChunks(ctx)
	if err != nil {
		fail("Status failed: %v", err)
	}
	usage, _ := storage.MeasureDiskUsage(cfg.Storage.DatabasePath, cfg.Storage.UploadDir)
	printStatus(map[string]interface{}{
		"stored_corpora":   corpora,
		"stored_chunks":    chunks,
		"disk_usage_bytes": usage.Total(),
	})
}

func printStatus(status map[string]interface{}) {
	for _, key := range []string{"stored_corpora", "stored_chunks", "disk_usage_bytes", "uptime_seconds"} {
		if v, ok := status[key]; ok {
			fmt.Printf("%-18s %v\n", key+":", v)
		}
	}
}

// Components holds the wired pipeline and its supporting services.
type Components struct {
	Embedder embedding.Embedder
	Pipeline *rag.Pipeline
	Cache    *cache.IndexCache
	Storage  storage.Storage
	Logger   *zap.Logger
}

// Close releases the cache, storage, and embedder.
func (c *Components) Close() {
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	embedder, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	generator, err := generation.New(cfg.Generation, logger)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("generation: %w", err)
	}

	buildOpts := vector.BuildOptions{
		Concurrency: cfg.Embedding.Concurrency,
		Backend:     vector.Backend(cfg.Index.Backend),
		Logger:      logger,
	}
	pipeline := rag.New(embedder, generator,
		rag.WithChunking(cfg.Chunking.ChunkSize, cfg.Chunking.OverlapOrDefault()),
		rag.WithTopK(cfg.Retrieval.TopK),
		rag.WithSummaryPrefix(cfg.Retrieval.SummaryPrefixChars),
		rag.WithGenerationOptions(generation.OptionsFrom(cfg.Generation)),
		rag.WithBuildOptions(buildOpts),
		rag.WithLogger(logger),
	)

	c := &Components{Embedder: embedder, Pipeline: pipeline, Logger: logger}
	cacheOpts := []cache.Option{
		cache.WithBuildOptions(buildOpts),
		cache.WithFingerprint(pipeline.Fingerprint()),
		cache.WithLogger(logger),
	}
	if cfg.Storage.PersistOrDefault() {
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			_ = embedder.Close()
			return nil, fmt.Errorf("storage: %w", err)
		}
		c.Storage = store
		cacheOpts = append(cacheOpts, cache.WithStorage(store))
	}
	c.Cache = cache.New(cfg.Index.CacheMaxBytes, cacheOpts...)

	logger.Info("components initialized",
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("generation_provider", cfg.Generation.Provider),
		zap.String("index_backend", cfg.Index.Backend),
		zap.Bool("persist", cfg.Storage.PersistOrDefault()),
	)
	return c, nil
}

func printUsage() {
	fmt.Println(`askpdf - ask questions about PDF and office documents

Usage:
  askpdf <command> [flags] [arguments]

Commands:
  server      Start the HTTP API (and the inbox watcher when directories are configured)
  ask         Answer a question from the given files: askpdf ask a.pdf b.pdf "question"
  summarize   Summarize the given files
  passages    Find literal passages: askpdf passages a.pdf terms
  simplify    Rewrite text in plain language (arguments or stdin)
  translate   Translate text: askpdf translate -to French "text"
  chat        Send one stateless chat message
  status      Show stored corpora and disk usage
  version     Print the version
  help        Show this help

Common flags:
  -config     config file path (default ` + defaultConfigPath + `)
  -server     use a running askpdf server instead of the in-process pipeline
  -output     text or json
  -debug      enable debug logging`)
}
