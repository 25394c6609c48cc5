package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"jargon-translator/internal/api"
	"jargon-translator/internal/config"
	"jargon-translator/internal/embedding"
	"jargon-translator/internal/helper"
	"jargon-translator/internal/llmservice"
	"jargon-translator/internal/models"
	"jargon-translator/internal/parser"
	"jargon-translator/internal/rag"
	"jargon-translator/internal/translator"
	"jargon-translator/internal/tui"
	"jargon-translator/internal/watsonx"
)

type options struct {
	file      string
	statement string
	role      string
	more      bool
	json      bool
}

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to the config file")
	serve := flag.Bool("serve", false, "Serve the HTTP API instead of the terminal UI")
	var opts options
	flag.StringVar(&opts.file, "file", "", "Path to a document used as context ("+strings.Join(parser.Formats, ", ")+")")
	flag.StringVar(&opts.statement, "statement", "", "Explain this statement and exit")
	flag.StringVar(&opts.role, "role", models.RoleStudent.String(), "Who the explanation is for: student, investor or employee")
	flag.BoolVar(&opts.more, "more", false, "Also print an even simpler explanation")
	flag.BoolVar(&opts.json, "json", false, "Print the result as JSON")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		setupLogger(os.Stderr, "info")
		log.Fatal().Err(err).Msg("Error loading config")
	}

	interactive := !*serve && opts.statement == ""
	out := io.Writer(os.Stderr)
	if interactive {
		// the terminal belongs to the UI
		out = io.Discard
		if cfg.LogFile != "" {
			f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
				os.Exit(1)
			}
			defer f.Close()
			out = f
		}
	}
	setupLogger(out, cfg.LogLevel)
	log.Debug().Str("provider", cfg.Generation.Provider).Str("index", cfg.RAG.Index).Msg("Loaded config")

	svc, err := newService(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing translator")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *serve:
		err = runServer(ctx, cfg.Server.Addr, svc)
	case opts.statement != "":
		err = runOnce(ctx, svc, opts)
	default:
		err = runTUI(ctx, svc)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Exiting")
	}
}

func setupLogger(w io.Writer, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: w != os.Stderr}).With().Caller().Logger()
}

func newService(cfg *config.Config) (*translator.Service, error) {
	gen, err := newGenerator(cfg.Generation)
	if err != nil {
		return nil, err
	}
	factory, err := embedding.NewFactory(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	r := rag.NewRAG(cfg.RAG, factory)
	return translator.NewService(r, gen, r.TopK()), nil
}

func newGenerator(cfg config.GenerationConfig) (translator.Generator, error) {
	switch cfg.Provider {
	case config.ProviderWatsonx:
		return watsonx.NewClient(cfg.Watsonx, cfg.Parameters, cfg.Timeout)
	case config.ProviderOpenAI:
		g, err := llmservice.NewOpenAIGenerator(cfg.OpenAI.LLM(), cfg.Parameters)
		if err != nil {
			return nil, err
		}
		return g.WithTimeout(cfg.Timeout), nil
	case config.ProviderOllama:
		g, err := llmservice.NewOllamaGenerator(cfg.Ollama, cfg.Parameters)
		if err != nil {
			return nil, err
		}
		return g.WithTimeout(cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Provider)
	}
}

func runTUI(ctx context.Context, svc *translator.Service) error {
	m := tui.New(ctx, svc, nil, translator.NewState())
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func runServer(ctx context.Context, addr string, svc *translator.Service) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: api.SetupRouter(api.NewHandler(svc, nil, translator.NewState())),
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		log.Info().Msg("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info().Msg("Server stopped gracefully")
	return nil
}

type result struct {
	Document    *translator.Document `json:"document,omitempty"`
	Warnings    []string             `json:"warnings,omitempty"`
	Explanation models.Explanation   `json:"explanation"`
	Simpler     *models.Explanation  `json:"simpler,omitempty"`
}

func runOnce(ctx context.Context, svc *translator.Service, opts options) error {
	role, err := models.ParseRole(opts.role)
	if err != nil {
		return err
	}

	var res result
	if opts.file != "" {
		parsed, err := parser.ParseFile(opts.file)
		if err != nil {
			return err
		}
		var warnings []string
		res.Document, warnings = svc.LoadDocument(ctx, parsed.Name, parsed.Text)
		res.Warnings = append(parsed.Warnings, warnings...)
	}

	st, out, err := svc.Translate(ctx, translator.NewState(), res.Document, role, opts.statement)
	if err != nil {
		return err
	}
	res.Explanation = out
	res.Warnings = append(res.Warnings, out.Warnings...)

	if opts.more {
		simpler, err := svc.ExplainMore(ctx, st, role)
		if err != nil {
			return err
		}
		res.Simpler = &simpler
	}

	if opts.json {
		return helper.PrettyPrint(os.Stdout, res)
	}

	for _, w := range res.Warnings {
		log.Warn().Msg(w)
	}
	fmt.Printf("Simplified Explanation\n\n%s\n\n", res.Explanation.Content)
	if res.Simpler != nil {
		fmt.Printf("Even Simpler Explanation\n\n%s\n\n", res.Simpler.Content)
	}
	return nil
}
