package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/doctutor/doctutor/internal/handler"
	appI18n "github.com/doctutor/doctutor/internal/i18n"
	"github.com/doctutor/doctutor/internal/model"
	"github.com/doctutor/doctutor/internal/report"
	"github.com/doctutor/doctutor/internal/session"
	"github.com/doctutor/doctutor/internal/store"
	"github.com/doctutor/doctutor/internal/tutor"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "doctutor",
		Short: "Document-grounded quiz and learning session server",
	}

	serve := serveCmd()
	root.AddCommand(serve, paginateCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `doctutor --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the session orchestrator HTTP server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("tutor-mode", "http", "Tutoring backend (http, llm)")
	f.String("tutor-url", "http://localhost:9000", "Tutoring Service base URL (http mode)")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL (llm mode)")
	f.String("llm-key", "ollama", "API key for LLM (llm mode)")
	f.String("llm-model", "llama3.2", "LLM model name (llm mode)")
	f.StringP("lang", "l", "en", "UI message language (en, ru)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func paginateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paginate",
		Short: "Paginate an explanations JSON file into a printable report",
		RunE:  runPaginate,
	}
	f := cmd.Flags()
	f.StringP("input", "i", "", "Explanations JSON file (required)")
	f.Float64("page-height", 648, "Usable page content height")
	f.Float64("page-width", 468, "Usable page content width")
	f.Float64("top-margin", 0, "Vertical offset lines restart at on a new page")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("DOCTUTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("doctutor")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/doctutor")
	v.AddConfigPath("/etc/doctutor")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// The transcript store is in-memory only: session state does not
	// survive the process.
	db, err := store.New("")
	if err != nil {
		return fmt.Errorf("open transcript store: %w", err)
	}
	defer db.Close()

	svc, err := tutorService(v)
	if err != nil {
		return err
	}

	ctrl := session.New(svc, db)
	h := handler.New(ctrl)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"tutor_mode", v.GetString("tutor-mode"),
		"lang", lang,
	)
	return http.ListenAndServe(addr, r)
}

func tutorService(v *viper.Viper) (tutor.Service, error) {
	mode := strings.ToLower(strings.TrimSpace(v.GetString("tutor-mode")))
	switch mode {
	case "http":
		return tutor.NewClient(v.GetString("tutor-url"), nil), nil
	case "llm":
		llm := tutor.NewLLM(
			v.GetString("llm-url"),
			v.GetString("llm-key"),
			v.GetString("llm-model"),
		)
		if err := llm.Ping(context.Background()); err != nil {
			return nil, fmt.Errorf("LLM health check: %w", err)
		}
		slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))
		return llm, nil
	default:
		return nil, fmt.Errorf("unknown tutor-mode %q (want http or llm)", mode)
	}
}

func runPaginate(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	data, err := os.ReadFile(v.GetString("input"))
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	var explanations []model.Explanation
	if err := json.Unmarshal(data, &explanations); err != nil {
		return fmt.Errorf("parse input: %w", err)
	}

	rep, err := report.Paginate(explanations, report.Layout{
		Height:    v.GetFloat64("page-height"),
		Width:     v.GetFloat64("page-width"),
		TopMargin: v.GetFloat64("top-margin"),
	})
	if err != nil {
		return fmt.Errorf("paginate: %w", err)
	}

	out, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}
