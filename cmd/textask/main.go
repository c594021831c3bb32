package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/hurttlocker/textask/internal/coda"
	"github.com/hurttlocker/textask/internal/config"
	"github.com/hurttlocker/textask/internal/interpret"
	"github.com/hurttlocker/textask/internal/llm"
	"github.com/hurttlocker/textask/internal/ratelimit"
	"github.com/hurttlocker/textask/internal/server"
	"github.com/hurttlocker/textask/internal/vocab"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "interpret":
		if err := runInterpret(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "config":
		if err := runConfig(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Printf("textask %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`textask — SMS-to-task webhook service

Usage:
  textask serve     [--config <path>] [--listen <addr>] [--oracle <provider/model>] [--db <path>]
  textask interpret [--config <path>] [--oracle <provider/model>] <message...>
  textask config    [--config <path>]
  textask version`)
}

func resolveFlags(fs *flag.FlagSet, args []string) (config.Resolved, error) {
	configPath := fs.String("config", "", "path to config.yaml")
	listen := fs.String("listen", "", "listen address")
	oracle := fs.String("oracle", "", "oracle provider/model")
	dbPath := fs.String("db", "", "rate-limit database path")
	if err := fs.Parse(args); err != nil {
		return config.Resolved{}, err
	}
	return config.Resolve(config.ResolveOptions{
		ConfigPath: *configPath,
		CLIListen:  *listen,
		CLIOracle:  *oracle,
		CLIDBPath:  *dbPath,
	})
}

// buildOracle constructs the enrichment oracle. A missing API key degrades
// to a nil provider: every message still becomes a task, with defaults.
func buildOracle(cfg config.Resolved, logger *zap.Logger) *interpret.Oracle {
	oracleCfg, err := llm.ParseModelFlag(cfg.Oracle.Value)
	if err != nil {
		logger.Warn("invalid oracle model, enrichment disabled", zap.Error(err))
		return interpret.NewOracle(nil, 0)
	}
	oracleCfg.APIKey = cfg.OracleKey.Value
	provider, err := llm.NewProvider(oracleCfg)
	if err != nil {
		logger.Warn("oracle unavailable, enrichment disabled", zap.Error(err))
		return interpret.NewOracle(nil, 0)
	}
	return interpret.NewOracle(provider, 0)
}

func runServe(args []string) error {
	cfg, err := resolveFlags(flag.NewFlagSet("serve", flag.ExitOnError), args)
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	codaClient, err := coda.New(cfg.Coda)
	if err != nil {
		return err
	}

	vocabSource := vocab.NewCached(codaClient, cfg.Vocab.TTL, logger)
	if cfg.Vocab.Refresh != "" {
		if err := vocabSource.StartRefresh(cfg.Vocab.Refresh); err != nil {
			return err
		}
		defer vocabSource.StopRefresh()
	}

	limiter, err := ratelimit.Open(ratelimit.Config{
		DBPath: cfg.DBPath.Value,
		Window: cfg.RateLimit.Window,
		Max:    cfg.RateLimit.Max,
	})
	if err != nil {
		return err
	}
	defer limiter.Close()

	interpreter := interpret.New(
		interpret.NewExtractor(cfg.Shortcuts, loc, nil),
		buildOracle(cfg, logger),
		vocabSource,
	)

	srv := server.New(interpreter, codaClient, limiter, cfg.Twilio, logger)
	logger.Info("listening",
		zap.String("addr", cfg.Listen.Value),
		zap.String("oracle", cfg.Oracle.Value),
		zap.String("config", cfg.ConfigPath),
	)
	return srv.Router().Run(cfg.Listen.Value)
}

// emptyVocab is used by the one-shot CLI when no table store is configured.
type emptyVocab struct{}

func (emptyVocab) Categories(ctx context.Context) ([]interpret.CategoryCandidate, error) {
	return nil, nil
}
func (emptyVocab) Statuses(ctx context.Context) (map[string]string, error) { return nil, nil }
func (emptyVocab) TaskTypes(ctx context.Context) ([]string, error)         { return nil, nil }

func runInterpret(args []string) error {
	fs := flag.NewFlagSet("interpret", flag.ExitOnError)
	cfg, err := resolveFlags(fs, args)
	if err != nil {
		return err
	}
	message := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if message == "" {
		return fmt.Errorf("usage: textask interpret <message...>")
	}

	logger := zap.NewNop()

	var vocabSource interpret.VocabularySource = emptyVocab{}
	if cfg.Coda.Validate() == nil {
		codaClient, err := coda.New(cfg.Coda)
		if err != nil {
			return err
		}
		vocabSource = vocab.NewCached(codaClient, cfg.Vocab.TTL, logger)
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	interpreter := interpret.New(
		interpret.NewExtractor(cfg.Shortcuts, loc, nil),
		buildOracle(cfg, logger),
		vocabSource,
	)

	result, err := interpreter.Interpret(context.Background(), message)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runConfig(args []string) error {
	cfg, err := resolveFlags(flag.NewFlagSet("config", flag.ExitOnError), args)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
