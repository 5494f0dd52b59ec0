package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"grindhub/pkg/agent"
	"grindhub/pkg/agent/middleware/metrics"
	"grindhub/pkg/config"
	"grindhub/pkg/dataapi"
	"grindhub/pkg/logx"
	"grindhub/pkg/router"
	"grindhub/pkg/session"
	"grindhub/pkg/version"
)

type rootOptions struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "grindhub",
		Short:         "GrindHub study assistant",
		Long:          `GrindHub routes study questions to specialised assistants backed by a language model and your study records.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	cmd.AddCommand(newChatCmd(opts), newServeCmd(opts), newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// loadConfig reads the dotenv file, the config file and the environment, in that order.
func (o *rootOptions) loadConfig() (config.Config, error) {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return config.Config{}, fmt.Errorf("load %s: %w", o.envFile, err)
		}
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// app is the assembled runtime shared by chat and serve.
type app struct {
	cfg      config.Config
	engine   *router.Engine
	store    session.Store
	data     *dataapi.Client
	usage    *metrics.UsageRecorder
	registry *prometheus.Registry
}

func newApp(cfg config.Config) (*app, error) {
	if err := logx.Configure(logx.Config{
		Level:        logx.Level(cfg.Logging.Level),
		Format:       cfg.Logging.Format,
		DebugDomains: cfg.Logging.DebugDomains,
	}); err != nil {
		return nil, err
	}

	var next metrics.Recorder = metrics.Nop()
	var registry *prometheus.Registry
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		next = metrics.NewPrometheusRecorder(registry)
	}
	usage := metrics.NewUsageRecorder(next)

	client, err := agent.NewLLMClientFactory(cfg.LLM, usage).CreateClient()
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}
	data := dataapi.New(cfg.DataAPI, dataapi.WithRecorder(usage))

	engine, err := router.New(cfg, client, data, usage)
	if err != nil {
		return nil, err
	}
	store, err := session.Open(cfg.Session)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		engine:   engine,
		store:    store,
		data:     data,
		usage:    usage,
		registry: registry,
	}, nil
}

// printUsage writes the token and cost totals for the process.
func (a *app) printUsage(w io.Writer) {
	t := a.usage.Totals()
	if t.RequestCount == 0 {
		return
	}
	fmt.Fprintf(w, "\n%d LLM requests, %d prompt + %d completion tokens, $%.4f\n",
		t.RequestCount, t.PromptTokens, t.CompletionTokens, t.TotalCost)
}
