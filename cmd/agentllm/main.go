// Copyright 2025 The AgentLLM Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command agentllm runs the agent integration layer: an OpenAI-style
// dispatch server for completion proxies, or a direct terminal chat
// against one agent.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/agentllm/agentllm/pkg/agents"
	"github.com/agentllm/agentllm/pkg/config"
	"github.com/agentllm/agentllm/pkg/configurator"
	"github.com/agentllm/agentllm/pkg/credstore"
	"github.com/agentllm/agentllm/pkg/knowledge"
	"github.com/agentllm/agentllm/pkg/logger"
	"github.com/agentllm/agentllm/pkg/runtime"
	"github.com/agentllm/agentllm/pkg/server"
	"github.com/agentllm/agentllm/pkg/wrapper"
)

// CLI defines the command surface.
type CLI struct {
	Serve   ServeCmd   `cmd:"" help:"Start the OpenAI-compatible dispatch server."`
	Chat    ChatCmd    `cmd:"" help:"Chat with one agent in the terminal."`
	Version VersionCmd `cmd:"" help:"Show version information."`

	EnvFile   string `help:"Path to an additional .env file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." env:"LOG_LEVEL" default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)." env:"LOG_FILE"`
	LogFormat string `help:"Log format (text or json)." default:"text"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(*appContext) error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("agentllm version %s\n", version)
	return nil
}

// appContext carries the resolved dependencies into commands.
type appContext struct {
	cfg   *config.Config
	store credstore.Store
}

func (a *appContext) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

// buildDeps assembles the registry dependencies. The embedder is
// optional; without an API key, knowledge-backed agents simply run
// without their knowledge base.
func (a *appContext) buildDeps(ctx context.Context) agents.Deps {
	deps := agents.Deps{Store: a.store, Cfg: a.cfg}
	if a.cfg.GeminiAPIKey != "" {
		embedder, err := knowledge.NewGeminiEmbedder(ctx, a.cfg.GeminiAPIKey, "")
		if err != nil {
			logger.Default().Warn("knowledge base disabled", "error", err)
		} else {
			deps.Embedder = embedder
		}
	}
	return deps
}

func (a *appContext) builder() (runtime.Builder, error) {
	if a.cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY (or GOOGLE_API_KEY) is required")
	}
	return runtime.NewGeminiBuilder(a.cfg.GeminiAPIKey)
}

// ServeCmd starts the HTTP dispatch server.
type ServeCmd struct {
	Addr string `help:"Listen address." default:":4000"`
}

func (c *ServeCmd) Run(app *appContext) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	builder, err := app.builder()
	if err != nil {
		return err
	}

	registry := agents.NewRegistry(app.buildDeps(ctx))

	var opts []server.Option
	if app.cfg.MaxToolResultLength > 0 {
		opts = append(opts, server.WithMaxToolResultLength(app.cfg.MaxToolResultLength))
	}

	srv := server.New(registry, builder, opts...)
	return srv.ListenAndServe(ctx, c.Addr)
}

// ChatCmd runs an interactive terminal loop against one agent.
type ChatCmd struct {
	Agent   string `arg:"" help:"Agent name (e.g. demo-agent)."`
	User    string `help:"User ID for credential scoping." default:"local"`
	Session string `help:"Session ID." default:"terminal"`
}

func (c *ChatCmd) Run(app *appContext) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	builder, err := app.builder()
	if err != nil {
		return err
	}

	registry := agents.NewRegistry(app.buildDeps(ctx))
	def, err := registry.Get(c.Agent)
	if err != nil {
		return err
	}

	wrap := wrapper.New(configurator.New(def, builder, c.User, c.Session))

	fmt.Printf("Chatting with %s (%s). Type 'exit' to quit.\n", def.Name(), def.Description())

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		if message == "exit" || message == "quit" {
			break
		}

		for chunk := range wrap.RunStream(ctx, message) {
			fmt.Print(chunk.Text)
		}
		fmt.Println()

		if ctx.Err() != nil {
			break
		}
	}
	return scanner.Err()
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("agentllm"),
		kong.Description("AgentLLM - purpose-built agents behind a completion proxy"),
		kong.UsageOnError(),
	)

	if err := config.LoadDotEnv(cli.EnvFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load environment: %v\n", err)
		os.Exit(1)
	}

	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	output := os.Stderr
	if cli.LogFile != "" {
		file, cleanup, err := logger.OpenLogFile(cli.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		output = file
	}
	logger.Init(level, output, cli.LogFormat)

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	store, err := credstore.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open credential store: %v\n", err)
		os.Exit(1)
	}

	app := &appContext{cfg: cfg, store: store}
	defer app.close()

	err = kctx.Run(app)
	kctx.FatalIfErrorf(err)
}
