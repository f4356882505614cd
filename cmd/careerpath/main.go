// Command careerpath answers career and course questions through a set of
// LLM agents: general career guidance, knowledge-base grounded course
// catalog lookup, job market analysis, and a combined matching flow.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"

	"careerpath/pkg/agent"
	"careerpath/pkg/agent/middleware/metrics"
	"careerpath/pkg/config"
	"careerpath/pkg/logx"
	"careerpath/pkg/orchestrator"
	"careerpath/pkg/persistence"
)

const version = "0.3.0"

func main() {
	var (
		configPath  string
		mode        string
		goal        string
		sessionID   string
		metricsAddr string
		debug       bool
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "path to YAML config file")
	flag.StringVar(&mode, "mode", orchestrator.ModeCareer, "agent mode: career, catalog, jobmarket, or match")
	flag.StringVar(&goal, "goal", "", "career goal used for matching and degraded recommendations")
	flag.StringVar(&sessionID, "session", "", "resume a stored session by ID")
	flag.StringVar(&metricsAddr, "metrics-addr", "", "listen address for Prometheus metrics (disabled when empty)")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("careerpath %s\n", version)
		return
	}
	if debug {
		logx.SetDebug(true, nil)
	}

	logger := logx.NewLogger("cli")

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("configuration error: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := metrics.Recorder(metrics.Nop())
	if metricsAddr != "" {
		recorder = metrics.NewPrometheusRecorder()
		go serveMetrics(metricsAddr, logger)
	}

	orch, err := orchestrator.New(ctx, cfg, recorder)
	if err != nil {
		logger.Error("failed to build orchestrator: %v", err)
		os.Exit(1)
	}
	for agentMode, cfgErr := range orch.ConstructionFailures() {
		logger.Warn("mode %s will serve degraded responses: %v", agentMode, cfgErr)
	}

	store, err := persistence.Open(cfg.StoragePath)
	if err != nil {
		logger.Error("failed to open transcript store: %v", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	session, err := resumeSession(store, sessionID)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	if err := store.EnsureSession(session.ID()); err != nil {
		logger.Warn("transcript persistence disabled: %v", err)
		_ = store.Close()
		store = nil
	}

	app := &app{
		orch:    orch,
		store:   store,
		session: session,
		mode:    mode,
		goal:    goal,
		logger:  logger,
	}

	// One-shot when a question is given as arguments, REPL otherwise.
	if question := strings.Join(flag.Args(), " "); question != "" {
		if err := app.askOnce(ctx, question); err != nil {
			logger.Error("%v", err)
			os.Exit(1)
		}
		return
	}

	if err := app.repl(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

type app struct {
	orch    *orchestrator.Orchestrator
	store   *persistence.Store
	session *agent.Session
	mode    string
	goal    string
	logger  *logx.Logger
}

func (a *app) askOnce(ctx context.Context, question string) error {
	query := agent.Query{Text: question, Goal: a.goal}
	resp, err := a.orch.Ask(ctx, a.mode, query, a.session)
	if err != nil {
		return err
	}
	a.record(query, resp)
	printResponse(resp)
	return nil
}

func (a *app) repl(ctx context.Context) error {
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if interactive {
		fmt.Printf("careerpath %s (mode %s, session %s)\n", version, a.mode, a.session.ID())
		fmt.Println("Ask a question, or /mode <name>, /info, /quit.")
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if interactive {
			fmt.Printf("[%s] > ", a.mode)
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit", line == "/exit":
			return nil
		case strings.HasPrefix(line, "/mode "):
			a.mode = strings.TrimSpace(strings.TrimPrefix(line, "/mode "))
			continue
		case line == "/info":
			a.printInfo()
			continue
		}

		if err := a.askOnce(ctx, line); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			a.logger.Error("query failed: %v", err)
		}
	}
}

// record appends the exchange to the in-memory session and the transcript
// store. Persistence failure only costs the transcript.
func (a *app) record(query agent.Query, resp orchestrator.Response) {
	result := agent.Result{
		Kind:      parseKind(resp.Mode),
		Text:      resp.Text,
		Citations: resp.Citations,
		Reason:    resp.Reason,
	}
	a.session.Append(query, result)

	if a.store != nil {
		exchanges := a.session.Exchanges()
		if err := a.store.SaveExchange(a.session.ID(), exchanges[len(exchanges)-1]); err != nil {
			a.logger.Warn("failed to persist exchange: %v", err)
		}
	}
}

// printInfo reports each registered agent's resolved model configuration and
// readiness, plus the agents that failed to construct.
func (a *app) printInfo() {
	registry := a.orch.Registry()
	for _, name := range registry.Names() {
		target, ok := registry.Get(name)
		if !ok {
			continue
		}
		fmt.Printf("%s:", name)
		if reporter, ok := target.(agent.InfoReporter); ok {
			info := reporter.ModelInfo()
			fmt.Printf(" provider=%s model=%s", info.Provider, info.ModelID)
			if info.GroundingEnabled {
				fmt.Printf(" kb=%s", info.KnowledgeBaseID)
			}
		}
		if checker, ok := target.(agent.ConfigChecker); ok {
			if err := checker.CheckConfiguration(); err != nil {
				fmt.Printf(" NOT READY (%v)", err)
			} else {
				fmt.Print(" ready")
			}
		}
		fmt.Println()
	}
	for name, cfgErr := range a.orch.ConstructionFailures() {
		fmt.Printf("%s: unavailable (%v)\n", name, cfgErr)
	}
}

func printResponse(resp orchestrator.Response) {
	fmt.Printf("\n%s\n", resp.Text)
	if len(resp.Citations) > 0 {
		fmt.Println("\nSources:")
		for _, c := range resp.Citations {
			fmt.Printf("  - %s (score %.2f)\n", c.Title, c.Score)
		}
	}
	if resp.Reason != "" {
		fmt.Printf("\n[%s: %s]\n", resp.Mode, resp.Reason)
	}
	fmt.Println()
}

// resumeSession loads a stored session's transcript into memory, or starts a
// fresh session when no ID was given.
func resumeSession(store *persistence.Store, sessionID string) (*agent.Session, error) {
	if sessionID == "" {
		return agent.NewSession(), nil
	}

	exchanges, err := store.LoadExchanges(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to resume session %s: %w", sessionID, err)
	}
	session := agent.NewSessionWithID(sessionID)
	for _, ex := range exchanges {
		session.Append(ex.Query, ex.Result)
	}
	return session, nil
}

func parseKind(mode string) agent.ResultKind {
	switch mode {
	case "grounded":
		return agent.KindGrounded
	case "ungrounded":
		return agent.KindUngrounded
	default:
		return agent.KindDegraded
	}
}

func serveMetrics(addr string, logger *logx.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("metrics listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server: %v", err)
	}
}
