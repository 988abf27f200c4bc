// Package main provides the pagepilot headless runner: it wires the
// provider stack, the routing layer, and a browser driver together and
// drives a single natural-language task to completion.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pagepilot/pagepilot/pkg/actions"
	"github.com/pagepilot/pagepilot/pkg/agent"
	"github.com/pagepilot/pagepilot/pkg/agent/history"
	"github.com/pagepilot/pagepilot/pkg/agent/prompts"
	"github.com/pagepilot/pagepilot/pkg/config"
	"github.com/pagepilot/pagepilot/pkg/llm"
	"github.com/pagepilot/pagepilot/pkg/llm/bridge"
	"github.com/pagepilot/pagepilot/pkg/llm/cloud"
	"github.com/pagepilot/pagepilot/pkg/llm/ondevice"
	"github.com/pagepilot/pagepilot/pkg/llm/router"
	"github.com/pagepilot/pagepilot/pkg/llm/session"
	"github.com/pagepilot/pagepilot/pkg/llm/strategy"
	"github.com/pagepilot/pagepilot/pkg/logging"
	"github.com/pagepilot/pagepilot/pkg/page"
	"github.com/pagepilot/pagepilot/pkg/schema"
	"github.com/pagepilot/pagepilot/pkg/types"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration.
type CLIConfig struct {
	Task        string
	StartURL    string
	ConfigFile  string
	HistoryFile string
	Headed      bool
	Timeout     time.Duration
	ShowVersion bool
}

func main() {
	cliConfig := parseFlags()

	if cliConfig.ShowVersion {
		fmt.Printf("pagepilot v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, cliConfig); err != nil {
		cancel()
		log.Printf("Task failed: %v", err)
		os.Exit(1)
	}
	cancel()
}

// parseFlags parses command line flags.
func parseFlags() *CLIConfig {
	cliConfig := &CLIConfig{}

	flag.StringVar(&cliConfig.Task, "task", "", "Task description (required)")
	flag.StringVar(&cliConfig.StartURL, "url", "", "URL to open before the first step")
	flag.StringVar(&cliConfig.ConfigFile, "config", "", "Path to configuration file (default ~/.pagepilot/config.json)")
	flag.StringVar(&cliConfig.HistoryFile, "history", "", "Path to the step history file (default ~/.pagepilot/history/<session>.jsonl)")
	flag.BoolVar(&cliConfig.Headed, "headed", false, "Run the browser with a visible window")
	flag.DurationVar(&cliConfig.Timeout, "timeout", 10*time.Minute, "Task timeout")
	flag.BoolVar(&cliConfig.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "pagepilot - browser automation driven by local-first inference\n\n")
		fmt.Fprintf(os.Stderr, "Usage: pagepilot [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Run a task against a page\n")
		fmt.Fprintf(os.Stderr, "  pagepilot -task \"Log in as demo and open the billing page\" -url https://example.com\n\n")
		fmt.Fprintf(os.Stderr, "  # Watch the browser while it works\n")
		fmt.Fprintf(os.Stderr, "  pagepilot -task \"Accept the cookie banner\" -url https://example.com -headed\n\n")
	}

	flag.Parse()
	return cliConfig
}

//nolint:gocyclo
func run(ctx context.Context, cliConfig *CLIConfig) error {
	if cliConfig.Task == "" {
		flag.Usage()
		return fmt.Errorf("task is required")
	}

	// Load persisted configuration. Missing file means defaults.
	store, err := config.NewFileStore(cliConfig.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to open configuration: %w", err)
	}

	routing := config.NewRoutingSection()
	if err := config.LoadSection(store, routing); err != nil {
		return fmt.Errorf("invalid routing configuration: %w", err)
	}
	llmConfig := config.NewLLMSection()
	if err := config.LoadSection(store, llmConfig); err != nil {
		return fmt.Errorf("invalid llm configuration: %w", err)
	}
	whitelistConfig := config.NewActionWhitelistSection()
	if err := config.LoadSection(store, whitelistConfig); err != nil {
		return fmt.Errorf("invalid whitelist configuration: %w", err)
	}

	logger, logErr := logging.NewLogger("main")
	if logErr != nil {
		log.Printf("File logging unavailable, using stderr: %v", logErr)
	}
	defer logger.Close()

	registry, err := actions.LoadDefault()
	if err != nil {
		return fmt.Errorf("failed to load action catalogue: %w", err)
	}

	whitelist, err := actions.NewWhitelist(whitelistConfig.Patterns)
	if err != nil {
		return fmt.Errorf("failed to compile action whitelist: %w", err)
	}

	providers, err := buildProviders(routing, llmConfig, logger)
	if err != nil {
		return err
	}
	rtr := router.New(providers, router.WithLogger(logger))

	sess, err := session.New(ctx, rtr, strategy.NewCache(), session.Options{
		SystemInstructions: prompts.SystemPrompt(cliConfig.Task, registry.Names()),
		Schemas:            agent.Schemas(registry),
		InputBudget:        routing.InputBudget,
		EstimatorOpts:      schema.EstimatorOptions{OptionalRatioThreshold: routing.OptionalRatioThreshold},
		SelectorOpts:       strategy.SelectorOptions{ComplexityThreshold: routing.ComplexityThreshold},
		Logger:             logger,
	})
	if err != nil {
		if errors.Is(err, llm.ErrProviderUnavailable) {
			return fmt.Errorf("no inference backend is available: %w", err)
		}
		return fmt.Errorf("failed to open inference session: %w", err)
	}
	defer sess.Destroy()

	driver, err := page.NewBrowser(page.BrowserOptions{
		Headless: !cliConfig.Headed,
		StartURL: cliConfig.StartURL,
	})
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer driver.Close()

	steps, err := openHistory(cliConfig.HistoryFile, sess.ID())
	if err != nil {
		return err
	}
	defer steps.Close()

	executor := agent.New(sess, driver, registry, agent.Options{
		MaxSteps:    routing.MaxSteps,
		TurnRetries: routing.TurnRetries,
		Whitelist:   whitelist,
		History:     steps,
		Logger:      logger,
		OnEvent:     printEvent,
	})

	if cliConfig.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cliConfig.Timeout)
		defer cancel()
	}

	log.Printf("Starting task...")
	log.Printf("Task: %s", cliConfig.Task)
	log.Printf("History: %s", steps.Path())

	result, err := executor.Run(ctx, cliConfig.Task)
	if err != nil {
		return err
	}

	switch result.Status {
	case agent.StatusDone:
		log.Printf("Task finished in %d steps (success=%v): %s", result.Steps, result.Success, result.Message)
		if !result.Success {
			return fmt.Errorf("task reported failure: %s", result.Message)
		}
	case agent.StatusMaxSteps:
		return fmt.Errorf("step budget of %d exhausted before the task finished", result.Steps)
	default:
		return fmt.Errorf("task ended with status %s: %s", result.Status, result.Message)
	}
	return nil
}

// buildProviders assembles the preference-ordered backend list: on-device
// first, cloud as the alternate. A missing cloud API key degrades to
// on-device only rather than failing startup.
func buildProviders(routing *config.RoutingSection, llmConfig *config.LLMSection, logger *logging.Logger) ([]llm.Provider, error) {
	local := ondevice.NewProvider(
		ondevice.WithBaseURL(llmConfig.OnDeviceBaseURL),
		ondevice.WithModel(llmConfig.OnDeviceModel),
		ondevice.WithInputBudget(routing.InputBudget),
	)
	providers := []llm.Provider{local}

	upstream, err := cloud.NewAPI(os.Getenv(llmConfig.CloudAPIKeyEnv),
		cloud.WithModel(llmConfig.CloudModel),
		cloud.WithBaseURL(llmConfig.CloudBaseURL),
	)
	if err != nil {
		logger.Warnf("cloud backend disabled: %v", err)
		return providers, nil
	}

	host := cloud.NewHost(upstream)
	client := bridge.NewClient(bridge.NewLoopback(host.Handle), bridge.WithTimeout(routing.BridgeTimeout()))
	return append(providers, cloud.NewProvider(client)), nil
}

// openHistory opens the step log, defaulting to a session-scoped file under
// ~/.pagepilot/history/.
func openHistory(path, sessionID string) (*history.Store, error) {
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, ".pagepilot", "history", sessionID+".jsonl")
	}
	steps, err := history.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return steps, nil
}

// printEvent renders executor events as progress lines.
func printEvent(event *types.ExecutorEvent) {
	switch event.Type {
	case types.EventTypeTaskStart:
		fmt.Printf("task: %s\n", event.Content)
	case types.EventTypeStepStart:
		fmt.Printf("\n-- step %d --\n", event.StepIndex+1)
	case types.EventTypePlanProduced:
		fmt.Printf("goal: %s\n", event.Content)
	case types.EventTypeActionsProduced:
		fmt.Printf("actions: %d\n", event.ActionCount)
	case types.EventTypeActionsDropped:
		fmt.Printf("dropped %d invalid action(s)\n", event.DroppedCount)
	case types.EventTypeStepRetry:
		fmt.Printf("retrying step: %s\n", event.Content)
	case types.EventTypeProviderSwitch:
		fmt.Printf("switched to %s backend\n", event.Provider)
	case types.EventTypeTaskDone:
		fmt.Printf("\ndone: %s\n", event.Content)
	case types.EventTypeTaskFailed:
		fmt.Printf("\nfailed: %v\n", event.Error)
	case types.EventTypeMaxSteps:
		fmt.Printf("\nstep budget exhausted\n")
	case types.EventTypeError:
		fmt.Printf("warning: %v\n", event.Error)
	}
}
