package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/PentesterFlow/FormRelay/internal/logger"
	"github.com/PentesterFlow/FormRelay/internal/submit"
	"github.com/PentesterFlow/FormRelay/pkg/relay"
)

var (
	version = "1.0.0"

	// Global flags
	configFile string
	verbose    bool
	debug      bool

	// Submit flags
	selector        string
	fallbackAction  string
	overrides       []string
	headers         []string
	timeout         int
	rateLimit       float64
	insecure        bool
	allowNoResponse bool
	testMode        bool
	outputFile      string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "formrelay",
		Short: "FormRelay - HTML form resubmission tool",
		Long: `FormRelay - Fetch an HTML page, extract its form state, and resubmit it.

Scrapes the target form's current field values (hidden anti-forgery tokens
included), surfaces document-embedded cookies, merges caller overrides, and
POSTs the result back while preserving session cookies.`,
		Version: version,
	}

	submitCmd := &cobra.Command{
		Use:   "submit [url]",
		Short: "Fetch a page and resubmit its form",
		Long:  "Fetch the page at [url], extract the target form, merge overrides, and POST.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSubmit,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug mode")

	// Submit flags
	submitCmd.Flags().StringVarP(&selector, "selector", "s", "", "CSS selector for the target form (default: first form)")
	submitCmd.Flags().StringVar(&fallbackAction, "fallback-action", "", "Action path used when the form declares none")
	submitCmd.Flags().StringArrayVar(&overrides, "set", nil, "Field override key=value (repeatable; overrides win on collision)")
	submitCmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Static header key=value (repeatable)")
	submitCmd.Flags().IntVarP(&timeout, "timeout", "t", 30, "Request timeout in seconds")
	submitCmd.Flags().Float64VarP(&rateLimit, "rate-limit", "r", 0, "Requests per second (0 = unlimited)")
	submitCmd.Flags().BoolVarP(&insecure, "insecure", "k", false, "Skip TLS certificate verification")
	submitCmd.Flags().BoolVar(&allowNoResponse, "allow-no-response", false, "Downgrade a failed POST to a warning")
	submitCmd.Flags().BoolVar(&testMode, "test", false, "Extract and merge but skip the POST")
	submitCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the POST response body to a file")

	rootCmd.AddCommand(submitCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runSubmit(cmd *cobra.Command, args []string) error {
	level := logger.InfoLevel
	if debug {
		level = logger.DebugLevel
	}
	log := logger.New(logger.Config{
		Level:  level,
		Pretty: true,
		Output: os.Stderr,
	})

	config := relay.DefaultConfig()
	if configFile != "" {
		fileConfig, err := relay.LoadFromFile(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}
		config = fileConfig
	}

	// Command-line flags take precedence over the config file.
	if len(args) == 1 {
		config.URL = args[0]
	}
	if cmd.Flags().Changed("selector") {
		config.Selector = selector
	}
	if cmd.Flags().Changed("fallback-action") {
		config.FallbackAction = fallbackAction
	}
	if cmd.Flags().Changed("timeout") {
		config.Timeout = time.Duration(timeout) * time.Second
	}
	if cmd.Flags().Changed("rate-limit") {
		config.RequestsPerSecond = rateLimit
	}
	if insecure {
		config.SkipTLSVerify = true
	}
	if allowNoResponse {
		config.AllowNoResponse = true
	}
	if testMode {
		config.TestMode = true
	}
	config.Verbose = verbose
	config.Debug = debug

	flagOverrides, err := parsePairs(overrides)
	if err != nil {
		return fmt.Errorf("invalid --set flag: %w", err)
	}
	flagHeaders, err := parsePairs(headers)
	if err != nil {
		return fmt.Errorf("invalid --header flag: %w", err)
	}
	if len(flagHeaders) > 0 {
		if config.Headers == nil {
			config.Headers = make(map[string]string, len(flagHeaders))
		}
		for k, v := range flagHeaders {
			config.Headers[k] = v
		}
	}

	r, err := relay.New(
		relay.WithConfig(config),
		relay.WithLogger(log),
		relay.WithOverrides(flagOverrides),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Fprintf(os.Stderr, "\nReceived interrupt signal, stopping...\n")
		cancel()
	}()

	result, err := r.Run(ctx)
	if err != nil {
		log.Criticalf("run terminated: %v", err)
		os.Exit(1)
	}

	printSummary(result)

	if outputFile != "" && len(result.Body) > 0 {
		if err := os.WriteFile(outputFile, result.Body, 0644); err != nil {
			return fmt.Errorf("failed to write response body: %w", err)
		}
		fmt.Printf("Response body written to %s\n", outputFile)
	}

	return nil
}

// parsePairs parses repeatable key=value flags.
func parsePairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		m[k] = v
	}
	return m, nil
}

func printSummary(result *relay.Result) {
	fmt.Println()
	fmt.Printf("Fields Extracted: %d\n", len(result.Extracted))
	fmt.Printf("Target:           %s %s\n", result.Target.Method, result.Target.Action)
	switch {
	case result.SkippedPost:
		fmt.Println("Submission:       skipped (test mode)")
	case result.Outcome == submit.NoResponse:
		fmt.Println("Submission:       no response")
	default:
		fmt.Printf("Submission:       %d (%d bytes)\n", result.StatusCode, len(result.Body))
	}
	fmt.Printf("Duration:         %v\n", result.Duration.Round(time.Millisecond))
	fmt.Println()
}
