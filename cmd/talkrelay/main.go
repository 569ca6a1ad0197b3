package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/relayworks/talkrelay/internal/config"
	"github.com/relayworks/talkrelay/internal/doctor"
	"github.com/relayworks/talkrelay/internal/events"
	"github.com/relayworks/talkrelay/internal/klaviyo"
	"github.com/relayworks/talkrelay/internal/lock"
	"github.com/relayworks/talkrelay/internal/log"
	"github.com/relayworks/talkrelay/internal/ops"
	"github.com/relayworks/talkrelay/internal/tui/watch"
	"github.com/relayworks/talkrelay/internal/webhook"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	if cmd == "--version" {
		return runVersion(args)
	}

	switch cmd {
	// --- NOUNS ---
	case "system":
		return runSystemNoun(args)
	case "config":
		return runConfigNoun(args)

	// --- ROOT ALIASES ---
	case "start":
		return runStart(args)
	case "doctor":
		return runConfigCheck(args)
	case "version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Usage: talkrelay version [--json]")
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("talkrelay %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}

	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	resolvedCommit := strings.TrimSpace(gitCommit)
	if resolvedCommit == "" || resolvedCommit == "unknown" {
		resolvedCommit = strings.TrimSpace(readBuildSetting("vcs.revision"))
	}
	if resolvedCommit != "" {
		info.Commit = shortenCommit(resolvedCommit)
	}

	resolvedBuildTime := strings.TrimSpace(buildDate)
	if resolvedBuildTime == "" || resolvedBuildTime == "unknown" {
		resolvedBuildTime = strings.TrimSpace(readBuildSetting("vcs.time"))
	}
	if normalizedBuildTime, ok := normalizeBuildTimeUTC(resolvedBuildTime); ok {
		info.BuildTime = normalizedBuildTime
	}

	return info
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func normalizeBuildTimeUTC(raw string) (string, bool) {
	if raw == "" || raw == "unknown" {
		return "", false
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return "", false
	}

	return t.UTC().Format(time.RFC3339), true
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

func printUsage() {
	fmt.Print(`talkrelay - Post-call webhook relay from ElevenLabs to Klaviyo profiles

Usage:
  talkrelay <noun> <action> [flags]

Core Resources (Nouns):
  system    Relay lifecycle and health
  config    Service configuration and integrity

System Commands:
  system start      Start the relay service in foreground
  system status     Show relay health and PID lock state
  system watch      Real-time delivery monitoring TUI

Config Commands:
  config lock       Authorize current state (update integrity hashes)
  config check      Validate syntax, policy, and integrity
  config show       Show full resolved configuration
  config get        Read a single configuration value
  config set        Set a configuration value

General:
  --version         Show version information
  version           Show version information
  help              Show this help message

Use 'talkrelay <noun> help' for resource-specific flags.
`)
}

// --- NOUN DISPATCHERS ---

func runSystemNoun(args []string) int {
	if len(args) < 1 {
		printSystemNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printSystemNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "start":
		if hasHelpFlag(actionArgs) {
			printSystemStartHelp()
			return 0
		}
		return runStart(actionArgs)
	case "status":
		if hasHelpFlag(actionArgs) {
			printSystemStatusHelp()
			return 0
		}
		return runSystemStatus(actionArgs)
	case "watch":
		if hasHelpFlag(actionArgs) {
			printSystemWatchHelp()
			return 0
		}
		return runWatch(actionArgs)
	case "help":
		printSystemNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown system action: %s\n", action)
		return 1
	}
}

func runConfigNoun(args []string) int {
	if len(args) < 1 {
		printConfigNounHelp(os.Stderr)
		return 1
	}

	if isHelpToken(args[0]) {
		printConfigNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "lock", "hash-update": // Alias for backward compat
		if hasHelpFlag(actionArgs) {
			printConfigLockHelp()
			return 0
		}
		return runConfigHashUpdate(actionArgs)
	case "check":
		if hasHelpFlag(actionArgs) {
			printConfigCheckHelp()
			return 0
		}
		return runConfigCheck(actionArgs)
	case "show":
		if hasHelpFlag(actionArgs) {
			printConfigShowHelp()
			return 0
		}
		return runConfigShow(actionArgs)
	case "get":
		if hasHelpFlag(actionArgs) {
			printConfigGetHelp()
			return 0
		}
		return runConfigGet(actionArgs)
	case "set":
		if hasHelpFlag(actionArgs) {
			printConfigSetHelp()
			return 0
		}
		return runConfigSet(actionArgs)
	case "help":
		printConfigNounHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}

func isHelpToken(token string) bool {
	return token == "help" || token == "--help" || token == "-h"
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

func printSystemNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: talkrelay system <action>")
	fmt.Fprintln(w, "Actions: start, status, watch")
}

func printConfigNounHelp(w *os.File) {
	fmt.Fprintln(w, "Usage: talkrelay config <action> [flags]")
	fmt.Fprintln(w, "Actions: lock, check, show, get, set")
}

func printSystemStartHelp() {
	fmt.Println("Usage: talkrelay system start [--config PATH] [--env-file PATH]")
	fmt.Println("Start the relay service in the foreground.")
}

func printSystemStatusHelp() {
	fmt.Println("Usage: talkrelay system status [--config PATH] [--json]")
	fmt.Println("Show relay health (config validation and PID lock state).")
	fmt.Println("")
	fmt.Println("Exit codes:")
	fmt.Println("  0  All required checks passed")
	fmt.Println("  1  One or more checks failed")
}

func printSystemWatchHelp() {
	fmt.Println("Usage: talkrelay system watch [flags]")
	fmt.Println()
	fmt.Println("Real-time delivery monitoring TUI.")
	fmt.Println("Shows relay health, recent deliveries, and the live event stream.")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --ops-url URL    Ops API URL (default: http://127.0.0.1:8086)")
	fmt.Println("  --token TOKEN    Ops Bearer token (or TALKRELAY_OPS_TOKEN env var)")
	fmt.Println()
	fmt.Println("Keybindings:")
	fmt.Println("  q, Ctrl+C        Quit")
	fmt.Println("  ↑/↓, k/j         Scroll deliveries")
}

func printConfigLockHelp() {
	fmt.Println("Usage: talkrelay config lock [--config PATH] [-v|--verbose] [--dry-run]")
	fmt.Println("Authorize current configuration state by regenerating integrity hashes.")
}

func printConfigCheckHelp() {
	fmt.Println("Usage: talkrelay config check [--config PATH] [--format human|json] [--strict] [--json]")
	fmt.Println("Validate configuration syntax, policy, and integrity.")
}

func printConfigShowHelp() {
	fmt.Println("Usage: talkrelay config show [entity] [--config PATH] [--json]")
	fmt.Println("Show full resolved configuration or a filtered entity node.")
}

func printConfigGetHelp() {
	fmt.Println("Usage: talkrelay config get <path> [--config PATH] [--json]")
	fmt.Println("Read a single value from the resolved configuration.")
}

func printConfigSetHelp() {
	fmt.Println("Usage: talkrelay config set <path>=<value> [--config PATH] [--dry-run | --apply]")
	fmt.Println("Set a configuration value with either preview or apply mode.")
}

// --- ACTION IMPLEMENTATIONS ---

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	envFile := fs.String("env-file", "", "Path to an env file loaded before config interpolation")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	// Load .env before the config so ${VAR} interpolation sees its values.
	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load env file %s: %v\n", *envFile, err)
			return 1
		}
	} else {
		_ = godotenv.Load()
	}

	if *configPath == "" {
		discovered, err := config.DiscoverConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
			return 1
		}
		*configPath = discovered
		fmt.Fprintf(os.Stderr, "Using discovered config: %s\n", *configPath)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("talkrelay starting", "version", version, "config", *configPath)

	pidLockPath := getPIDLockPath(cfg)
	pidLock, err := lock.AcquirePIDLock(pidLockPath)
	if err != nil {
		logger.Error("failed to acquire PID lock (another instance may be running)", "path", pidLockPath, "error", err)
		return 1
	}
	defer pidLock.Release()
	logger.Info("acquired PID lock", "path", pidLockPath)

	hub := events.NewHub(256)

	client := klaviyo.New(klaviyo.Config{
		BaseURL:  cfg.Klaviyo.BaseURL,
		APIKey:   cfg.Klaviyo.APIKey,
		Revision: cfg.Klaviyo.Revision,
		Timeout:  cfg.Klaviyo.Timeout,
	})

	webhookConfig, err := webhook.FromGlobalConfig(cfg)
	if err != nil {
		logger.Error("failed to configure webhook listener", "error", err)
		return 1
	}
	webhookServer := webhook.New(webhookConfig, client, hub, log.WithComponent("webhook"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 2)

	go func() {
		if err := webhookServer.Start(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("webhook: %w", err)
		}
	}()
	logger.Info("webhook listener enabled", "listen", webhookConfig.Listen, "path", webhookConfig.Path)

	if cfg.Ops.Enabled {
		opsServer := ops.New(ops.Config{
			Listen:  cfg.Ops.Listen,
			Token:   cfg.Ops.Token,
			Service: cfg.Service.Name,
			Version: version,
		}, webhookServer, hub, log.WithComponent("ops"))
		go func() {
			if err := opsServer.Start(ctx); err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("ops: %w", err)
			}
		}()
		logger.Info("ops server enabled", "listen", cfg.Ops.Listen)
	}

	logger.Info("talkrelay running (press Ctrl+C to stop)")

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		cancel()
		return 1
	}

	logger.Info("talkrelay stopped")
	return 0
}

type systemStatusReport struct {
	ConfigPath  string `json:"config_path"`
	ConfigValid bool   `json:"config_valid"`
	Errors      int    `json:"errors"`
	Warnings    int    `json:"warnings"`
	Running     bool   `json:"running"`
	PID         int    `json:"pid,omitempty"`
	PIDLockPath string `json:"pid_lock_path"`
}

func runSystemStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file or directory")
	jsonOut := fs.Bool("json", false, "Output in structured JSON format")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if *configPath == "" {
		discovered, err := config.DiscoverConfigPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to discover config: %v\n", err)
			return 1
		}
		*configPath = discovered
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	result := doctor.New(cfg).Validate()

	pidLockPath := getPIDLockPath(cfg)
	held, pid, err := lock.ProbePIDLock(pidLockPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to probe PID lock: %v\n", err)
		return 1
	}

	report := systemStatusReport{
		ConfigPath:  *configPath,
		ConfigValid: result.Valid,
		Errors:      len(result.Errors),
		Warnings:    len(result.Warnings),
		Running:     held,
		PID:         pid,
		PIDLockPath: pidLockPath,
	}

	if *jsonOut {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render status JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
	} else {
		fmt.Printf("Config:  %s\n", report.ConfigPath)
		if report.ConfigValid {
			fmt.Printf("Checks:  ✓ valid (%d warning(s))\n", report.Warnings)
		} else {
			fmt.Printf("Checks:  ✗ %d error(s), %d warning(s)\n", report.Errors, report.Warnings)
		}
		if report.Running {
			fmt.Printf("Service: running (pid %d)\n", report.PID)
		} else {
			fmt.Println("Service: not running")
		}
		fmt.Printf("Lock:    %s\n", report.PIDLockPath)
	}

	if !report.ConfigValid {
		return 1
	}
	return 0
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	opsURL := fs.String("ops-url", "http://127.0.0.1:8086", "Ops API URL")
	token := fs.String("token", os.Getenv("TALKRELAY_OPS_TOKEN"), "Ops Bearer token")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if *token == "" {
		fmt.Fprintln(os.Stderr, "Error: ops token required. Use --token or TALKRELAY_OPS_TOKEN env var.")
		return 1
	}

	m := watch.New(*opsURL, *token)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return 1
	}
	return 0
}

// getPIDLockPath derives the PID lock location from the data directory.
// An empty data_dir falls back to the system temp directory.
func getPIDLockPath(cfg *config.Config) string {
	dataDir := cfg.Service.DataDir
	if dataDir == "" {
		return filepath.Join(os.TempDir(), "talkrelay.pid")
	}
	return filepath.Join(dataDir, "talkrelay.pid")
}
