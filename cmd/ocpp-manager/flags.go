package main

import (
	"flag"
	"fmt"
	"os"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	ShowVersion bool
	ShowHelp    bool
	Validate    bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("OCPP_CONFIG", ""),
		"Path to configuration file, empty for defaults (env: OCPP_CONFIG)")
	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("OCPP_CONFIG", ""),
		"Path to configuration file, empty for defaults (env: OCPP_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("OCPP_LOG_LEVEL", ""),
		"Log level override: debug, info, warn, error (env: OCPP_LOG_LEVEL)")
	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("OCPP_LOG_FORMAT", ""),
		"Log format override: json, text (env: OCPP_LOG_FORMAT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Usage = printDetailedHelp
	flag.Parse()
	return cfg
}

// initializeCLI parses flags and handles the exit-early flags.
func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg := parseFlags()

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, true, nil
	}
	return cliCfg, false, nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - OCPP 1.6 central system

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run with custom config
  %s --config=/etc/ocpp-manager/config.yaml

  # Run with debug logging
  %s --log-level=debug --log-format=text

  # Validate configuration only
  %s --config=config.yaml --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
