package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	appName = "tokensleuth"
	version = "v0.4.1"
)

func main() {
	_ = godotenv.Load()
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Token fraud screening for Solana and EVM chains",
		Version: version,
		Long: `TokenSleuth screens a token contract for rug-pull and honeypot risk:
mint and freeze authorities, LP lock coverage, holder concentration, sell
simulation and creator history, aggregated into a 0-100 risk score.`,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scan API server",
		Long:  "Starts the HTTP API, per-chain worker pools and the provider fetch layer",
		RunE:  runServe,
	}
	addConfigFlag(serveCmd.Flags())
	serveCmd.Flags().String("addr", "", "Listen address override (host:port)")

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan one token and print the risk score",
		Long:  "Fetches provider data for a single token, evaluates it and prints the score as JSON",
		RunE:  runScan,
	}
	addConfigFlag(scanCmd.Flags())
	scanCmd.Flags().String("chain", "", "Chain ID (SOLANA|ETHEREUM|BASE|BSC|POLYGON)")
	scanCmd.Flags().String("address", "", "Token address to scan")
	_ = scanCmd.MarkFlagRequired("chain")
	_ = scanCmd.MarkFlagRequired("address")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func addConfigFlag(fs *pflag.FlagSet) {
	fs.String("config", "config/tokensleuth.yaml", "Path to the YAML configuration file")
}
