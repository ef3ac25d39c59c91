package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sawpanic/tokensleuth/internal/config"
	"github.com/sawpanic/tokensleuth/internal/domain"
)

// runScan executes one scan inline, without the queue or the job store, and
// prints the full risk score so the breakdown is greppable.
func runScan(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	chainArg, _ := cmd.Flags().GetString("chain")
	addressArg, _ := cmd.Flags().GetString("address")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	chain, err := domain.ParseChain(chainArg)
	if err != nil {
		return err
	}
	address, err := domain.ValidateAddress(chain, addressArg)
	if err != nil {
		return err
	}

	sc, err := buildScanner(cfg)
	if err != nil {
		return err
	}
	defer sc.close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Scan.Deadline())
	defer cancel()

	facts, err := sc.fetcher.Fetch(ctx, chain, address)
	if err != nil {
		return fmt.Errorf("fetch %s/%s: %w", chain, address, err)
	}
	score := sc.engine.Evaluate(facts)
	score.RequestID = uuid.NewString()

	out, err := json.MarshalIndent(score, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
