package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jarvis-assistant/jarvis/internal/config"
	"github.com/jarvis-assistant/jarvis/internal/container"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show jarvis status",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := config.ConfigPath()

	fmt.Printf("%s jarvis Status\n\n", logo)

	_, statErr := os.Stat(cfgPath)
	cfgMark := "✗"
	if statErr == nil {
		cfgMark = "✓"
	}
	fmt.Printf("Config:  %s %s\n", cfgPath, cfgMark)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	fmt.Printf("Model:   %s\n", cfg.LLM.Model)
	fmt.Printf("Port:    %d\n\n", cfg.Server.Port)

	c, err := container.New(cfg)
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	report := c.Aggregator().Health(ctx)
	fmt.Printf("Health:  %s\n\n", report.Status)

	fmt.Println("Providers:")
	for _, name := range []string{"openrouter", "calendar", "gmail", "bills"} {
		mark := "(not connected)"
		if report.Providers[name] {
			mark = "✓"
		}
		fmt.Printf("  %-12s %s\n", name, mark)
	}
	return nil
}
