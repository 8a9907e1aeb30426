package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jarvis-assistant/jarvis/internal/agent"
	"github.com/jarvis-assistant/jarvis/internal/config"
	"github.com/jarvis-assistant/jarvis/internal/container"
	"github.com/jarvis-assistant/jarvis/internal/schema"
)

var (
	chatMessage string
	chatUser    string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant from the terminal",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send a single message and exit")
	chatCmd.Flags().StringVarP(&chatUser, "user", "u", "default", "User ID for tool calls")
}

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

func runChat(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	c, err := container.New(cfg)
	if err != nil {
		return fmt.Errorf("wire services: %w", err)
	}

	orch := c.Orchestrator()
	key := "cli:" + chatUser
	id := schema.Identity{UserID: chatUser, Channel: schema.ChannelCLI}

	if chatMessage != "" {
		return sendOne(orch, chatMessage, key, id)
	}
	return runInteractive(orch, key, id)
}

// sendOne runs a single message through the orchestrator and prints the
// answer.
func sendOne(orch *agent.Orchestrator, message, key string, id schema.Identity) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fmt.Fprintf(os.Stderr, "  ↳ thinking...\n")
	out, err := orch.Process(ctx, schema.Request{Message: message, ConversationKey: key, Identity: id})
	if err != nil {
		return err
	}

	printResponse(out.Text)
	return nil
}

// runInteractive starts the REPL loop: reads lines from stdin and runs each
// through the same orchestrator call the HTTP channels use.
func runInteractive(orch *agent.Orchestrator, key string, id schema.Identity) error {
	fmt.Printf("%s Interactive mode (type 'exit' or Ctrl+C to quit)\n\n", logo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listenForSignals(cancel)

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("You: ")

		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if exitCommands[strings.ToLower(line)] {
			fmt.Println("Goodbye!")
			return nil
		}

		out, err := orch.Process(ctx, schema.Request{Message: line, ConversationKey: key, Identity: id})
		if err != nil {
			fmt.Fprintf(os.Stderr, "  ✗ %v\n", err)
			continue
		}
		printResponse(out.Text)
	}
}

// listenForSignals cancels ctx on SIGINT or SIGTERM and exits.
func listenForSignals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nGoodbye!")
		cancel()
		os.Exit(0)
	}()
}

func printResponse(text string) {
	fmt.Printf("\n%s jarvis\n%s\n\n", logo, text)
}
