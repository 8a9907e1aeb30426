package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jarvis-assistant/jarvis/internal/agent"
	"github.com/jarvis-assistant/jarvis/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE:  runInit,
}

func runInit(_ *cobra.Command, _ []string) error {
	cfgPath := config.ConfigPath()

	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("Config already exists at %s\n", cfgPath)
	} else {
		cfg := config.DefaultConfig()
		if err := config.Save(&cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Created config at %s\n", cfgPath)
	}

	if err := writePersonaTemplate(); err != nil {
		return err
	}

	fmt.Printf("\n%s jarvis is ready!\n\n", logo)
	fmt.Println("Next steps:")
	fmt.Println("  1. Set OPENROUTER_API_KEY (get one at https://openrouter.ai/keys)")
	fmt.Println("  2. Set GOOGLE_ACCESS_TOKEN, SUPABASE_URL, SUPABASE_KEY, TWILIO_AUTH_TOKEN as needed")
	fmt.Printf("  3. Chat: jarvis chat -m \"Hello!\"\n")
	fmt.Printf("  4. Serve: jarvis serve\n")
	return nil
}

// writePersonaTemplate drops the default persona as an editable YAML file
// next to the config, without clobbering an existing one.
func writePersonaTemplate() error {
	path := filepath.Join(config.DataDir(), "persona.yaml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	data, err := yaml.Marshal(agent.DefaultPersona())
	if err != nil {
		return fmt.Errorf("render persona template: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write persona template: %w", err)
	}
	fmt.Printf("✓ Persona template at %s (set persona.file in config to use it)\n", path)
	return nil
}
