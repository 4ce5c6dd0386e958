package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"quill/internal/prompt"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file and prompt templates",
	Long: `Writes the current configuration to the config file path and materializes
the built-in prompt templates into the prompts directory so they can be edited.
Existing files are left alone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(cfgPath); err == nil {
			fmt.Printf("Config %s already exists, leaving it alone\n", cfgPath)
		} else {
			if err := cfg.Save(cfgPath); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Printf("Wrote config to %s\n", cfgPath)
		}

		if err := prompt.WriteDefaults(cfg.Prompts.Dir); err != nil {
			return fmt.Errorf("write prompt templates: %w", err)
		}
		fmt.Printf("Wrote prompt templates to %s/\n", cfg.Prompts.Dir)
		return nil
	},
}
