package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/droverhq/drover/internal/logging"
	"github.com/droverhq/drover/internal/modelinfo"
)

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List known models and their capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			catalog := modelinfo.NewCatalog()
			if err := catalog.LoadOverlay(cfg.DataDir); err != nil {
				logging.Warnf("models: %v", err)
			}
			for _, caps := range catalog.Models() {
				thinking := "-"
				if caps.SupportsThinking {
					thinking = "thinking"
					if caps.SupportsInterleavedThinking {
						thinking = "interleaved thinking"
					}
				}
				marker := " "
				if caps.ID == cfg.Model {
					marker = "*"
				}
				fmt.Printf("%s %-24s ctx %7d  out %6d  %s\n",
					marker, caps.ID, caps.ContextWindow, caps.MaxOutputTokens, thinking)
			}
			return nil
		},
	}
}
