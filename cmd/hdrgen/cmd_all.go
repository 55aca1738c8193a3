package main

import (
	"hdrgen/internal/headers"
	"hdrgen/internal/subst"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	allMemoryIn   string
	allMemoryOut  string
	allVersionIn  string
	allVersionOut string
	allMetadata   string
)

// allCmd renders both fixed headers in one step
var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Render the capability and version headers",
	Long: `Runs memory, then version, sharing one configuration. Stops at the
first failure.

Example:
  hdrgen all -c configure.ac \
    --memory-in include/linear/memory.h.in --memory-out include/linear/memory.h \
    --version-in include/linear/version.h.in --version-out include/linear/version.h`,
	Args: func(cmd *cobra.Command, args []string) error {
		return noPositional(cmd.CommandPath(), args)
	},
	RunE: runAll,
}

func init() {
	allCmd.Flags().StringVar(&allMemoryIn, "memory-in", "", "Capability header template (required)")
	allCmd.Flags().StringVar(&allMemoryOut, "memory-out", "", "Capability header output (required)")
	allCmd.Flags().StringVar(&allVersionIn, "version-in", "", "Version header template (required)")
	allCmd.Flags().StringVar(&allVersionOut, "version-out", "", "Version header output (required)")
	allCmd.Flags().StringVarP(&allMetadata, "configure-ac", "c", "", "Path to configure.ac (required)")
}

func runAll(cmd *cobra.Command, args []string) error {
	if err := requireFlags(
		requiredFlag{"memory-in", allMemoryIn},
		requiredFlag{"memory-out", allMemoryOut},
		requiredFlag{"version-in", allVersionIn},
		requiredFlag{"version-out", allVersionOut},
		requiredFlag{"configure-ac", allMetadata},
	); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	g, err := newGenerator(cfg)
	if err != nil {
		return err
	}

	plan := headers.Plan{
		Memory:       subst.Template{InputPath: allMemoryIn, OutputPath: allMemoryOut},
		Version:      subst.Template{InputPath: allVersionIn, OutputPath: allVersionOut},
		MetadataPath: allMetadata,
	}
	if err := g.All(commandContext(cmd), plan); err != nil {
		return err
	}
	logger.Info("Headers written",
		zap.String("memory", allMemoryOut),
		zap.String("version", allVersionOut))
	return nil
}
