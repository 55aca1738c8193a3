package main

import (
	"hdrgen/internal/headers"
	"hdrgen/internal/logging"
	"hdrgen/internal/subst"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	replaceIn      string
	replaceOut     string
	replaceMapping string
)

// replaceCmd renders a template with a caller-supplied mapping
var replaceCmd = &cobra.Command{
	Use:   "replace",
	Short: "Render a template with an explicit token mapping",
	Long: `Replaces every occurrence of each mapping key in the input template
and writes the result to the output file.

The mapping is a JSON object or YAML mapping of literal tokens to values.
Overlapping tokens are resolved longest first.

Example:
  hdrgen replace -i config.h.in -o config.h -r '{"@X@": "1", "@Y@": "2"}'`,
	Args: func(cmd *cobra.Command, args []string) error {
		return noPositional(cmd.CommandPath(), args)
	},
	RunE: runReplace,
}

func init() {
	replaceCmd.Flags().StringVarP(&replaceIn, "input", "i", "", "Input template (required)")
	replaceCmd.Flags().StringVarP(&replaceOut, "output", "o", "", "Output file (required)")
	replaceCmd.Flags().StringVarP(&replaceMapping, "replace", "r", "", "Serialized token mapping (required)")
}

func runReplace(cmd *cobra.Command, args []string) error {
	if err := requireFlags(
		requiredFlag{"input", replaceIn},
		requiredFlag{"output", replaceOut},
		requiredFlag{"replace", replaceMapping},
	); err != nil {
		return err
	}
	m, err := subst.ParseMapping(replaceMapping)
	if err != nil {
		return &argumentError{err: err}
	}

	// Only logging settings apply here, so a broken config is not fatal.
	if _, err := loadConfig(); err != nil {
		logging.BootWarn("Ignoring configuration: %v", err)
	}

	logger.Info("Rendering template",
		zap.String("input", replaceIn),
		zap.String("output", replaceOut),
		zap.Int("tokens", m.Len()))

	g := &headers.Generator{}
	return g.Generic(commandContext(cmd), subst.Template{InputPath: replaceIn, OutputPath: replaceOut}, m)
}
