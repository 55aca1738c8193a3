package main

import (
	"hdrgen/internal/subst"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	memoryIn  string
	memoryOut string
)

// memoryCmd renders the smart-pointer capability header
var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Render the smart-pointer capability header",
	Long: `Determines which shared_ptr facility the C++ toolchain provides and
renders the template with exactly one of HAVE_STD_SHARED_PTR,
HAVE_TR1_SHARED_PTR or HAVE_BOOST_SHARED_PTR defined.

On Windows hosts the facility is looked up from GYP_MSVS_VERSION. Elsewhere
$CXX (default g++) compiles a small probe per facility. If the compiler
cannot be run every flag is left undefined and the command still succeeds.

Example:
  hdrgen memory -i include/linear/memory.h.in -o include/linear/memory.h`,
	Args: func(cmd *cobra.Command, args []string) error {
		return noPositional(cmd.CommandPath(), args)
	},
	RunE: runMemory,
}

func init() {
	memoryCmd.Flags().StringVarP(&memoryIn, "input", "i", "", "Input template (required)")
	memoryCmd.Flags().StringVarP(&memoryOut, "output", "o", "", "Output file (required)")
}

func runMemory(cmd *cobra.Command, args []string) error {
	if err := requireFlags(
		requiredFlag{"input", memoryIn},
		requiredFlag{"output", memoryOut},
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

	res, err := g.Memory(commandContext(cmd), subst.Template{InputPath: memoryIn, OutputPath: memoryOut})
	if err != nil {
		return err
	}
	logger.Info("Capability header written",
		zap.String("output", memoryOut),
		zap.String("tier", string(res.Tier)),
		zap.String("source", string(res.Source)),
		zap.Int("attempts", len(res.Attempts)))
	return nil
}
