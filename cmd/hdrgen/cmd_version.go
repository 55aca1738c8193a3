package main

import (
	"hdrgen/internal/subst"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	versionMetadata string
	versionIn       string
	versionOut      string
)

// versionCmd renders the version header
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Render the version header from configure.ac and the current revision",
	Long: `Reads the package name and version from the first AC_INIT line of
configure.ac and the current revision from source control, then replaces
@LINEAR_VERSION_ID@ and @LINEAR_COMMIT_ID@ in the template.

A configure.ac without a usable AC_INIT line, or with a line longer than
1 MiB before it, fails with exit status 3.
A failed revision lookup is not an error; the commit id is left empty.

Example:
  hdrgen version -c configure.ac -i include/linear/version.h.in -o include/linear/version.h`,
	Args: func(cmd *cobra.Command, args []string) error {
		return noPositional(cmd.CommandPath(), args)
	},
	RunE: runVersion,
}

func init() {
	versionCmd.Flags().StringVarP(&versionMetadata, "configure-ac", "c", "", "Path to configure.ac (required)")
	versionCmd.Flags().StringVarP(&versionIn, "input", "i", "", "Input template (required)")
	versionCmd.Flags().StringVarP(&versionOut, "output", "o", "", "Output file (required)")
}

func runVersion(cmd *cobra.Command, args []string) error {
	if err := requireFlags(
		requiredFlag{"configure-ac", versionMetadata},
		requiredFlag{"input", versionIn},
		requiredFlag{"output", versionOut},
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

	info, err := g.Version(commandContext(cmd), subst.Template{InputPath: versionIn, OutputPath: versionOut}, versionMetadata)
	if err != nil {
		return err
	}
	logger.Info("Version header written",
		zap.String("output", versionOut),
		zap.String("version_id", info.VersionID),
		zap.String("commit_id", info.CommitID),
		zap.Bool("commit_known", info.CommitKnown))
	return nil
}
