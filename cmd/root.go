package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// BuildInfo carries the values stamped into the binary at link time.
type BuildInfo struct {
	GitSHA1   string
	GitDirty  string
	BuildID   string
	BuildDate string
}

// NewRootCmd builds the mini-redis command tree.
func NewRootCmd(info BuildInfo) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mini-redis",
		Short:         "A RESP frame server and command line client",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		serverCmd(),
		cliCmd(),
		versionCmd(info),
	)
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute(info BuildInfo) {
	if err := NewRootCmd(info).Execute(); err != nil {
		os.Exit(1)
	}
}
