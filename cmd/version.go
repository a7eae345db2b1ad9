package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var RedisVersion = "255.255.255"

// Version formats the release with git commit and working tree state when
// they are known.
func Version(gitSHA1, gitDirty string) string {
	version := RedisVersion
	sha := gitSHA1
	if len(sha) > 16 {
		sha = sha[:16]
	}
	if sha1Int, err := strconv.ParseUint(sha, 16, 64); err == nil && sha1Int != 0 {
		version = fmt.Sprintf("%s (git:%s", version, gitSHA1)
		if dirtyInt, err := strconv.ParseInt(gitDirty, 10, 64); err == nil && dirtyInt != 0 {
			version = fmt.Sprintf("%s-dirty", version)
		}
		version = fmt.Sprintf("%s)", version)
	}
	return version
}

func versionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mini-redis %s build=%s date=%s\n",
				Version(info.GitSHA1, info.GitDirty), info.BuildID, info.BuildDate)
		},
	}
}
