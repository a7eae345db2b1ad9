package main

import "github.com/fzft/go-mini-redis/cmd"

func main() {
	cmd.Execute(cmd.BuildInfo{
		GitSHA1:   gitSHA1,
		GitDirty:  gitDirty,
		BuildID:   buildID,
		BuildDate: buildDate,
	})
}
