package main

// Overridden at link time with -ldflags "-X main.gitSHA1=...".
var (
	gitSHA1   string = "00000000"
	gitDirty  string = "0"
	buildID   string = "unknown"
	buildDate string = "unknown"
)
