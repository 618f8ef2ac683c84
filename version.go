package main

import (
	"fmt"
	"runtime"

	"github.com/thiremani/tapec/llvmgen"
)

// Build-time variables injected via linker flags (ldflags):
//
//	go build -ldflags "-X main.Version=$(git describe --tags) -X main.Commit=..." -o tapec
//
// Version is also part of every cache key, so a new build never reuses
// artifacts of an older one.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// printVersion prints version information to stdout.
func printVersion() {
	fmt.Printf("tapec %s (%s/%s)\n", Version, runtime.GOOS, runtime.GOARCH)
	if Commit != "unknown" {
		fmt.Printf("  commit: %s\n", Commit)
	}
	if BuildDate != "unknown" {
		fmt.Printf("  built:  %s\n", BuildDate)
	}
	fmt.Printf("  llvm targets: %v\n", llvmgen.Archs())
}
