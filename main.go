package main

import (
	"fmt"
	"os"
	"runtime"

	"zenpulse/internal/cli"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\n%s\n", r, buf[:n])
			os.Exit(2)
		}
	}()

	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
