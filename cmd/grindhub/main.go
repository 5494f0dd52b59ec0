// Command grindhub runs the study assistant as an interactive chat or an HTTP service.
package main

import (
	"fmt"
	"os"

	"grindhub/pkg/logx"
)

func main() {
	err := newRootCmd().Execute()
	_ = logx.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
