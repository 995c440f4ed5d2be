// Command reportctl is the offline pipeline tool.
package main

import (
	"fmt"
	"os"

	"github.com/appraisehub/valuation-platform/internal/interfaces/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "reportctl: %v\n", err)
		os.Exit(1)
	}
}
