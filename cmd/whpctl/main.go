// Command whpctl is the operator CLI of the whp service: it hands out the
// import template, previews workbooks locally, pushes them through the
// remote validator and checks form values against the bundled schemas.
package main

import (
	"fmt"
	"os"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
