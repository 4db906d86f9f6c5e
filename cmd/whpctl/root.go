package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/bitfantasy/whp/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"
	APIURL string
	Token  string
}

var validFormats = []string{"text", "json"}

// NewRootCommand creates the whpctl command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "whpctl",
		Short:         "WHP operator tools",
		Version:       fmt.Sprintf("%s (built %s)", Version, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.APIURL, "api", config.GetEnvOrDefault("WHP_API_URL", ""), "remote WHP API base URL")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", config.GetEnvOrDefault("WHP_TOKEN", ""), "bearer token for the remote API")

	cmd.AddCommand(newTemplateCommand())
	cmd.AddCommand(newPreviewCommand(opts))
	cmd.AddCommand(newImportCommand(opts))
	cmd.AddCommand(newValidateCommand(opts))

	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
