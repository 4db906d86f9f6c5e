package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bitfantasy/whp/internal/shared/whpapi"
	"github.com/bitfantasy/whp/internal/whp/entity"
	"github.com/bitfantasy/whp/internal/whp/form"
	"github.com/bitfantasy/whp/internal/whp/importer"
	"github.com/bitfantasy/whp/internal/whp/preview"
	"github.com/bitfantasy/whp/internal/whp/validate"
)

// ErrInvalidValues is returned by validate when at least one field fails.
var ErrInvalidValues = errors.New("form values are invalid")

func newTemplateCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write the empty import workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := importer.GenerateTemplate()
			if err != nil {
				return err
			}
			defer f.Close()

			if err := f.SaveAs(output); err != nil {
				return fmt.Errorf("save template: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", importer.TemplateFileName, "destination file")
	return cmd
}

func newPreviewCommand(opts *RootOptions) *cobra.Command {
	var (
		page     int
		pageSize int
		sortKey  string
		desc     bool
	)

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Parse a workbook locally and print one page of rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, _, err := readWorkbook(args[0])
			if err != nil {
				return err
			}

			t := preview.New(pageSize)
			t.SetSort(sortKey, desc)
			t.Goto(page, len(records))
			view := t.View(records)

			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), view)
			}
			return printRecords(cmd.OutOrStdout(), view.Rows, false)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number (1-based)")
	cmd.Flags().IntVar(&pageSize, "page-size", preview.DefaultPageSize, "rows per page")
	cmd.Flags().StringVar(&sortKey, "sort", "", "sort column key")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	return cmd
}

func newImportCommand(opts *RootOptions) *cobra.Command {
	var (
		confirm bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Validate a workbook with the remote API and optionally confirm it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.APIURL == "" {
				return errors.New("--api (or WHP_API_URL) is required")
			}
			records, data, err := readWorkbook(args[0])
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return fmt.Errorf("%s has no data rows", args[0])
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			ctx = whpapi.WithToken(ctx, opts.Token)

			client := whpapi.NewClient(opts.APIURL, timeout)
			batch, err := client.UploadBatch(ctx, filepath.Base(args[0]), data)
			if err != nil {
				return fmt.Errorf("upload: %s", whpapi.MessageOr(err, err.Error()))
			}

			ok, failed := batch.Counts()
			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				if err := writeJSON(out, batch); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "batch %s: %d rows, %d ok, %d failed\n", batch.BatchUUID, batch.TotalRows, ok, failed)
				if failed > 0 {
					if err := printRecords(out, batch.Rows, true); err != nil {
						return err
					}
				}
			}

			if !confirm {
				return nil
			}
			if _, err := client.ConfirmBatch(ctx, batch.BatchUUID); err != nil {
				return fmt.Errorf("confirm: %s", whpapi.MessageOr(err, err.Error()))
			}
			if opts.Format == "text" {
				fmt.Fprintf(out, "batch %s confirmed\n", batch.BatchUUID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "confirm the batch after validation")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall request timeout")
	return cmd
}

func newValidateCommand(opts *RootOptions) *cobra.Command {
	var checksum bool

	cmd := &cobra.Command{
		Use:   "validate <form> [values.json]",
		Short: "Check form values against a bundled schema",
		Long: `Without a values file, validate prints the fields of the named form.
With one, it prints the error of every field that fails and exits non-zero.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			policies := validate.DefaultPolicies()
			policies.TaxID.Checksum = checksum
			catalog, err := form.LoadCatalog(validate.NewRules(policies))
			if err != nil {
				return err
			}
			schema, err := catalog.Get(args[0])
			if err != nil {
				return fmt.Errorf("%w (available: %s)", err, strings.Join(catalog.Names(), ", "))
			}

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				if opts.Format == "json" {
					return writeJSON(out, schema)
				}
				return printFields(out, schema)
			}

			raw, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			var values form.Values
			if err := json.Unmarshal(raw, &values); err != nil {
				return fmt.Errorf("decode %s: %w", args[1], err)
			}

			errs := form.ComputeErrors(schema, catalog.Rules(), values)
			if opts.Format == "json" {
				if err := writeJSON(out, map[string]interface{}{"valid": len(errs) == 0, "errors": errs}); err != nil {
					return err
				}
			} else {
				for _, f := range schema.Fields() {
					if msg, ok := errs[f.Name]; ok {
						fmt.Fprintf(out, "%s: %s\n", f.Name, msg)
					}
				}
				if len(errs) == 0 {
					fmt.Fprintln(out, "ok")
				}
			}
			if len(errs) > 0 {
				return fmt.Errorf("%w: %d field(s)", ErrInvalidValues, len(errs))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&checksum, "tax-id-checksum", false, "verify the national id check digit")
	return cmd
}

func readWorkbook(path string) ([]entity.ImportedRecord, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	records, err := importer.ParseWorkbook(filepath.Base(path), data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s (%s): %w", path, humanize.Bytes(uint64(len(data))), err)
	}
	return records, data, nil
}

func printRecords(w io.Writer, rows []entity.ImportedRecord, onlyFailed bool) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tSTATUS\tEMPLOYEE\tNAME\tREMARK")
	for _, r := range rows {
		if onlyFailed && r.OK() {
			continue
		}
		name := strings.TrimSpace(r.Field("first_name") + " " + r.Field("last_name"))
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.RowNumber, r.Status, r.Field("employee_code"), name, r.Remark)
	}
	return tw.Flush()
}

func printFields(w io.Writer, schema *form.Schema) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", schema.Name, schema.Title)
	fmt.Fprintln(tw, "FIELD\tTYPE\tREQUIRED\tRULES")
	for _, f := range schema.Fields() {
		rules := strings.Trim(f.Sanitizer+","+f.Validator, ",")
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", f.Name, f.Kind, f.Required, rules)
	}
	return tw.Flush()
}
