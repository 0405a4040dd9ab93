package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"permissiondesk/internal/permission"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the analytics feed for the current store contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			feed, err := a.service(permission.Options{}).Analytics(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), feed)
		},
	}
}

func exportCmd() *cobra.Command {
	var asCSV bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print every request as export rows (JSON, or CSV with --csv)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			rows, err := a.service(permission.Options{}).Export(cmd.Context())
			if err != nil {
				return err
			}
			if asCSV {
				return permission.WriteCSV(cmd.OutOrStdout(), rows)
			}
			return writeJSON(cmd.OutOrStdout(), rows)
		},
	}
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV with a header row instead of JSON")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Insert exported documents, keeping their submitted_at values as found",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			recs, err := permission.ReadLegacy(f)
			if err != nil {
				return err
			}

			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			n, err := a.service(permission.Options{}).Import(cmd.Context(), recs)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d records\n", n, len(recs))
			return err
		},
	}
}

func clearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored request",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete everything without --yes")
			}
			a, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			n, err := a.service(permission.Options{}).Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d records\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
