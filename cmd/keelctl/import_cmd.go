package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/amengaji/Keel/internal/core"
	"github.com/amengaji/Keel/internal/logging"
)

type commandOutput struct {
	Command    string `json:"command"`
	DurationMS int64  `json:"duration_ms"`
	Result     any    `json:"result"`
}

func newPreviewCmd(opts *rootOptions) *cobra.Command {
	var failOnError bool

	cmd := &cobra.Command{
		Use:   "preview <import-type> <file>",
		Short: "Classify every row of a workbook without writing",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			svc, closeStore, err := openService(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeStore()

			start := time.Now()
			report, err := svc.Preview(cmd.Context(), args[0], data)
			if err != nil {
				return describe(err)
			}
			if err := writeJSON(commandOutput{
				Command:    "preview " + args[0],
				DurationMS: time.Since(start).Milliseconds(),
				Result:     report,
			}); err != nil {
				return err
			}
			if failOnError && report.Summary.Fail > 0 {
				return &exitError{code: 2, err: fmt.Errorf("%d row(s) failed", report.Summary.Fail)}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failOnError, "fail-on-error", false, "Exit 2 when any row is FAIL")
	return cmd
}

func newCommitCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit <import-type> <file>",
		Short: "Re-validate a workbook and create every eligible row in one transaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			svc, closeStore, err := openService(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeStore()

			ctx := core.ContextWithClient(cmd.Context(), "", "keelctl")
			ctx = logging.NewContext(ctx, slog.Default().With("command", "commit"))
			start := time.Now()
			result, err := svc.Commit(ctx, core.CommitRequest{
				ImportType: args[0],
				FileName:   filepath.Base(args[1]),
				Data:       data,
			})

			var aborted *core.CommitAbortedError
			if errors.As(err, &aborted) {
				if werr := writeJSON(commandOutput{
					Command:    "commit " + args[0],
					DurationMS: time.Since(start).Milliseconds(),
					Result:     aborted.Preview,
				}); werr != nil {
					return werr
				}
				return &exitError{code: 2, err: err}
			}
			if err != nil {
				return describe(err)
			}
			return writeJSON(commandOutput{
				Command:    "commit " + args[0],
				DurationMS: time.Since(start).Milliseconds(),
				Result:     result,
			})
		},
	}
	return cmd
}

func newTemplateCmd(opts *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "template <import-type>",
		Short: "Write a blank workbook with the column contract and drop-downs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeStore, err := openService(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeStore()

			data, err := svc.Template(cmd.Context(), args[0])
			if err != nil {
				return describe(err)
			}
			if out == "" {
				out = args[0] + "_template.xlsx"
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output path (default <import-type>_template.xlsx)")
	return cmd
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [import-type]",
		Short: "List committed import batches, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeStore, err := openService(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeStore()

			importType := ""
			if len(args) == 1 {
				importType = args[0]
			}
			batches, err := svc.History(cmd.Context(), importType, limit)
			if err != nil {
				return describe(err)
			}
			return writeJSON(batches)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", core.DefaultHistoryLimit, "Maximum batches to list")
	return cmd
}

func newTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List registered import types and their columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos := make([]core.ImportInfo, 0, core.ImportCount())
			for _, def := range core.All() {
				infos = append(infos, def.Info)
			}
			return writeJSON(infos)
		},
	}
}

// describe turns a service error into the user-facing message and action.
func describe(err error) error {
	if !core.IsUserFacing(err) {
		return err
	}
	return fmt.Errorf("%s [%w]", core.FormatUserError(err), err)
}
