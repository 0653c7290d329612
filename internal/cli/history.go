package cmd

import (
	"fmt"

	"github.com/rohmanhakim/site-crawler/internal/metadata"
	"github.com/rohmanhakim/site-crawler/internal/storage"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the statistics pages of past crawls",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sink, err := historySink(cmd)
			if err != nil {
				return err
			}
			names, histErr := sink.History()
			if histErr != nil {
				return histErr
			}
			if len(names) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No crawl history in %s\n", sink.OutputDir())
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show <file>",
		Short: "Print a stored statistics page as Markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sink, err := historySink(cmd)
			if err != nil {
				return err
			}
			md, readErr := sink.ReadMarkdown(args[0])
			if readErr != nil {
				return readErr
			}
			fmt.Fprintln(cmd.OutOrStdout(), md)
			return nil
		},
	})
	return cmd
}

func historySink(cmd *cobra.Command) (*storage.LocalSink, error) {
	cfg, err := InitConfigWithError()
	if err != nil {
		return nil, err
	}
	logger := setupLogger(verbose, cmd.ErrOrStderr())
	return storage.NewLocalSink(metadata.NewRecorder("history", logger), cfg.OutputDir()), nil
}
