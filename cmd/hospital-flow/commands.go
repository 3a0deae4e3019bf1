package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/i474232898/hospital-flow/internal/benchmark"
	"github.com/i474232898/hospital-flow/internal/export"
)

// peerFlag resolves --peers against the configured default. An explicit
// empty value disables filtering.
func peerFlag(cmd *cobra.Command, value string, defaults benchmark.PeerSet) benchmark.PeerSet {
	if cmd.Flags().Changed("peers") {
		return benchmark.ParsePeers(value)
	}
	return defaults
}

func fetchCmd() *cobra.Command {
	var period, peers string
	cmd := &cobra.Command{
		Use:   "fetch <dataset>",
		Short: "Download (or read from cache) a publication and print the peer rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.service.Fetch(cmd.Context(), benchmark.Dataset(args[0]), period, peerFlag(cmd, peers, a.cfg.PeerSet()))
			if err != nil {
				return err
			}
			if res.Empty {
				fmt.Fprintln(cmd.OutOrStdout(), "No rows matched the requested peers.")
				return nil
			}
			return printTable(cmd.OutOrStdout(), res.Table)
		},
	}
	cmd.Flags().StringVar(&period, "period", benchmark.PeriodLatest, `period label, "latest" or "all"`)
	cmd.Flags().StringVar(&peers, "peers", "", "comma-separated provider name fragments or codes")
	return cmd
}

func compareCmd() *cobra.Command {
	var period, peers, metric, mainProvider string
	cmd := &cobra.Command{
		Use:   "compare <dataset>",
		Short: "Rank a main provider against its peers on one metric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			cmp, err := a.service.Compare(cmd.Context(), benchmark.CompareRequest{
				Dataset: benchmark.Dataset(args[0]),
				Period:  period,
				Metric:  metric,
				Main:    mainProvider,
				Peers:   peerFlag(cmd, peers, a.cfg.PeerSet()),
			})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "%s (%s)\n", cmp.Metric, strings.Join(cmp.Periods, ", "))
			fmt.Fprintln(w, "RANK\tPROVIDER\tVALUE\t")
			for _, r := range cmp.Ranking {
				marker := ""
				if r.IsMain {
					marker = "*"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.Rank, r.Provider, strconv.FormatFloat(r.Value, 'f', -1, 64), marker)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&period, "period", benchmark.PeriodLatest, `period label, "latest" or "all"`)
	cmd.Flags().StringVar(&peers, "peers", "", "comma-separated provider name fragments or codes")
	cmd.Flags().StringVar(&metric, "metric", "", "metric column name or fragment (default: first metric)")
	cmd.Flags().StringVar(&mainProvider, "main", "", "main provider name fragment or code")
	_ = cmd.MarkFlagRequired("main")
	return cmd
}

func exportCmd() *cobra.Command {
	var period, peers, out string
	cmd := &cobra.Command{
		Use:   "export <dataset>",
		Short: "Write the peer rows of a publication to a Parquet file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.service.Fetch(cmd.Context(), benchmark.Dataset(args[0]), period, peerFlag(cmd, peers, a.cfg.PeerSet()))
			if err != nil {
				return err
			}
			n, err := export.WriteFile(out, res)
			if err != nil {
				return err
			}
			a.logger.Info().Str("path", out).Int("rows", n).Msg("export complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", benchmark.PeriodAll, `period label, "latest" or "all"`)
	cmd.Flags().StringVar(&peers, "peers", "", "comma-separated provider name fragments or codes")
	cmd.Flags().StringVar(&out, "out", "", "output Parquet file")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func periodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "periods",
		Short: "List the supported periods of every dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATASET\tFORMAT\tPERIODS")
			for _, d := range a.service.Catalog() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", d.Dataset, d.Format, strings.Join(d.Periods, ", "))
			}
			return w.Flush()
		},
	}
}

func printTable(out io.Writer, t *benchmark.Table) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(t.Columns, "\t"))
	for _, r := range t.Rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	return w.Flush()
}
