package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"scoreview/internal/console"
	"scoreview/internal/storage"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List stored payload snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		snaps, err := store.List(limit)
		if err != nil {
			return err
		}
		return printSnapshots(os.Stdout, snaps)
	},
}

func init() {
	snapshotsCmd.Flags().Int("limit", 20, "number of snapshots to list, newest first")
	rootCmd.AddCommand(snapshotsCmd)
}

func printSnapshots(w io.Writer, snaps []storage.Snapshot) error {
	if len(snaps) == 0 {
		_, err := fmt.Fprintln(w, "no snapshots stored")
		return err
	}
	rows := make([][]string, 0, len(snaps))
	for _, snap := range snaps {
		rows = append(rows, []string{
			strconv.FormatInt(snap.ID, 10),
			snap.View,
			orDash(snap.Slug),
			tickText(snap.FromTick),
			tickText(snap.ToTick),
			snap.FetchedAt.Local().Format(time.DateTime),
			strconv.Itoa(len(snap.Payload)),
		})
	}
	header := []string{"ID", "VIEW", "SERVICE", "FROM", "TO", "FETCHED", "BYTES"}
	_, err := io.WriteString(w, console.New(w).Table(header, rows))
	return err
}

func tickText(tick *int) string {
	if tick == nil {
		return "-"
	}
	return strconv.Itoa(*tick)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
