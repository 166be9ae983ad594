package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/adfharrison1/go-jsondb/pkg/storage"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Work with backup snapshots",
}

var backupInspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Summarize the collections in a backup file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return inspectBackup(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	backupCmd.AddCommand(backupInspectCmd)
}

// inspectBackup prints one row per collection, sorted by name.
func inspectBackup(w io.Writer, path string) error {
	data, err := storage.ReadBackup(path)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(data.Collections))
	for name := range data.Collections {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "backup %s created %s\n", path, data.CreatedAt.Format(time.RFC3339))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLLECTION\tDOCUMENTS\tINDEXES\tFILE")
	for _, name := range names {
		c := data.Collections[name]
		indexes := make([]string, 0, len(c.Indexes))
		for _, idx := range c.Indexes {
			indexes = append(indexes, idx.Name+"("+idx.Key+")")
		}
		file := c.File
		if file == "" {
			file = "-"
		}
		fmt.Fprintf(tw, "%s\t%d\t%v\t%s\n", name, len(c.Documents), indexes, file)
	}
	return tw.Flush()
}
