package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored writing sessions",
	Long:  `Lists every session stored in the graph, newest first. Resume one with quill --session <id>.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		store, err := connectStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close(ctx)

		sessions, err := store.ListSessions(ctx)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No stored sessions.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTOPIC\tTYPE\tPHASE\tCREATED")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				s.ID, s.Topic, s.ContentType, s.CurrentPhase, s.Created.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}
