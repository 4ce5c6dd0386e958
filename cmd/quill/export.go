package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"quill/internal/export"
)

var (
	exportHTML bool
	exportOut  string
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Render a session's content structure to Markdown or HTML",
	Long: `Renders the stored content structure of a session as a Markdown document,
or as HTML with --html. Writes to stdout unless -o is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		store, err := connectStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close(ctx)

		info, err := store.LoadSession(ctx, args[0])
		if err != nil {
			return fmt.Errorf("load session %s: %w", args[0], err)
		}
		sections, err := store.ContentStructure(ctx)
		if err != nil {
			return fmt.Errorf("read content structure: %w", err)
		}

		doc := export.Markdown(info.Topic, sections)
		if exportHTML {
			doc, err = export.HTML(info.Topic, sections)
			if err != nil {
				return err
			}
		}

		if exportOut == "" {
			fmt.Print(doc)
			return nil
		}
		if err := os.WriteFile(exportOut, []byte(doc), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", exportOut, err)
		}
		fmt.Printf("Exported session %s to %s\n", info.ID, exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().BoolVar(&exportHTML, "html", false, "render HTML instead of Markdown")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "write the document to a file")
}
