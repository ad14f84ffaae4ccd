package handlers

import (
	"bufio"
	"bytes"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"lessonrec/internal/config"
	"lessonrec/internal/core"
	"lessonrec/internal/store"
)

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <items|quizzes|events> <file>",
		Short: "Import catalog items, quizzes or interaction events",
		Long: `Import records into the store from a JSON file. The file may be a
single JSON array or newline-delimited JSON objects.

Items and quizzes replace the existing catalog; events are appended.
Run "lessonrec train" afterwards to rebuild the snapshot.`,
		Example: `  # Replace the catalog
  lessonrec import items catalog.json

  # Append interaction events from a JSONL export
  lessonrec import events events.jsonl`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, path := args[0], args[1]
			cfg := config.Get()

			st, err := store.NewStore(cfg.StorePath())
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}

			var n int
			switch kind {
			case "items":
				var items []core.CatalogItem
				if err := decodeRecords(data, &items); err != nil {
					return err
				}
				n, err = st.ReplaceItems(cmd.Context(), items)
			case "quizzes":
				var quizzes []core.Quiz
				if err := decodeRecords(data, &quizzes); err != nil {
					return err
				}
				n, err = st.ReplaceQuizzes(cmd.Context(), quizzes)
			case "events":
				var events []core.Interaction
				if err := decodeRecords(data, &events); err != nil {
					return err
				}
				n, err = st.AddInteractions(cmd.Context(), events)
			default:
				return fmt.Errorf("unknown record kind %q (want items, quizzes or events)", kind)
			}
			if err != nil {
				return fmt.Errorf("importing %s: %w", kind, err)
			}

			fmt.Printf("Imported %d %s from %s\n", n, kind, path)
			return nil
		},
	}

	return cmd
}

// decodeRecords accepts either a JSON array or newline-delimited objects.
func decodeRecords[T any](data []byte, out *[]T) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, out); err != nil {
			return fmt.Errorf("parsing JSON array: %w", err)
		}
		return nil
	}

	sc := bufio.NewScanner(bytes.NewReader(trimmed))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("parsing line %d: %w", line, err)
		}
		*out = append(*out, rec)
	}
	return sc.Err()
}
