package main

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/subfusion/checkout/internal/checkout/journal"
	"github.com/subfusion/checkout/internal/checkout/journal/sqlite"
)

var errNoJournal = errors.New("JOURNAL_PATH is not set")

type journalLine struct {
	At      time.Time       `json:"at"`
	TxnID   string          `json:"txn_id"`
	Event   string          `json:"event"`
	Path    string          `json:"path,omitempty"`
	Reason  string          `json:"reason,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	TraceID string          `json:"trace_id,omitempty"`
}

func journalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Read the reconciliation journal",
	}
	cmd.AddCommand(journalShowCmd())
	return cmd
}

func journalShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <txn-id>",
		Short: "Print every journal entry for a transaction, oldest first",
		Long:  "Print every journal entry for a transaction, oldest first. With --latest only the current state is printed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("path")
			if path == "" {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				path = cfg.JournalPath
			}
			if path == "" {
				return errNoJournal
			}

			repo, err := sqlite.Open(path)
			if err != nil {
				return err
			}
			defer repo.Close()

			var entries []*journal.Entry
			if latest, _ := cmd.Flags().GetBool("latest"); latest {
				e, err := repo.Latest(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				entries = append(entries, e)
			} else {
				entries, err = repo.History(cmd.Context(), args[0])
				if err != nil {
					return err
				}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, e := range entries {
				line := journalLine{
					At:      e.At,
					TxnID:   e.TxnID,
					Event:   string(e.Event),
					Path:    e.Path,
					Reason:  e.Reason,
					TraceID: e.TraceID,
				}
				if e.Payload != "" {
					line.Payload = json.RawMessage(e.Payload)
				}
				if err := enc.Encode(line); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().String("path", "", "journal database (overrides JOURNAL_PATH)")
	cmd.Flags().Bool("latest", false, "print only the most recent entry")
	return cmd
}
