package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	appI18n "github.com/pavelanni/studymaster/internal/i18n"
	"github.com/pavelanni/studymaster/internal/model"
)

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats SUBJECT",
		Short: "Show recent exam results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			results, err := a.store.RecentResults(args[0], a.v.GetInt("limit"))
			if err != nil {
				return err
			}
			if len(results) == 0 {
				a.say("NoStats", nil)
				return nil
			}
			for _, r := range results {
				fmt.Fprintf(a.out, "%s  %d/%d  %.1f%%\n", r.Date, r.Score, r.Total, r.Percent)
			}
			return nil
		},
	}
	cmd.Flags().Int("limit", 10, "Number of most recent results to show (0 = all)")
	return cmd
}

func notesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Browse wrong-answer notes",
	}

	list := &cobra.Command{
		Use:   "list SUBJECT",
		Short: "List wrong notes, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			keys, err := a.store.ListNotes(args[0])
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				a.say("NoNotes", nil)
				return nil
			}
			for _, k := range keys {
				fmt.Fprintln(a.out, k)
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show SUBJECT KEY",
		Short: "Show the wrong answers stored in a note",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			records, err := a.store.ReadNote(args[0], args[1])
			if err != nil {
				return err
			}
			printRecords(a.out, records, appI18n.NoteLabels(a.ctx))
			return nil
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func printRecords(w io.Writer, records []model.WrongRecord, l model.NoteLabels) {
	for i, r := range records {
		user := r.UserAnswer
		switch user {
		case model.NoAnswer:
			user = l.NoAnswer
		case model.StoppedEarly:
			user = l.StoppedEarly
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s: %s\n", l.Question, r.Question)
		fmt.Fprintf(w, "%s: %s\n", l.UserAnswer, user)
		fmt.Fprintf(w, "%s: %s\n", l.CorrectAnswer, r.CorrectAnswer)
	}
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report SUBJECT",
		Short: "Export a subject's results and wrong notes as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			report, err := a.store.Report(args[0], a.v.GetInt("limit"))
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal JSON: %w", err)
			}

			outPath := a.v.GetString("output")
			var w io.Writer
			if outPath == "" || outPath == "-" {
				w = a.out
			} else {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				w = f
			}

			if _, err := w.Write(data); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			// Ensure trailing newline.
			_, _ = fmt.Fprintln(w)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.Int("limit", 0, "Number of most recent results to include (0 = all)")
	return cmd
}
