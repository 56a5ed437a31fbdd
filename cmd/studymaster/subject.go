package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func subjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subject",
		Short: "Manage subjects",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List subjects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			names, err := a.store.ListSubjects()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				a.say("NoSubjects", nil)
				return nil
			}
			for _, n := range names {
				fmt.Fprintln(a.out, n)
			}
			return nil
		},
	}

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create an empty subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if err := a.store.CreateSubject(args[0]); err != nil {
				return err
			}
			a.say("SubjectCreated", map[string]any{"Name": strings.TrimSpace(args[0])})
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a subject with its bank, stats and notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if !a.confirmed(cmd) {
				return nil
			}
			if err := a.store.DeleteSubject(args[0]); err != nil {
				return err
			}
			a.say("SubjectDeleted", map[string]any{"Name": args[0]})
			return nil
		},
	}
	del.Flags().Bool("yes", false, "Confirm deletion")

	reset := &cobra.Command{
		Use:   "reset NAME",
		Short: "Clear a subject's stats and wrong notes, keeping its questions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			if !a.confirmed(cmd) {
				return nil
			}
			if err := a.store.ResetRecords(args[0]); err != nil {
				return err
			}
			a.say("SubjectReset", map[string]any{"Name": args[0]})
			return nil
		},
	}
	reset.Flags().Bool("yes", false, "Confirm reset")

	export := &cobra.Command{
		Use:   "export NAME",
		Short: "Export a subject as a zip archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			outPath, _ := cmd.Flags().GetString("output")
			if outPath == "" {
				outPath = strings.TrimSpace(args[0]) + ".zip"
			}

			var w io.Writer
			if outPath == "-" {
				w = a.out
			} else {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				w = f
			}
			if err := a.store.ExportSubject(args[0], w); err != nil {
				if outPath != "-" {
					_ = os.Remove(outPath)
				}
				return err
			}
			if outPath != "-" {
				a.say("SubjectExported", map[string]any{"Name": args[0], "Path": outPath})
			}
			return nil
		},
	}
	export.Flags().StringP("output", "o", "", "Output file path (default NAME.zip, - for stdout)")

	imp := &cobra.Command{
		Use:   "import FILE",
		Short: "Import subjects from a zip archive, replacing same-named subjects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read archive: %w", err)
			}
			names, err := a.store.ImportArchive(data)
			// A failed swap still reports what made it in.
			if len(names) > 0 {
				a.say("SubjectsImported", map[string]any{"Names": strings.Join(names, ", ")})
			}
			return err
		},
	}

	cmd.AddCommand(list, create, del, reset, export, imp)
	return cmd
}
