package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// Questions are numbered from 1 on the command line.
func questionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "question",
		Aliases: []string{"q"},
		Short:   "Manage a subject's question bank",
	}

	list := &cobra.Command{
		Use:   "list SUBJECT",
		Short: "List questions with their answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			bank, err := a.store.LoadBank(args[0])
			if err != nil {
				return err
			}
			if len(bank) == 0 {
				a.say("NoQuestions", nil)
				return nil
			}
			for i, q := range bank {
				fmt.Fprintf(a.out, "%d. %s -> %s\n", i+1, q.Text, q.Answer)
			}
			a.sayN("QuestionsAvailable", len(bank))
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add SUBJECT QUESTION ANSWER",
		Short: "Append a question",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			added, err := a.store.AddQuestion(args[0], args[1], args[2])
			if err != nil {
				return err
			}
			if !added {
				a.say("QuestionSkipped", nil)
				return nil
			}
			a.say("QuestionAdded", nil)
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove SUBJECT NUMBER...",
		Short: "Remove questions by their number in the list",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			indices := make([]int, 0, len(args)-1)
			for _, raw := range args[1:] {
				n, err := strconv.Atoi(raw)
				if err != nil {
					return fmt.Errorf("invalid question number %q", raw)
				}
				indices = append(indices, n-1)
			}
			if !a.confirmed(cmd) {
				return nil
			}
			before, err := a.store.LoadBank(args[0])
			if err != nil {
				return err
			}
			remaining, err := a.store.RemoveQuestions(args[0], indices)
			if err != nil {
				return err
			}
			a.sayN("QuestionsRemoved", len(before)-len(remaining))
			return nil
		},
	}
	remove.Flags().Bool("yes", false, "Confirm removal")

	imp := &cobra.Command{
		Use:   "import SUBJECT FILE",
		Short: "Append questions from a JSON array of {question, answer}",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[1], err)
			}
			defer f.Close()
			n, err := a.store.ImportQuestions(args[0], f)
			if err != nil {
				return err
			}
			a.sayN("QuestionsImported", n)
			return nil
		},
	}

	cmd.AddCommand(list, add, remove, imp)
	return cmd
}
