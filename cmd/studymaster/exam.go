package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pavelanni/studymaster/internal/exam"
	appI18n "github.com/pavelanni/studymaster/internal/i18n"
	"github.com/pavelanni/studymaster/internal/model"
)

const stopCommand = ":stop"

func examCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exam SUBJECT",
		Short: "Take an exam on a random sample of a subject's questions",
		Long: "Take an exam on a random sample of a subject's questions.\n" +
			"Type " + stopCommand + " (or send EOF) to stop early; unanswered questions go to the wrong note.",
		Args: cobra.ExactArgs(1),
		RunE: runExam,
	}
	f := cmd.Flags()
	f.IntP("count", "n", 10, "Number of questions")
	f.Duration("pace", time.Second, "Pause before the next question on an interactive terminal")
	return cmd
}

func runExam(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	cfg := model.ExamConfig{
		Count: a.v.GetInt("count"),
		Pace:  a.v.GetDuration("pace"),
	}

	bank, err := a.store.LoadBank(args[0])
	if err != nil {
		return err
	}
	subject := strings.TrimSpace(args[0])
	sess, err := exam.New(model.SubjectContext{Name: subject, Bank: bank}, cfg.Count, a.store)
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	pace := time.Duration(0)
	if isTerminal(in) {
		pace = cfg.Pace
	}
	return a.runSession(sess, bufio.NewReader(in), pace)
}

func (a *app) runSession(sess *exam.Session, in *bufio.Reader, pace time.Duration) error {
	a.say("ExamStart", map[string]any{"Subject": sess.Subject(), "Total": sess.Total()})

	for sess.State() == exam.StateInProgress {
		q, _ := sess.Current()
		a.say("QuestionN", map[string]any{"N": sess.Index() + 1, "Total": sess.Total(), "Text": q.Text})
		fmt.Fprint(a.out, appI18n.T(a.ctx, "AnswerPrompt"))

		line, readErr := in.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return fmt.Errorf("read answer: %w", readErr)
		}
		if (readErr == io.EOF && line == "") || strings.TrimSpace(line) == stopCommand {
			fmt.Fprintln(a.out)
			if err := sess.StopEarly(); err != nil {
				return err
			}
			a.say("ExamStopped", nil)
			break
		}

		out, err := sess.Submit(line)
		if out.Correct {
			a.say("Correct", nil)
		} else {
			a.say("Wrong", map[string]any{"Answer": out.CorrectAnswer})
		}
		if err != nil {
			return err
		}
		if sess.State() == exam.StateInProgress && pace > 0 {
			time.Sleep(pace)
		}
	}

	res, _ := sess.Result()
	a.say("ExamFinished", map[string]any{
		"Score":   res.Score,
		"Total":   res.Total,
		"Percent": fmt.Sprintf("%.1f", res.Percent),
	})
	if key := sess.NoteKey(); key != "" {
		a.say("NoteSaved", map[string]any{"Key": key})
	}
	return nil
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
