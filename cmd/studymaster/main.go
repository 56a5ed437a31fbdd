package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	appI18n "github.com/pavelanni/studymaster/internal/i18n"
	"github.com/pavelanni/studymaster/internal/store"
)

func main() {
	_ = godotenv.Load() // .env is optional
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "studymaster",
		Short:        "Question banks, randomized exams and wrong-answer notes",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(cmd)
			lang := viperForCmd(cmd).GetString("lang")
			if err := appI18n.Init(lang); err != nil {
				return fmt.Errorf("init i18n: %w", err)
			}
			return nil
		},
	}

	f := root.PersistentFlags()
	f.String("data-dir", "study_subjects", "Directory holding one folder per subject")
	f.StringP("lang", "l", "en", "Language for messages and wrong notes (en, ko)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	root.AddCommand(
		subjectCmd(),
		questionCmd(),
		examCmd(),
		statsCmd(),
		notesCmd(),
		reportCmd(),
		serveCmd(),
	)
	return root
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(cmd.ErrOrStderr(), handlerOpts)
	default:
		logHandler = slog.NewTextHandler(cmd.ErrOrStderr(), handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("STUDYMASTER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("studymaster")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/studymaster")
	v.AddConfigPath("/etc/studymaster")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// app bundles what every subcommand needs: resolved config, the subject
// store, a localized context and the output stream.
type app struct {
	v     *viper.Viper
	store *store.Store
	ctx   context.Context
	out   io.Writer
}

func newApp(cmd *cobra.Command) (*app, error) {
	v := viperForCmd(cmd)
	ctx := appI18n.Context(v.GetString("lang"))
	st, err := store.New(v.GetString("data-dir"), appI18n.NoteLabels(ctx))
	if err != nil {
		return nil, fmt.Errorf("open data dir: %w", err)
	}
	return &app{v: v, store: st, ctx: ctx, out: cmd.OutOrStdout()}, nil
}

// say prints a localized message followed by a newline.
func (a *app) say(msgID string, data map[string]any) {
	if data == nil {
		fmt.Fprintln(a.out, appI18n.T(a.ctx, msgID))
		return
	}
	fmt.Fprintln(a.out, appI18n.Td(a.ctx, msgID, data))
}

// sayN prints a pluralized localized message.
func (a *app) sayN(msgID string, n int) {
	fmt.Fprintln(a.out, appI18n.Tp(a.ctx, msgID, n))
}

// confirmed reports whether a destructive command was confirmed with --yes.
func (a *app) confirmed(cmd *cobra.Command) bool {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		a.say("ConfirmRequired", nil)
	}
	return yes
}
