package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"

	"github.com/pavelanni/studymaster/internal/handler"
	appI18n "github.com/pavelanni/studymaster/internal/i18n"
	"github.com/pavelanni/studymaster/internal/model"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.IntP("count", "n", 10, "Default number of questions per exam")
	f.Int("limit", 10, "Default number of stats entries returned")
	f.StringSlice("cors-origins", []string{"http://localhost:3000"}, "Allowed CORS origins")
	return cmd
}

func newRouter(a *app, cfg model.ExamConfig, origins []string) (http.Handler, error) {
	h, err := handler.New(a.store, cfg)
	if err != nil {
		return nil, fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Length", "Content-Disposition", "Location"},
		MaxAge:         300,
	}))
	r.Use(appI18n.Middleware(a.v.GetString("lang")))
	h.Routes(r)
	return r, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	cfg := model.ExamConfig{
		Count: a.v.GetInt("count"),
		Limit: a.v.GetInt("limit"),
	}
	origins := a.v.GetStringSlice("cors-origins")

	r, err := newRouter(a, cfg, origins)
	if err != nil {
		return err
	}

	addr := a.v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"data_dir", a.store.Root(),
		"lang", a.v.GetString("lang"),
		"count", cfg.Count,
		"cors_origins", origins,
	)
	return http.ListenAndServe(addr, r)
}
