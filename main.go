package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/mbolis/quick-forms/app"
	"github.com/mbolis/quick-forms/config"
	"github.com/mbolis/quick-forms/database"
	"github.com/mbolis/quick-forms/httpx"
	"github.com/mbolis/quick-forms/log"
	"github.com/mbolis/quick-forms/routes"
	"github.com/mbolis/quick-forms/storage"
)

func main() {
	if err := config.LoadEnv(); err != nil {
		log.Fatal("main.env:", err)
	}
	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg.DBUrl)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	if cfg.AdminUser != "" {
		err = database.UpsertUser(context.Background(), db, cfg.AdminUser, cfg.AdminPassword, database.RoleAdmin)
		if err != nil {
			log.Fatal("main.db.admin_user:", err)
		}
		log.Infof("Admin user %s ready", cfg.AdminUser)
	}

	app := app.App{
		DB:           db,
		BearerServer: httpx.NewBearerServer(db, cfg),
		Config:       cfg,
		Uploads:      storage.NewDiskUploader(cfg.UploadDir, cfg.UploadBaseURL, storage.WithMaxSize(cfg.MaxUploadSize)),
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
