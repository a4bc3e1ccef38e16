package main

import (
	"flag"
	"log"
	"net/http"

	"grocery_server_go/apperr"
	"grocery_server_go/auth"
	"grocery_server_go/config"
	"grocery_server_go/controllers"
	"grocery_server_go/data"
	"grocery_server_go/storage"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML-файлу конфигурации")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Инициализация баз данных
	mainDB, err := data.OpenMainDB(cfg.Database.Driver, cfg.Database.MainDSN)
	if err != nil {
		log.Fatalf("Failed to initialize main database: %v", err)
	}
	defer mainDB.Close()

	authDB, err := data.OpenAuthDB(cfg.Database.Driver, cfg.Database.AuthDSN)
	if err != nil {
		log.Fatalf("Failed to initialize auth database: %v", err)
	}
	defer authDB.Close()

	blobs, err := storage.NewLocalBlobStore(cfg.Storage.Dir, cfg.Storage.PublicBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize blob storage: %v", err)
	}

	retrier := apperr.NewRetrier(cfg.Commit.RetryAttempts, cfg.Commit.RetryBaseDelay.Std(), cfg.Commit.RetryMaxDelay.Std())
	tasks := data.NewTaskStore(mainDB)
	tasks.SetRetrier(retrier)

	api := &controllers.API{
		Users:          data.NewUserStore(authDB),
		Tasks:          tasks,
		Blobs:          blobs,
		Tokens:         auth.NewTokenService(cfg.Auth.JWTKey, cfg.Auth.TokenTTL.Std()),
		Retrier:        retrier,
		CommitTimeout:  cfg.Commit.Timeout.Std(),
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		Databases:      map[string]controllers.Pinger{"main": mainDB, "auth": authDB},
	}
	router := controllers.NewRouter(api)

	log.Printf("Запуск сервера на %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, router); err != nil {
		log.Fatal(err)
	}
}
