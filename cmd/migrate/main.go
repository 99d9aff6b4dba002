package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"gopharma/config"
	"gopharma/internal/pkg/database"
	"gopharma/internal/pkg/logger"
	"gopharma/migrations"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️ Aviso: arquivo .env não encontrado. Carregando configs apenas do ambiente do sistema: %v", err)
	}

	cfg := config.LoadConfig()
	if cfg.RecordSource != config.SourcePostgres {
		log.Fatalf("goose: migrações exigem RECORD_SOURCE=%s (atual: %s)", config.SourcePostgres, cfg.RecordSource)
	}

	var migrationsDir string
	flag.StringVar(&migrationsDir, "dir", "", "diretório com as migrações (vazio usa as migrações embutidas)")
	flag.Parse()

	db, err := database.NewPostgresDB(cfg.DatabaseURL, logger.NewLogger(cfg.LogLevel))
	if err != nil {
		log.Fatalf("goose: falha ao conectar ao DB: %v\n", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Fatalf("goose: falha ao fechar o DB: %v\n", err)
		}
	}()

	if migrationsDir == "" {
		goose.SetBaseFS(migrations.FS)
		migrationsDir = "."
	}
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("goose: %v", err)
	}

	arguments := flag.Args()
	if len(arguments) == 0 {
		arguments = []string{"up"}
	}

	command := arguments[0]
	var args []string
	if len(arguments) > 1 {
		args = arguments[1:]
	}

	if err := goose.Run(command, db, migrationsDir, args...); err != nil {
		log.Fatalf("goose %v: %v", command, err)
	}

	fmt.Printf("goose %s success\n", command)
}
