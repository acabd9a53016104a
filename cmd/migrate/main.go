package main

import (
	"errors"
	"flag"
	"fmt"
	"log"

	"shopora-be/internal/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	dir := flag.String("dir", "migrations", "path to migration files")
	down := flag.Bool("down", false, "roll back one migration instead of migrating up")
	flag.Parse()

	cfg := config.LoadConfig()

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName,
	)

	m, err := migrate.New("file://"+*dir, dsn)
	if err != nil {
		log.Fatalf("open migrations: %v", err)
	}
	defer m.Close()

	if *down {
		err = m.Steps(-1)
	} else {
		err = m.Up()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		log.Println("no pending migrations")
		return
	}
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("migrations applied")
}
