package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"txguardian/internal/db"
	"txguardian/internal/logger"

	"github.com/joho/godotenv"
)

// Lists pending schema migrations, or applies them in numbered order with
// -apply. Migrations are plain SQL and idempotent (IF NOT EXISTS), so
// re-running the tool is safe.
func main() {
	logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_JSON") == "true")
	_ = godotenv.Load()

	apply := flag.Bool("apply", false, "apply migrations instead of listing them")
	dir := flag.String("dir", envDefault("MIGRATIONS_DIR", filepath.Join("internal", "migrations")), "migrations directory")
	flag.Parse()

	entries, err := os.ReadDir(*dir)
	if err != nil {
		logger.Fatal("read migrations dir failed", "dir", *dir, "error", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	if !*apply {
		for _, name := range files {
			logger.Info("pending migration", "file", name)
		}
		return
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL is not set")
	}
	pool := db.Connect(dsn)
	defer pool.Close()

	for _, name := range files {
		sql, err := os.ReadFile(filepath.Join(*dir, name))
		if err != nil {
			logger.Fatal("read migration failed", "file", name, "error", err)
		}
		if _, err := pool.Exec(context.Background(), string(sql)); err != nil {
			logger.Fatal("apply migration failed", "file", name, "error", err)
		}
		logger.Info("applied migration", "file", name)
	}
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
