package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

var (
	dsn       = flag.String("dsn", "", "Postgres DSN (default: env DATABASE_URL)")
	olderThan = flag.Duration("older-than", 0, "Only delete responses fetched longer ago than this (0 = all)")
	source    = flag.String("source", "", "Only delete responses for this source name")
	dryRun    = flag.Bool("dry-run", false, "Count matching rows only; no deletes")
	confirm   = flag.Bool("confirm", false, "Required to delete")
)

// reloadLockKey matches the lock the service takes while reloading.
const reloadLockKey = "pockets:reload"

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "purge-cache: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()
	if *dsn == "" {
		*dsn = os.Getenv("DATABASE_URL")
	}
	if *dsn == "" {
		fatalf("--dsn not provided and DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		fatalf("ping: %v", err)
	}

	where, args := filter(*olderThan, *source, time.Now())

	var n int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pockets.census_responses`+where, args...).Scan(&n); err != nil {
		fatalf("count: %v", err)
	}
	fmt.Printf("Matching cached responses: %d\n", n)

	if *dryRun {
		fmt.Println("Dry run complete. No changes made.")
		return
	}
	if !*confirm {
		fatalf("Refusing to delete without --confirm. Add --dry-run to preview.")
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		fatalf("begin tx: %v", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Wait out a running reload so it does not repopulate rows mid-purge.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, reloadLockKey); err != nil {
		fatalf("advisory lock: %v", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM pockets.census_responses`+where, args...)
	if err != nil {
		fatalf("delete: %v", err)
	}
	if err := tx.Commit(); err != nil {
		fatalf("commit: %v", err)
	}

	deleted, _ := res.RowsAffected()
	fmt.Printf("Deleted %d cached responses\n", deleted)
}

// filter builds the WHERE clause for the purge.
func filter(olderThan time.Duration, source string, now time.Time) (string, []any) {
	var (
		clause string
		args   []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		if clause == "" {
			clause = " WHERE "
		} else {
			clause += " AND "
		}
		clause += fmt.Sprintf(cond, len(args))
	}
	if olderThan > 0 {
		add("last_fetched < $%d", now.Add(-olderThan))
	}
	if source != "" {
		add("source = $%d", source)
	}
	return clause, args
}
