package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"dockout/frontend/picking"
	"dockout/infrastructure/audit"
	"dockout/infrastructure/config"
	"dockout/infrastructure/locks"
	"dockout/infrastructure/sap"
	"dockout/infrastructure/sqlite"
	"dockout/models"
)

func main() {
	token := flag.String("token", "", "VEP token whose picking calls are replayed (required)")
	dbPath := flag.String("db", getenv("SQLITE_PATH", "dockout.db"), "SQLite database path")
	doNo := flag.String("do", "", "only replay this delivery order")
	all := flag.Bool("all", false, "replay every logged call, not only the latest failed one per delivery order")
	dryRun := flag.Bool("dry-run", false, "list the calls that would be replayed without sending them")
	flag.Parse()

	if *token == "" {
		flag.Usage()
		os.Exit(2)
	}

	db, err := sqlite.OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := sqlite.ApplyMigrations(context.Background(), db, ""); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	var rows []models.PickingLog
	err = db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		var err error
		rows, err = picking.ListPickingLogs(ctx, tx, *token)
		return err
	})
	if err != nil {
		log.Fatalf("list picking logs: %v", err)
	}

	selected := selectReplays(rows, *doNo, *all)
	if len(selected) == 0 {
		fmt.Printf("nothing to replay for token %s\n", *token)
		return
	}
	if *dryRun {
		printRows(os.Stdout, selected)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	sapClient := sap.NewClient(cfg.SAP, nil, cfg.UpstreamTimeout)
	orch := picking.NewOrchestrator(sapClient, db, audit.NewService(), locks.NewMemoryGuard())

	runID := "replay-" + uuid.NewString()
	failed := replay(context.Background(), os.Stdout, orch, runID, selected)
	if failed > 0 {
		os.Exit(1)
	}
}

// selectReplays picks the logged calls to resend. Without all, only the
// latest call per delivery order is considered and only when it failed.
func selectReplays(rows []models.PickingLog, doNo string, all bool) []models.PickingLog {
	filtered := make([]models.PickingLog, 0, len(rows))
	for _, row := range rows {
		if doNo != "" && row.DoNo != doNo {
			continue
		}
		filtered = append(filtered, row)
	}
	if all {
		return filtered
	}

	latest := make(map[string]int)
	order := make([]string, 0)
	for i, row := range filtered {
		if _, seen := latest[row.DoNo]; !seen {
			order = append(order, row.DoNo)
		}
		latest[row.DoNo] = i
	}
	out := make([]models.PickingLog, 0, len(order))
	for _, do := range order {
		row := filtered[latest[do]]
		if row.Outcome == string(models.StatusPicked) {
			continue
		}
		out = append(out, row)
	}
	return out
}

type replayer interface {
	Replay(ctx context.Context, runID string, row models.PickingLog) (picking.Result, error)
}

// replay resends rows in order and returns how many did not come back picked.
func replay(ctx context.Context, w io.Writer, r replayer, runID string, rows []models.PickingLog) int {
	failed := 0
	for _, row := range rows {
		res, err := r.Replay(ctx, runID, row)
		if err != nil {
			failed++
			fmt.Fprintf(w, "%s\tlog %d\tskipped: %v\n", row.DoNo, row.ID, err)
			continue
		}
		if !res.Picked() {
			failed++
		}
		fmt.Fprintf(w, "%s\tlog %d\t%s\t%s\n", row.DoNo, row.ID, res.Status, res.Message)
	}
	return failed
}

func printRows(w io.Writer, rows []models.PickingLog) {
	for _, row := range rows {
		fmt.Fprintf(w, "%s\tlog %d\t%s\t%s\n", row.DoNo, row.ID, row.Outcome, row.Message)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
