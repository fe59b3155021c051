package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"modqueue/backend/internal/casestore"
	"modqueue/backend/internal/config"
	"modqueue/backend/internal/outbox"
	"modqueue/backend/internal/sla"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// systemActorID marks CLI-driven adjustments in the audit trail.
const systemActorID = 0

func main() {
	cfg := config.Load()
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		os.Exit(1)
	}

	ctx := context.Background()
	command := os.Args[1]

	switch command {
	case "adjust-points":
		if len(os.Args) < 5 {
			fmt.Println("Usage: admin adjust-points <user_id> <amount> <reason>")
			os.Exit(1)
		}
		userID, err := strconv.ParseInt(os.Args[2], 10, 64)
		if err != nil {
			fmt.Println("Invalid user ID. Please provide an integer.")
			os.Exit(1)
		}
		amount, err := strconv.Atoi(os.Args[3])
		if err != nil {
			fmt.Println("Invalid amount. Please provide an integer.")
			os.Exit(1)
		}
		reason := os.Args[4]

		cases := casestore.NewService(db)
		dedupeKey := fmt.Sprintf("manual:%d:%s", userID, uuid.NewString())
		result, err := cases.AdjustUserPoints(ctx, systemActorID, userID, amount, reason, dedupeKey)
		if err != nil {
			log.Fatalf("Error adjusting points: %v", err)
		}
		fmt.Printf("Applied %d points to user %d (entry #%d).\n", amount, userID, result.Entry.ID)

	case "replay-outbox":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin replay-outbox <entry_id|all>")
			os.Exit(1)
		}
		dispatcher := outbox.NewDispatcher(db, nil, outbox.DefaultDispatcherConfig())
		if os.Args[2] == "all" {
			n, err := dispatcher.ReplayAllFailed(ctx)
			if err != nil {
				log.Fatalf("Error replaying outbox: %v", err)
			}
			fmt.Printf("Requeued %d failed entries.\n", n)
			return
		}
		entryID, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Println("Invalid entry ID. Please provide an integer.")
			os.Exit(1)
		}
		if err := dispatcher.Replay(ctx, uint(entryID)); err != nil {
			log.Fatalf("Error replaying entry: %v", err)
		}
		fmt.Printf("Entry %d requeued for delivery.\n", entryID)

	case "escalate-once":
		// One manual scan with no sink: marks the cases without sending
		// chat notices.
		scheduler := sla.NewScheduler(db, nil, sla.DefaultSchedulerConfig())
		escalations, err := scheduler.EscalateOverdue(ctx)
		if err != nil {
			log.Fatalf("Error escalating: %v", err)
		}
		for _, esc := range escalations {
			fmt.Printf("Escalated appeal #%d (level %d, deadline %s).\n",
				esc.CaseID, esc.EscalationLevel, esc.SLADeadlineAt.Format("2006-01-02 15:04"))
		}
		fmt.Printf("%d appeals escalated.\n", len(escalations))

	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}
