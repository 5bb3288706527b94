package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"go.uber.org/zap"

	"github.com/servicefix/dispatch-bot/internal/config"
	"github.com/servicefix/dispatch-bot/internal/persistence"
	"github.com/servicefix/dispatch-bot/internal/repository"
)

func main() {
	chatID := flag.Int64("chat-id", 0, "chat id to grant admin status")
	name := flag.String("name", "AdminUser", "display name for the admin row")
	phone := flag.String("phone", "0000000000", "contact number for the admin row")
	skills := flag.String("skills", "n/a", "skills for the admin row")
	dbPath := flag.String("db", "tickets.db", "path to the sqlite database")
	flag.Parse()

	if *chatID == 0 {
		log.Fatal("missing required -chat-id")
	}

	store, err := persistence.Open(config.StoreConfig{Path: *dbPath, PoolSize: 1}, zap.NewNop())
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	technicians := repository.NewTechnicianRepository(store)
	if err := technicians.GrantAdmin(context.Background(), *chatID, *name, *phone, *skills); err != nil {
		log.Fatalf("failed to grant admin: %v", err)
	}
	fmt.Printf("chat_id=%d is now an admin\n", *chatID)
}
