package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"campusmart/client/internal/config"
	"campusmart/client/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const usage = `Usage: admin <command> [args]

Commands:
  messages [owner_id] [limit]   list archived messages
  orders [owner_id] [limit]     list archived orders
  purge [owner_id]              delete archived rows (all owners if omitted)
  credential show|clear         inspect or drop the stored credential for DEVICE_ID`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg := config.Load()
	ctx := context.Background()
	command, args := os.Args[1], os.Args[2:]

	switch command {
	case "messages", "orders", "purge":
		s := storage.NewStorageService(openDB(cfg), nil) // No redis needed for the archive
		if err := runArchive(ctx, s, command, args); err != nil {
			log.Fatalf("%s: %v", command, err)
		}
	case "credential":
		if len(args) != 1 {
			fmt.Println("Usage: admin credential show|clear")
			os.Exit(1)
		}
		s := storage.NewStorageService(nil, openRedis(ctx, cfg))
		if err := runCredential(ctx, s.Credentials(cfg.DeviceID), args[0]); err != nil {
			log.Fatalf("credential: %v", err)
		}
	default:
		fmt.Println("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
}

func openDB(cfg *config.Config) *gorm.DB {
	if cfg.DatabaseDSN == "" {
		log.Fatal("DATABASE_DSN is not set")
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	return db
}

func openRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	if cfg.RedisURL == "" {
		log.Fatal("REDIS_URL is not set")
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect Redis: %v", err)
	}
	return rdb
}

func parseOwnerLimit(args []string) (string, int, error) {
	var owner string
	var limit int
	if len(args) > 0 {
		owner = args[0]
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return "", 0, fmt.Errorf("invalid limit %q", args[1])
		}
		limit = n
	}
	return owner, limit, nil
}

func runArchive(ctx context.Context, s storage.Archive, command string, args []string) error {
	owner, limit, err := parseOwnerLimit(args)
	if err != nil {
		return err
	}

	switch command {
	case "messages":
		records, err := s.ListMessages(ctx, owner, limit)
		if err != nil {
			return err
		}
		for _, r := range records {
			fmt.Printf("%s  %s  %s -> %s: %s\n", r.CreatedAt.Format("2006-01-02 15:04"), r.ConversationID, r.SenderID, r.OwnerID, r.Body)
		}
	case "orders":
		records, err := s.ListOrders(ctx, owner, limit)
		if err != nil {
			return err
		}
		for _, r := range records {
			fmt.Printf("%s  %s  %-10s %-8s ₹%.2f  [%s]\n", r.CreatedAt.Format("2006-01-02 15:04"), r.OrderID, r.Event, r.Status, r.GrandTotal, strings.Join(r.ItemNames, ", "))
		}
	case "purge":
		n, err := s.Purge(ctx, owner)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d archived rows.\n", n)
	}
	return nil
}

func runCredential(ctx context.Context, c *storage.CredentialStore, action string) error {
	switch action {
	case "show":
		token, err := c.Load(ctx)
		if err != nil {
			return err
		}
		if token == "" {
			fmt.Println("No stored credential.")
			return nil
		}
		fmt.Println(token)
	case "clear":
		if err := c.Delete(ctx); err != nil {
			return err
		}
		fmt.Println("Stored credential cleared.")
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	return nil
}
