// Command viewer prints the persisted history of one room as a table.
// It opens the store read-only so it can run next to a live server.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"

	"roomcast/domain"
	"roomcast/repositories"
)

type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" required:"true"`
	Room           string `envconfig:"ROOM" required:"true"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"WARN"`
}

func main() {
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// BypassLockGuard allows opening while the server holds the lock.
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repository := repositories.NewMessageRepository(db, logs.GetLoggerFromString(config.LogLevel))
	messages, err := repository.All(domain.RoomID(config.Room))
	if err != nil {
		log.Fatalf("Failed to read history: %v", err)
	}

	color.Cyan.Printf("Room %q - %d message(s)\n", config.Room, len(messages))
	if len(messages) == 0 {
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"At", "Username", "Content"})
	table.SetAutoWrapText(false)
	for _, msg := range messages {
		table.Append([]string{
			msg.At.Format("2006-01-02 15:04:05.000"),
			msg.Username,
			truncate(msg.Content, 80),
		})
	}
	table.Render()
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return fmt.Sprintf("%s...", string(runes[:max]))
}
