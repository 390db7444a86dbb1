// Command inspector dumps the event log or the read model as a table.
// Handy when debugging projection issues without wiring a client.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"github.com/david-camba/kafky-event-driven-chat/domain"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	prefix := flag.String("prefix", "log:", "Prefix to scan (log:, msg: or room:)")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	color.New(color.BgBlack, color.FgGreen).Printf("  ====== scanning %q ======\n", *prefix)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Timestamp", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	count := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())
			err := item.Value(func(v []byte) error {
				table.Append(toRow(key, v))
				count++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal("Error while scanning: ", err)
	}

	table.Render()
	fmt.Printf("\n%d entries\n", count)
}

func toRow(key string, value []byte) []string {
	switch {
	case strings.HasPrefix(key, "log:"):
		var entry domain.LogEntry
		if err := json.Unmarshal(value, &entry); err != nil {
			return []string{key, "?", "", fmt.Sprintf("unreadable: %v", err)}
		}
		return []string{key, entry.Type, entry.CreatedAt.Format(time.RFC3339), string(entry.Payload)}
	case strings.HasPrefix(key, "msg:"):
		var msg domain.ChatMessage
		if err := json.Unmarshal(value, &msg); err != nil {
			return []string{key, "?", "", fmt.Sprintf("unreadable: %v", err)}
		}
		detail := fmt.Sprintf("%s: %s", msg.Author, msg.Content)
		return []string{key, "row", msg.CreatedAt.Format(time.RFC3339), detail}
	default:
		return []string{key, "raw", "", string(value)}
	}
}
