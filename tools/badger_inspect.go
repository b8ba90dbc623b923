package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/olekukonko/tablewriter"
)

// Offline inspection of the chat keyspace. Primary records are CBOR
// with integer keys; index entries (wallet:, roomname:, msgroom:) hold
// the target id as a decimal string.
func main() {
	dbPath := flag.String("db", "./badger", "Path to badger DB")
	prefix := flag.String("prefix", "message:", "Prefix to scan (user:, wallet:, room:, roomname:, message:, msgroom:)")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).WithReadOnly(true))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Value"})
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

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(v []byte) error {
				table.Append([]string{key, renderValue(key, v)})
				return nil
			})
			if err != nil {
				fmt.Printf("Error reading key %s: %v\n", key, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal("Error while scanning: ", err)
	}

	table.Render()
}

// renderValue decodes a primary record's CBOR fields, or passes an
// index entry's decimal id through untouched.
func renderValue(key string, value []byte) string {
	if isIndexKey(key) {
		return string(value)
	}

	var fields map[int]any
	if err := cbor.Unmarshal(value, &fields); err != nil {
		return fmt.Sprintf("<%d raw bytes>", len(value))
	}

	keys := make([]int, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%d=%v", k, fields[k]))
	}
	return strings.Join(parts, " ")
}

func isIndexKey(key string) bool {
	return strings.HasPrefix(key, "wallet:") ||
		strings.HasPrefix(key, "roomname:") ||
		strings.HasPrefix(key, "msgroom:") ||
		strings.HasPrefix(key, "seq:")
}
