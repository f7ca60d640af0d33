// Command msfdump prints the raw contents of an msfcomp record database.
// It uses the pure-Go SQLite driver so it runs without cgo.
package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "modernc.org/sqlite"
)

func main() {
	dbPath := filepath.Join(".msfcomp", "records.db")
	if len(os.Args) > 1 {
		dbPath = os.Args[1]
	}
	limit := 10
	if len(os.Args) > 2 {
		if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
			limit = n
		}
	}

	if _, err := os.Stat(dbPath); err != nil {
		fmt.Printf("Error opening DB: %v\n", err)
		os.Exit(1)
	}
	if err := dumpDB(dbPath, limit); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func dumpDB(dbPath string, limit int) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", dbPath, err)
	}
	defer db.Close()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return fmt.Errorf("query tables: %w", err)
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		tables = append(tables, name)
	}
	rows.Close()
	fmt.Printf("Tables: %v\n", tables)

	for _, table := range []string{"batches", "records", "fields"} {
		if err := dumpTable(db, table, limit); err != nil {
			fmt.Printf("\n%s: %v\n", table, err)
		}
	}
	return nil
}

func dumpTable(db *sql.DB, table string, limit int) error {
	fmt.Printf("\n=== %s ===\n", table)

	schemaRows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	fmt.Printf("Schema:\n")
	for schemaRows.Next() {
		var cid int
		var name, typ string
		var notNull, pk int
		var dflt interface{}
		if err := schemaRows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			schemaRows.Close()
			return err
		}
		fmt.Printf("  - %s (%s)\n", name, typ)
	}
	schemaRows.Close()

	rows, err := db.Query(fmt.Sprintf(`SELECT * FROM %s LIMIT %d`, table, limit))
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	fmt.Println("─────────────────────────────────────────────────────────────")
	i := 0
	for rows.Next() {
		values := make([]interface{}, len(cols))
		valuePtrs := make([]interface{}, len(cols))
		for j := range values {
			valuePtrs[j] = &values[j]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			fmt.Printf("Scan error: %v\n", err)
			continue
		}
		i++
		fmt.Printf("%d. ", i)
		for j, col := range cols {
			val := values[j]
			if b, ok := val.([]byte); ok {
				val = string(b)
			}
			if s, ok := val.(string); ok && len(s) > 100 {
				val = s[:100] + "..."
			}
			fmt.Printf("%s=%v  ", col, val)
		}
		fmt.Println()
	}

	var count int
	if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
		return err
	}
	fmt.Printf("Total %s: %d\n", table, count)
	return rows.Err()
}
