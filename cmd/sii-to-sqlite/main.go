// Command sii-to-sqlite loads a save file into a SQLite database, one
// table per structure definition, so the save can be explored with
// ordinary SQL.
package main

import (
	"database/sql"
	"flag"
	"log"
	"os"

	_ "modernc.org/sqlite"

	"github.com/calzoneman/siirs/sii"
	"github.com/calzoneman/siirs/translate"
)

func main() {
	var inPath string
	var dbPath string
	var lenient bool
	flag.StringVar(&inPath, "in", "", "input .sii save file")
	flag.StringVar(&dbPath, "db", "save.db", "output SQLite database")
	flag.BoolVar(&lenient, "lenient", false, "skip structures with unknown field types")
	flag.Parse()
	log.SetFlags(0)
	if inPath == "" {
		log.Fatal("-in is required")
	}

	data, err := os.ReadFile(inPath)
	if err != nil {
		log.Fatalf("read: %v", err)
	}
	payload, format, err := sii.Unwrap(data)
	if err != nil {
		log.Fatalf("unwrap: %v", err)
	}
	if format == sii.FormatText {
		log.Fatal("text-form saves are not supported, convert with g_save_format 2")
	}

	var opts []sii.DecodeOption
	if lenient {
		opts = append(opts, sii.WithLenientMode())
	}
	p, err := sii.NewParser(payload, opts...)
	if err != nil {
		log.Fatalf("parse: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := translate.Snapshot(db, p); err != nil {
		log.Fatalf("translate: %v", err)
	}
	log.Printf("wrote %s", dbPath)
}
