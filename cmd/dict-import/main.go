package main

import (
	"flag"
	"log"
	"os"

	"github.com/obis-tools/taxonmatch/internal/dictionary"
)

func main() {
	tsvPath := flag.String("tsv", "", "TSV file of name<TAB>aphia_id rows (required)")
	dbPath := flag.String("db", "dict.sqlite", "SQLite dictionary to create or update")
	flag.Parse()

	if *tsvPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	store, err := dictionary.OpenSQLite(*dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	f, err := os.Open(*tsvPath)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	n, err := store.ImportTSV(f)
	if err != nil {
		log.Fatalf("import %s: %v", *tsvPath, err)
	}
	log.Printf("dict-import imported=%d total=%d db=%s", n, store.Len(), *dbPath)
}
