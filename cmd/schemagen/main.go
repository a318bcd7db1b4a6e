package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/newsmaker-md/content-pipeline/internal/storage/pg"
)

func main() {
	var (
		outputDir = flag.String("output", "migrations", "Output directory for the generated schema")
	)
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	sqlFile := filepath.Join(*outputDir, "schema.sql")
	if err := os.WriteFile(sqlFile, []byte(pg.Schema), 0644); err != nil {
		log.Fatalf("Failed to write schema: %v", err)
	}

	fmt.Printf("Generated SQL schema: %s\n", sqlFile)
}
