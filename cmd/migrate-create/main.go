package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var namere = regexp.MustCompile(`^[a-z0-9_]+$`)

// Scaffolds a timestamped up/down migration pair under db/migrations.
func main() {
	dir := flag.String("dir", filepath.Join("db", "migrations"), "target directory")
	flag.Parse()

	name := strings.ToLower(strings.Join(flag.Args(), "_"))
	if name == "" {
		log.Fatal("usage: migrate-create <name words>")
	}
	if !namere.MatchString(name) {
		log.Fatalf("bad migration name %q: lowercase letters, digits and underscores only", name)
	}

	stamp := time.Now().UTC().Format("20060102150405")
	if err := os.MkdirAll(*dir, 0o755); err != nil {
		log.Fatalf("mkdir %s: %v", *dir, err)
	}
	for _, direction := range []string{"up", "down"} {
		path := filepath.Join(*dir, fmt.Sprintf("%s_%s.%s.sql", stamp, name, direction))
		if _, err := os.Stat(path); err == nil {
			log.Fatalf("%s already exists", path)
		}
		stub := fmt.Sprintf("-- %s: %s\n", direction, strings.ReplaceAll(name, "_", " "))
		if err := os.WriteFile(path, []byte(stub), 0o644); err != nil {
			log.Fatalf("write %s: %v", path, err)
		}
		log.Printf("wrote %s", path)
	}
}
