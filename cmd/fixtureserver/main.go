// Command fixtureserver serves pages with known rendering and load
// behaviour for trying captures by hand.
// Usage: go run ./cmd/fixtureserver [port]
// Default port: 9999
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/raysh454/shutter/internal/fixtures"
)

func main() {
	cfg := fixtures.DefaultConfig()

	if len(os.Args) > 1 {
		port, err := strconv.Atoi(os.Args[1])
		if err != nil || port < 1 || port > 65535 {
			log.Fatalf("Invalid port: %s", os.Args[1])
		}
		cfg.Port = port
	}

	fmt.Println("Pages:")
	for _, p := range fixtures.Pages() {
		fmt.Printf("  %-10s %s\n", p.Path, p.Description)
	}
	fmt.Println("  /hanging   Never fires the load event.")
	fmt.Println("  /slow      Delays the response by ?ms=.")
	fmt.Println()

	if err := fixtures.New(cfg).Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
