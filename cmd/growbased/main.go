package main

import (
	"log"

	"growbase/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		log.Fatalf("growbased failed: %v", err)
	}
}
