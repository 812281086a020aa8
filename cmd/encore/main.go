package main

import (
	"log"

	"github.com/MrSnakeDoc/encore/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("❌ encore failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("❌ encore stopped with error: %v", err)
	}
}
