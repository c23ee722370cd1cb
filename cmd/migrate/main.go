package main

import (
	"flag"
	"log"

	"callflow/internal/platform/config"
	"callflow/internal/platform/database"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	switch *direction {
	case "up":
		if _, err := db.Exec(database.Schema); err != nil {
			log.Fatalf("Migration up failed: %v", err)
		}
		log.Println("Migration up complete")
	case "down":
		if _, err := db.Exec(database.SchemaDown); err != nil {
			log.Fatalf("Migration down failed: %v", err)
		}
		log.Println("Migration down complete")
	default:
		log.Fatalf("Unknown direction: %s", *direction)
	}
}
