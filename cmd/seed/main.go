// Command main seeds reference data and optional demo content.
package main

import (
	"context"
	"flag"
	"log"

	"handbook/internal/bootstrap"
	"handbook/internal/config"
	"handbook/internal/seed"
)

func main() {
	// Parse command line flags
	numUsers := flag.Int("users", 0, "Number of demo users to create")
	numPosts := flag.Int("posts", 0, "Number of demo posts to create")
	year := flag.Int("year", 0, "Year to place sample events in (default: current year)")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d demo users, %d demo posts", *numUsers, *numPosts)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{ApplySchema: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer rt.Close()

	if err := seed.Seed(ctx, rt.Store, seed.Options{
		Year:      *year,
		DemoUsers: *numUsers,
		DemoPosts: *numPosts,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seeding complete")
}
