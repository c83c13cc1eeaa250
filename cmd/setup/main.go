package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/stelladong-RA/greenie-re-data-pipeline/internal/database"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	connStr := os.Getenv("DATABASE_URL")
	if connStr == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	dbpool, err := database.ConnectDB(connStr)
	if err != nil {
		log.Fatalf("Failed to connect to the database: %v", err)
	}
	defer dbpool.Close()

	dbManager := database.NewPostgresDBManager(context.Background(), dbpool)

	if err := dbManager.CreatePipelineRunsTable(); err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}
	if err := dbManager.CreateSourceFilesTable(); err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}
	if err := dbManager.CreateEnrichedProjectsTable(); err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}
	if err := dbManager.CreateJournalEntryLinesTable(); err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}
	if err := dbManager.CreateZipAccumulationTable(); err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}
	if err := dbManager.CreatePipelineExceptionsTable(); err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}
	if err := dbManager.CreateReportIndexes(); err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}

	log.Println("Warehouse schema is ready.")
}
