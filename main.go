package main

import (
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"readtrack/database"
	"readtrack/handlers"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "readtrack.db"
	}

	if err := database.Initialize(dbPath); err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}
	defer database.Close()

	go handlers.RunHub()

	log.Printf("readtrack receipt server starting on http://localhost:%s", port)
	if os.Getenv("API_TOKEN_HASH") == "" {
		log.Println("API_TOKEN_HASH not set, running without authentication")
	}

	if err := http.ListenAndServe(":"+port, handlers.NewRouter()); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
