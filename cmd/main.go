package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"pawsitter-api/res/events"
	"pawsitter-api/res/materializer/bookingstore"
	"pawsitter-api/res/notification/slack"
	"pawsitter-api/res/scheduling"
	"pawsitter-api/res/store/postgresql"
	api "pawsitter-api/sys/http"

	"github.com/joho/godotenv"
)

var logger = log.New(os.Stdout, "(cmd/main.go)", log.LstdFlags|log.LUTC|log.Llongfile)

func main() {
	// Load .env file in development
	// Try multiple locations: current dir, pawsitter-api/, parent dir
	err := godotenv.Load()
	if err != nil {
		err = godotenv.Load("pawsitter-api/.env")
	}
	if err != nil {
		err = godotenv.Load(".env")
	}
	if err != nil {
		logger.Printf("Note: .env file not found, using system environment variables")
	}

	port := readRequiredEnvVar("PORT")
	environment := readRequiredEnvVar("ENVIRONMENT")
	dbURL := readRequiredEnvVar("DATABASE_POSTGRES_URL")

	storeInstance, err := postgresql.Connect(dbURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if os.Getenv("AUTO_MIGRATE") == "true" {
		if err := storeInstance.Migrate(); err != nil {
			logger.Fatalf("Failed to migrate schema: %v", err)
		}
		logger.Printf("Schema migration completed")
	}

	notificationService := slack.New(os.Getenv("SLACK_WEBHOOK_URL"), 10*time.Second, logger)

	orchestratorCfg := &scheduling.Config{
		Logger:        logger,
		Store:         storeInstance,
		Materializer:  bookingstore.New(storeInstance.Bookings(), logger),
		Notifications: notificationService,
	}

	// Event publishing is optional: without a NATS URL the orchestrator
	// simply skips publishing.
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		publisher, err := events.NewPublisher(natsURL, logger)
		if err != nil {
			logger.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer publisher.Close()
		orchestratorCfg.Events = publisher
	} else {
		logger.Printf("NATS_URL not set, lifecycle events disabled")
	}

	orchestrator := scheduling.NewOrchestrator(orchestratorCfg)

	handler := api.New(&api.Config{
		Logger:       logger,
		Store:        storeInstance,
		Orchestrator: orchestrator,
	})

	logger.Printf("Starting server on :%s (environment: %s)\n", port, environment)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", port), handler); err != nil {
		logger.Fatalf("Server failed to start: %v", err)
	}
}

func readRequiredEnvVar(name string) string {
	val, ok := os.LookupEnv(name)
	if !ok {
		logger.Fatalf("Env variable not set: %s", name)
	}
	return val
}
