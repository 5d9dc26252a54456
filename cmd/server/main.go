package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/avvvet/diplomat-intent/internal/config"
	"github.com/avvvet/diplomat-intent/internal/handlers"
	"github.com/avvvet/diplomat-intent/internal/memory"
	"github.com/avvvet/diplomat-intent/internal/provider"
	"github.com/avvvet/diplomat-intent/internal/schema"
	"github.com/avvvet/diplomat-intent/internal/transport"
)

func main() {
	// Load .env file if it exists (for development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	log.Println("Starting Diplomat Intent Service...")

	// Load configuration
	cfg := config.Load()
	log.Printf("Service: %s", cfg.ServiceName)
	log.Printf("NATS URL: %s", cfg.NatsURL)
	log.Printf("Provider backend: %s", cfg.ProviderBackend)
	log.Printf("Strict mode: %v", cfg.StrictMode)
	log.Printf("Redis URL: %s", cfg.RedisURL)

	// Initialize Redis store
	log.Println("Connecting to Redis...")
	redisStore, err := memory.NewRedisStore(cfg.RedisURL, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisStore.Close()
	log.Println("Redis connected")

	// Initialize memory manager
	memoryManager := memory.NewManager(redisStore)
	defer memoryManager.Close()
	log.Println("Memory manager initialized")

	// Load protocol schemas
	validator, err := schema.New()
	if err != nil {
		log.Fatalf("Failed to load protocol schemas: %v", err)
	}
	log.Printf("Loaded schemas: %v", validator.SchemaNames())

	// Initialize negotiation provider
	backend := provider.ParseBackend(cfg.ProviderBackend)
	negotiationProvider := provider.New(backend, provider.Options{
		Strict:    cfg.StrictMode,
		PaceDelay: cfg.PaceDelay,
		Validator: validator,
	})
	log.Printf("Provider initialized: %s", backend)

	// Initialize dialogue handler
	dialogueHandler := handlers.NewDialogueHandler(negotiationProvider, memoryManager)
	log.Println("Dialogue handler initialized")

	// Initialize NATS transport
	log.Println("Connecting to NATS...")
	natsTransport, err := transport.NewNATSTransport(cfg, dialogueHandler)
	if err != nil {
		log.Fatalf("Failed to initialize NATS transport: %v", err)
	}
	defer natsTransport.Close()

	// Start listening for requests
	if err := natsTransport.Start(); err != nil {
		log.Fatalf("Failed to start NATS transport: %v", err)
	}

	log.Println("Diplomat Intent Service is running...")
	log.Printf("Listening on subject: %s", cfg.NatsRequestSubject)
	log.Printf("Publishing events on: %s.<session_id>", cfg.NatsEventsSubject)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Printf("Received signal: %v", sig)
	log.Println("Shutting down gracefully...")

	log.Printf("Final session count: %d", memoryManager.GetActiveSessionCount())

	if err := memoryManager.Close(); err != nil {
		log.Printf("Error closing memory manager: %v", err)
	}

	if err := natsTransport.Close(); err != nil {
		log.Printf("Error closing NATS transport: %v", err)
	}

	log.Println("Diplomat Intent Service stopped")
}
