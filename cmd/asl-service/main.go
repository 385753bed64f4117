// asl-service: WebSocket service for live ASL recognition
// Accepts frame streams from clients and returns recognition events
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/signstream/go-signstream/internal/config"
	"github.com/signstream/go-signstream/pkg/recognition"
	"github.com/signstream/go-signstream/pkg/recognizer"
	"github.com/signstream/go-signstream/pkg/service"
)

var version = "1.0.0"

func main() {
	// A .env file is optional; variables already set win over it.
	_ = godotenv.Load()

	port := flag.String("port", config.Port(), "HTTP server port")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	fmt.Println()
	fmt.Println("🤟 SignStream ASL Service v" + version)
	fmt.Println("   Live sign language recognition over WebSocket")
	fmt.Println()

	rec, err := newRecognizer()
	if err != nil {
		log.Fatalf("❌ Recognizer error: %v", err)
	}
	defer rec.Close()

	srv, err := service.New(rec,
		service.WithPort(*port),
		service.WithCORSOrigins(config.CORSOrigins()),
		service.WithVersion(version),
		service.WithDebug(*debug),
	)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	// Start server
	go func() {
		log.Printf("🚀 Starting server on :%s", *port)
		log.Printf("   Recognition: ws://localhost:%s%s", *port, recognition.Path)
		log.Printf("   Monitor:     ws://localhost:%s%s", *port, recognition.MonitorPath)
		log.Printf("   Health:      http://localhost:%s/health", *port)
		log.Println()

		if err := srv.Start(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n👋 Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}

	log.Println("✅ Goodbye!")
}

// newRecognizer assembles the recognizer from the environment. The
// trained model runs out of process, so the service starts with the
// unloaded predictor and reports model_loaded accordingly.
func newRecognizer() (*recognizer.Recognizer, error) {
	var analyzer recognizer.Analyzer
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		gemini, err := recognizer.NewGeminiAnalyzer(key)
		if err != nil {
			return nil, err
		}
		analyzer = gemini
		log.Println("✨ Gemini sentence analysis enabled")
	} else {
		log.Println("⚠️  GEMINI_API_KEY not set, sentence analysis disabled")
	}

	cfg := recognizer.FromEnv()
	return recognizer.New(recognizer.Unloaded(), analyzer,
		recognizer.WithThreshold(cfg.Threshold),
		recognizer.WithStabilityWindow(cfg.StabilityWindow),
		recognizer.WithRequiredHold(cfg.RequiredHold),
		recognizer.WithCooldown(cfg.Cooldown),
	)
}
