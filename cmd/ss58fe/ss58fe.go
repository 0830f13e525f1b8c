package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/pierreaubert/dotaddr/dix"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configFile := flag.String("conf", "", "toml configuration file")
	withBook := flag.Bool("book", true, "serve /lookup from the address book")
	flag.Parse()

	log.SetOutput(os.Stdout)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	config := dix.DefaultConfig()
	if *configFile != "" {
		loaded, err := dix.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
		config = *loaded
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dix.SetupSignalHandler(cancel)

	var book dix.AddressBook
	if *withBook {
		database, err := dix.NewSQLDatabase(config)
		if err != nil {
			log.Fatalf("Error opening database: %v", err)
		}
		defer database.Close()
		if err := database.Ping(); err != nil {
			log.Fatalf("Failed to ping database: %v", err)
		}
		if err := database.CreateTable(); err != nil {
			log.Fatalf("Error creating tables: %v", err)
		}
		log.Printf("Successfully connected to database %s", dix.DBUrlSecure(config))
		book = database
	}

	frontendAddr := fmt.Sprintf("%s:%d", config.DotaddrFE.IP, config.DotaddrFE.Port)
	if len(os.Getenv("FRONTEND_ADDR")) > 0 {
		frontendAddr = os.Getenv("FRONTEND_ADDR")
	}

	frontend := NewFrontend(book, frontendAddr)
	log.Printf("Starting REST API frontend on %s", frontendAddr)
	if err := frontend.Start(ctx.Done()); err != nil {
		log.Printf("Error running frontend server: %v", err)
	}
	frontend.metricsHandler.PrintStats(true)
}

// Frontend serves the codec and the address book over HTTP
type Frontend struct {
	book           dix.AddressBook
	listenAddr     string
	metricsHandler *dix.Metrics
}

func NewFrontend(book dix.AddressBook, listenAddr string) *Frontend {
	return &Frontend{
		book:           book,
		listenAddr:     listenAddr,
		metricsHandler: dix.NewMetrics("Frontend"),
	}
}

func (f *Frontend) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/decode", f.handleDecode)
	mux.HandleFunc("/encode", f.handleEncode)
	mux.HandleFunc("/lookup", f.handleLookup)
	mux.HandleFunc("/networks", f.handleNetworks)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Start serves until cancelCtx is closed, then shuts the server down gracefully
func (f *Frontend) Start(cancelCtx <-chan struct{}) error {
	server := &http.Server{
		Addr:              f.listenAddr,
		Handler:           f.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-cancelCtx:
	}

	log.Println("Shutting down frontend server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}
