package dix

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func SetupSignalHandler(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-c
		log.Printf("Received %s, shutting down...", sig)
		cancel()
	}()
}
