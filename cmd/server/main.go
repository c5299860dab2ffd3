package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"

	"github.com/ceasapp/auth-service/internal/config"
	"github.com/ceasapp/auth-service/server"
	"github.com/ceasapp/auth-service/session"
	"github.com/ceasapp/auth-service/store"
	"github.com/ceasapp/auth-service/token"
	"github.com/ceasapp/auth-service/token/hasher"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	ctx := context.Background()

	db, err := store.Open(ctx, c.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("store.Open: %w", err)
	}
	defer db.Close()

	st := store.NewPostgres(db)
	if err := st.RunMigrations(ctx); err != nil {
		return fmt.Errorf("store.RunMigrations: %w", err)
	}

	// Refuse to start with an unsupported signing algorithm rather than
	// silently minting tokens a verifier would reject.
	if c.GetSigningAlgorithm() != "HS256" {
		return fmt.Errorf("unsupported signing algorithm %q, only HS256 is supported", c.GetSigningAlgorithm())
	}

	signer := token.NewHMACSigner(c.GetSecretKey())
	codec := token.NewCodec(signer, c.GetIssuer(), c.GetAudience(), c.GetAccessTokenExpiry())

	sessions, err := session.NewManager(st, codec, hasher.New(), c.GetRefreshTokenExpiry(),
		session.WithSecretLength(c.GetRefreshSecretLength()))
	if err != nil {
		return fmt.Errorf("session.NewManager: %w", err)
	}

	srv, err := server.New(c, sessions)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
