package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/scshepard/netwrok-server/backend"
	"github.com/scshepard/netwrok-server/backend/mock"
	"github.com/scshepard/netwrok-server/proto"
)

var configPath = flag.String("config", "", "path to a yaml config file")

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *configPath != "" {
		if err := backend.Config.LoadFromFile(*configPath); err != nil {
			return fmt.Errorf("config file error: %s", err)
		}
	}
	if err := backend.Config.LoadFromEnv(); err != nil {
		return fmt.Errorf("config env error: %s", err)
	}
	backend.Config.Apply()

	// Dev credential store; a real deployment supplies its own
	// Authenticator and ContactService implementations.
	auth := mock.NewAuthenticator()
	auth.AddAccount("admin", "admin", proto.Identity{
		MemberID:   1,
		Roles:      []string{"Admin"},
		ClanID:     -1,
		AllianceID: -1,
	})

	server := backend.NewServer(auth, mock.NewContactService())

	errc := make(chan error, 1)
	go func() {
		errc <- http.ListenAndServe(backend.Config.HTTP.Listen, server)
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		server.Close()
		return err
	case sig := <-sigc:
		fmt.Fprintf(os.Stderr, "%s: shutting down\n", sig)
		server.Close()
		return nil
	}
}
