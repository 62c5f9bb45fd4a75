// Command gdbstub-demo is a worked example of the gdbstub package: it
// serves a toy in-memory i386 target over TCP so a reader can point a
// real GDB at it (`target remote 127.0.0.1:9001`) without needing a real
// emulator. It plays the same role the original crate's examples/basic.rs
// variants play, and corresponds to the teacher's main.go + gdbServer
// driver, minus the cgo bridge to a real emulator core.
package main

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonas-schievink/gdbstub"
	"github.com/jonas-schievink/gdbstub/comm"
	"github.com/jonas-schievink/gdbstub/target/i386"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		addr     string
		logLevel string
	)

	root := &cobra.Command{
		Use:   "gdbstub-demo",
		Short: "Serve a toy i386 target over RSP for GDB to attach to",
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Listen for a single GDB connection and serve the toy target",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(logLevel)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			return serveOnce(cmd.Context(), addr, log)
		},
	}
	serve.Flags().StringVar(&addr, "addr", "127.0.0.1:9001", "address to listen on")
	serve.Flags().StringVar(&logLevel, "log-level", "info", "debug, info, warn, or error")

	root.AddCommand(serve)
	return root
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return cfg.Build()
}

// serveOnce accepts exactly one GDB connection and runs the stub over it.
// Like the teacher's gdbServer, this intentionally does not handle
// multiple connections concurrently: the core stub is single-threaded
// with respect to one connection by design (spec.md §1/§5).
func serveOnce(ctx context.Context, addr string, log *zap.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	defer ln.Close()
	log.Info("listening for a GDB connection", zap.String("addr", addr))

	conn, err := ln.Accept()
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}
	defer conn.Close()
	log.Info("GDB connected", zap.String("remote", conn.RemoteAddr().String()))

	target := newToyTarget()
	stub := gdbstub.New(comm.FromReadWriter(conn), target, i386.Desc{}, gdbstub.WithLogger(log))

	if err := stub.Poll(ctx); err != nil {
		return fmt.Errorf("poll: %w", err)
	}
	log.Info("GDB session ended")
	return nil
}
