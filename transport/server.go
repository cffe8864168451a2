package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ListenAddr is the fixed loopback address this service binds: the API
// scopes itself to a co-located client, never a network peer.
const ListenAddr = "127.0.0.1:5555"

// BuildApp constructs the Fiber app: no startup banner, routes mounted,
// ready for app.Listener. No read/write timeout is set: a presence prompt
// or a slow scrypt run has no deadline but the platform's own, and the
// connection must stay open for the engine's zeroize-then-respond sequence
// to finish rather than being cut mid-operation.
func BuildApp(srv *Server) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	srv.Mount(app)
	return app
}

// tlsConfig builds the pinned-certificate TLS config: a single embedded
// identity, no client auth, ALPN offering h2/http1.1/http1.0.
func tlsConfig() (*tls.Config, error) {
	cert, err := LoadEmbeddedCert()
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"h2", "http/1.1", "http/1.0"},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// Serve starts app listening on ListenAddr over pinned TLS and blocks
// until ctx is canceled, then shuts down gracefully with a bounded
// timeout.
func Serve(ctx context.Context, app *fiber.App, log *slog.Logger) error {
	cfg, err := tlsConfig()
	if err != nil {
		return err
	}

	ln, err := tls.Listen("tcp", ListenAddr, cfg)
	if err != nil {
		return fmt.Errorf("transport: listen: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", ListenAddr)
		errCh <- app.Listener(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			return fmt.Errorf("transport: shutdown: %w", err)
		}
		return nil
	}
}
