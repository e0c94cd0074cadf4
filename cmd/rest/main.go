package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"shoppinglens-be/internal/bootstrap"
	"shoppinglens-be/internal/config"
	"shoppinglens-be/internal/server"
	"shoppinglens-be/internal/tracer"

	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)
	defer container.Close()

	// 3. Initialize Tracer (opt-in via OTEL_ENABLED)
	shutdownTracer := tracer.InitTracer(cfg.Telemetry, container.Logger)
	defer shutdownTracer(context.Background())

	// 4. Start Background Services
	container.Start(ctx)

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server until a signal arrives
	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Run)
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		return srv.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
