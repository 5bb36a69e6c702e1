package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"qrattend/internal/app"
	"qrattend/internal/config"
	"qrattend/internal/queue"
)

// Worker runs the daily reconciliation sweep and any sweeps queued by operators.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("[worker] init failed: %v", err)
	}
	defer a.Close()

	runSweep := func(asOf time.Time, trigger string) {
		res, err := a.Sweeper.Sweep(ctx, asOf)
		if err != nil {
			log.Printf("[worker] %s sweep for %s failed after %d created: %v", trigger, res.Date, res.Created, err)
			return
		}
		log.Printf("[worker] %s sweep run=%s date=%s created=%d", trigger, res.RunID, res.Date, res.Created)
	}

	c := cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := c.AddFunc(cfg.SweepSchedule, func() { runSweep(time.Now(), "scheduled") }); err != nil {
		log.Fatalf("[worker] invalid SWEEP_SCHEDULE %q: %v", cfg.SweepSchedule, err)
	}
	c.Start()
	log.Printf("[worker] daily sweep scheduled %q in %s", cfg.SweepSchedule, cfg.Location())

	if a.Jobs == nil {
		log.Println("[worker] no queue backend, serving the schedule only")
		<-ctx.Done()
	} else {
		messages, err := a.Jobs.Consume(ctx)
		if err != nil {
			log.Fatalf("queue consume init failed: %v", err)
		}
		log.Println("[worker] started, waiting for messages...")
		for msg := range messages {
			req, err := queue.DecodeSweep(msg)
			if err != nil {
				log.Printf("[worker] dropping %q message: %v", msg.Type, err)
				continue
			}
			asOf := req.AsOf
			if asOf.IsZero() {
				asOf = time.Now()
			}
			runSweep(asOf, "requested")
		}
	}

	<-c.Stop().Done()
	log.Println("worker stopped")
}
