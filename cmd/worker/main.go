package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edchain/internal/config"
	"edchain/internal/directory"
	"edchain/internal/ledger"
	"edchain/internal/queue"
	"edchain/internal/reconcile"
	"edchain/internal/store"
)

// Worker verifies directory mirror writes and runs the periodic drift sweep.
// The authorize path writes the ledger and then the directory without a
// transaction; this is where the resulting gap gets noticed.
func main() {
	cfg := config.Load()
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

	mongo, err := store.NewMongo(cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("mongo connect failed: %v", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		_ = mongo.Close(closeCtx)
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "edchain:mirror")
	}

	repo := directory.NewRepository(mongo.Collection("students"))
	chain := ledger.New(cfg.RPCURL, cfg.ContractAddress, cfg.ChainSkip, cfg.ChainRetries)
	sweeper := reconcile.NewSweeper(chain, repo, redisClient)

	// Periodic drift sweep
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				runSweep(ctx, sweeper)
			case <-ctx.Done():
				return
			}
		}
	}()
	runSweep(ctx, sweeper)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for mirror jobs...")
	for msg := range messages {
		if msg.Type != queue.TypeMirror {
			continue
		}

		wallet := string(msg.Body)
		verifyMirror(ctx, repo, wallet)

		time.Sleep(10 * time.Millisecond)
	}

	log.Println("worker stopped")
}

// verifyMirror re-checks that a directory entry exists for a wallet the API
// just registered. A NotFound here means the mirror write was lost after the
// ledger write succeeded; it cannot be backfilled without identity fields,
// so it is logged and left for the drift sweep to keep flagging.
func verifyMirror(ctx context.Context, repo *directory.Repository, wallet string) {
	const attempts = 3
	for i := 0; i < attempts; i++ {
		_, err := repo.FindByWallet(ctx, wallet)
		if err == nil {
			log.Printf("mirror verified for wallet %s", wallet)
			return
		}
		if errors.Is(err, directory.ErrNotFound) {
			log.Printf("mirror missing for wallet %s", wallet)
			return
		}
		log.Printf("mirror check for %s failed (attempt %d): %v", wallet, i+1, err)
		select {
		case <-time.After(time.Duration(i+1) * time.Second):
		case <-ctx.Done():
			return
		}
	}
}

func runSweep(ctx context.Context, sweeper *reconcile.Sweeper) {
	missing, err := sweeper.Run(ctx)
	if err != nil {
		log.Printf("drift sweep failed: %v", err)
		return
	}
	if len(missing) > 0 {
		log.Printf("drift sweep: %d unregistered submitter wallet(s)", len(missing))
	}
}
