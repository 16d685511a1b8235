package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/rawblock/beal-search/internal/config"
	"github.com/rawblock/beal-search/internal/rpcclient"
	"github.com/rawblock/beal-search/internal/worker"
)

func main() {
	myApp := cli.NewApp()
	myApp.Name = "beal-worker"
	myApp.Usage = "pulls search shards from a coordinator, filters them, and reports surviving candidates"
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "coordinator",
			Usage:  "coordinator base URL, e.g. http://localhost:8080",
			EnvVar: "WORKER_COORDINATOR_URL",
		},
		cli.IntFlag{
			Name:  "max-memory-mb",
			Usage: "ceiling on combined filter-index memory, 0 to disable",
		},
	}

	myApp.Action = func(c *cli.Context) error {
		coordinatorURL := c.String("coordinator")
		if coordinatorURL == "" {
			log.Fatal("FATAL: --coordinator (or WORKER_COORDINATOR_URL) is required")
		}

		maxMemoryMB := c.Int("max-memory-mb")
		if maxMemoryMB == 0 {
			maxMemoryMB = int(config.GetEnvUint("COORDINATOR_MAX_WORKER_MEMORY_MB", 0))
		}

		authToken := os.Getenv("COORDINATOR_AUTH_TOKEN")
		client := rpcclient.New(coordinatorURL, authToken)
		w := worker.New(uint64(maxMemoryMB) * (1 << 20))

		ctx := context.Background()
		for {
			ws, ok, err := client.GetWork(ctx)
			if err != nil {
				log.Fatalf("FATAL: get_work failed: %v", err)
			}
			if !ok {
				shards, candidates := w.Stats()
				log.Printf("[Worker] search exhausted: %d shards completed, %d candidates found", shards, candidates)
				return nil
			}

			if err := w.Bind(ws.Config); err != nil {
				if errors.Is(err, worker.ErrConfigMismatch) {
					log.Fatalf("FATAL: coordinator changed configuration mid-run, refusing to rebind: %v", err)
				}
				if errors.Is(err, worker.ErrResourceExhausted) {
					log.Fatalf("FATAL: configuration exceeds this worker's memory ceiling: %v", err)
				}
				log.Fatalf("FATAL: bind failed: %v", err)
			}

			candidates, err := w.Run(ws.Shard)
			if err != nil {
				log.Fatalf("FATAL: shard a=%d failed: %v", ws.Shard.A, err)
			}

			duplicate, err := client.FinishWork(ctx, ws.Shard, candidates)
			for err != nil {
				log.Printf("Warning: finish_work for shard a=%d failed, retrying: %v", ws.Shard.A, err)
				time.Sleep(time.Second)
				duplicate, err = client.FinishWork(ctx, ws.Shard, candidates)
			}
			if duplicate {
				log.Printf("[Worker] shard a=%d already recorded by a prior delivery", ws.Shard.A)
			}
		}
	}

	if err := myApp.Run(os.Args); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}
