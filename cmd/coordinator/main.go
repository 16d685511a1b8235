package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli"

	"github.com/rawblock/beal-search/internal/api"
	"github.com/rawblock/beal-search/internal/config"
	"github.com/rawblock/beal-search/internal/coordinator"
	"github.com/rawblock/beal-search/internal/db"
	"github.com/rawblock/beal-search/pkg/models"
)

func main() {
	myApp := cli.NewApp()
	myApp.Name = "beal-coordinator"
	myApp.Usage = "dispenses (a,x,b,y) search shards to workers and records surviving candidates"
	myApp.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "max-base",
			Usage: "M_b — inclusive upper bound on a, b, c",
		},
		cli.IntFlag{
			Name:  "max-pow",
			Usage: "M_p — inclusive upper bound on x, y, z",
		},
		cli.StringFlag{
			Name:  "prime",
			Usage: "filter modulus; give a comma-separated list to chain multiple primes",
		},
		cli.StringFlag{
			Name:  "listen",
			Value: ":8080",
			Usage: "address to serve the get_work/finish_work/status API on",
		},
		cli.StringFlag{
			Name:  "output",
			Value: "results.log",
			Usage: "path to the append-only candidate result log",
		},
		cli.StringFlag{
			Name:  "run-id",
			Usage: "resume an existing run id instead of starting a new one",
		},
	}

	myApp.Action = func(c *cli.Context) error {
		maxBase := uint32(c.Int("max-base"))
		maxPow := uint32(c.Int("max-pow"))
		if maxBase == 0 {
			maxBase = config.GetEnvUint("COORDINATOR_MAX_BASE", 0)
		}
		if maxPow == 0 {
			maxPow = config.GetEnvUint("COORDINATOR_MAX_POW", 0)
		}

		primeCSV := c.String("prime")
		if primeCSV == "" {
			primeCSV = config.GetEnvOrDefault("COORDINATOR_PRIMES", "")
		}
		primes, err := config.ParsePrimes(primeCSV)
		if err != nil {
			log.Fatalf("FATAL: invalid --prime: %v", err)
		}

		cfg := models.SearchConfig{
			MaxBase: maxBase,
			MaxPow:  maxPow,
			Primes:  primes,
			RunID:   c.String("run-id"),
		}
		if err := config.Validate(cfg); err != nil {
			log.Fatalf("FATAL: invalid search configuration: %v", err)
		}

		resultLog, err := coordinator.OpenResultLog(c.String("output"))
		if err != nil {
			log.Fatalf("FATAL: failed to open result log: %v", err)
		}
		defer resultLog.Close()

		var store *db.PostgresStore
		var completed map[uint32]bool
		if dbURL := os.Getenv("COORDINATOR_DATABASE_URL"); dbURL != "" {
			store, err = db.Connect(dbURL)
			if err != nil {
				log.Printf("Warning: failed to connect to PostgreSQL, continuing without a durable audit mirror: %v", err)
			} else {
				defer store.Close()
				if err := store.InitSchema(); err != nil {
					log.Printf("Warning: DB schema init failed: %v", err)
				}
				if cfg.RunID != "" {
					completed, err = store.LoadCompletedShards(context.Background(), cfg.RunID)
					if err != nil {
						log.Printf("Warning: failed to warm-load completed shards for run %s: %v", cfg.RunID, err)
					}
				}
			}
		}

		coord := coordinator.New(cfg, resultLog, store, completed)
		log.Printf("[Coordinator] run %s: maxBase=%d maxPow=%d primes=%v",
			coord.RunID(), cfg.MaxBase, cfg.MaxPow, cfg.Primes)

		wsHub := api.NewHub()
		go wsHub.Run()

		router := api.SetupRouter(coord, wsHub)

		listen := c.String("listen")
		log.Printf("[Coordinator] serving on %s", listen)
		return router.Run(listen)
	}

	if err := myApp.Run(os.Args); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}
