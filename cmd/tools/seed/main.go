package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soltixdb/unitmetrics/internal/config"
	"github.com/soltixdb/unitmetrics/internal/logging"
	"github.com/soltixdb/unitmetrics/internal/store"
	"github.com/soltixdb/unitmetrics/internal/units"
	"github.com/soltixdb/unitmetrics/internal/utils"
)

// value ranges per quantity
var valueRanges = map[units.Quantity][2]float64{
	units.Distance:    {1, 1000},
	units.Temperature: {1, 100},
}

// SeedConfig describes the generated data set
type SeedConfig struct {
	Users []string
	Days  int
	Start time.Time
}

// generate builds one record per user, day and unit
func generate(cfg SeedConfig, rng *rand.Rand, now time.Time) []*store.Record {
	records := make([]*store.Record, 0, len(cfg.Users)*cfg.Days*len(units.AllUnits()))

	for _, user := range cfg.Users {
		for day := 0; day < cfg.Days; day++ {
			date := cfg.Start.AddDate(0, 0, day)
			for _, unit := range units.AllUnits() {
				r := valueRanges[unit.Quantity()]
				records = append(records, &store.Record{
					ID:        uuid.New().String(),
					OwnerID:   user,
					Quantity:  unit.Quantity(),
					Unit:      unit,
					Value:     utils.RoundTo(rng.Float64()*(r[1]-r[0])+r[0], 2),
					Timestamp: date,
					CreatedAt: now,
				})
			}
		}
	}

	return records
}

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	users := flag.String("users", "1,2", "Comma separated user IDs")
	days := flag.Int("days", 30, "Number of days to generate")
	start := flag.String("start", "2025-09-01", "First day (YYYY-MM-DD, UTC)")
	batchSize := flag.Int("batch", utils.DefaultBatchSize, "Records per insert batch")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	startDate, err := time.Parse(time.DateOnly, *start)
	if err != nil {
		logger.Fatal("Invalid --start", "error", err, "value", *start)
	}

	seedCfg := SeedConfig{
		Users: splitUsers(*users),
		Days:  *days,
		Start: startDate,
	}
	if len(seedCfg.Users) == 0 || seedCfg.Days < 1 || *batchSize < 1 {
		logger.Fatal("Nothing to seed", "users", *users, "days", *days, "batch", *batchSize)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Fatal("Failed to create data directory", "error", err)
	}

	st, err := store.New(cfg.Storage, logger)
	if err != nil {
		logger.Fatal("Failed to open store", "error", err, "driver", cfg.Storage.Driver)
	}
	defer func() { _ = st.Close() }()

	records := generate(seedCfg, rand.New(rand.NewSource(*seed)), time.Now().UTC())

	ctx := context.Background()
	inserted := 0
	for i := 0; i < len(records); i += *batchSize {
		end := min(i+*batchSize, len(records))
		n, err := st.InsertBatch(ctx, records[i:end])
		if err != nil {
			logger.Error("Seeding failed", "error", err, "inserted", inserted)
			_ = st.Close()
			os.Exit(1)
		}
		inserted += n
	}

	logger.Info("Seeding completed",
		"driver", cfg.Storage.Driver,
		"users", len(seedCfg.Users),
		"days", seedCfg.Days,
		"records", inserted)
}

func splitUsers(s string) []string {
	var out []string
	for _, u := range strings.Split(s, ",") {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
