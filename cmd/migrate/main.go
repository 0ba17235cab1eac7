package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/noah-isme/husma-donation-api/pkg/config"
	"github.com/noah-isme/husma-donation-api/pkg/database"
	"github.com/noah-isme/husma-donation-api/pkg/logger"
)

func main() {
	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|reset|up-to|down-to")
	target := flag.String("version", "", "target version for -cmd=up-to and -cmd=down-to")
	seed := flag.Bool("seed", false, "seed the supplement catalog after migrating")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck
	logr = logr.With(zap.String("cmd", *cmd), zap.String("db_driver", cfg.Database.Driver))

	ctx := context.Background()
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var args []string
	if *target != "" {
		args = append(args, *target)
	}
	if err := database.Run(ctx, db, cfg.Database.Driver, *cmd, args...); err != nil {
		fmt.Fprintf(os.Stderr, "migration %s failed: %v\n", *cmd, err)
		os.Exit(1)
	}
	logr.Info("migration finished")

	if *seed {
		seeded, err := database.SeedInventory(ctx, db)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
		logr.Info("inventory seeded", zap.Int("products", seeded))
	}
}
