// cmd/tools/seed-catalog/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"catalog-enrichment/internal/common/config"
	"catalog-enrichment/internal/common/database"
	"catalog-enrichment/internal/store"
	"catalog-enrichment/pkg/registry"
)

func main() {
	applyCmd := flag.NewFlagSet("apply", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	applyPath := applyCmd.String("path", "", "Path to seed catalog (defaults to app.seed_path)")
	configPath := applyCmd.String("config", "", "Path to config file (defaults to configs/config.yaml lookup)")
	validatePath := validateCmd.String("path", "configs/seed-catalog.json", "Path to seed catalog")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "apply":
		applyCmd.Parse(os.Args[2:])
		if err := apply(*configPath, *applyPath); err != nil {
			fmt.Printf("Seeding failed: %v\n", err)
			os.Exit(1)
		}

	case "validate":
		validateCmd.Parse(os.Args[2:])
		cat, err := registry.LoadCatalog(*validatePath)
		if err == nil {
			err = cat.Validate()
		}
		if err != nil {
			fmt.Printf("Catalog validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Catalog validation passed. Found %d attributes and %d products.\n",
			len(cat.Attributes), len(cat.Products))

	case "help":
		fallthrough
	default:
		help()
	}
}

func apply(configPath, seedPath string) error {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if seedPath == "" {
		seedPath = cfg.App.SeedPath
	}

	cat, err := registry.LoadCatalog(seedPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return err
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := database.Migrate(ctx, pg.DB); err != nil {
		return err
	}

	res, err := registry.Apply(ctx, cat, store.NewAttributeStore(pg.DB), store.NewProductStore(pg.DB))
	if err != nil {
		return err
	}

	fmt.Printf("Seeding completed: %d attributes upserted, %d products created.\n", res.Attributes, res.Products)
	return nil
}

func help() {
	fmt.Print(`
Usage: seed-catalog <command> [flags]

Commands:
  apply     Upsert the seed attributes and insert seed products into an empty catalog
  validate  Validate the seed catalog file
  help      Show this help message

Examples:
  seed-catalog validate -path configs/seed-catalog.json
  seed-catalog apply
  seed-catalog apply -config configs/config.yaml -path configs/seed-catalog.json

Use 'seed-catalog <command> -h' for more information about a command.
` + "\n")
}
