// Command backfill loads CSV price histories and constituent quotes into the
// postgres price store. Price rows are "date,close" with an optional header;
// quote files are "ticker,market_cap,pe".
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"twoziq/internal/config"
	"twoziq/internal/logger"
	"twoziq/internal/market"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	pricesDir := flag.String("prices", "", "directory of <TICKER>.csv price files")
	quotesFile := flag.String("quotes", "", "CSV file of ticker,market_cap,pe rows")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}
	logger.Init(cfg.Logging)

	store, err := market.NewStore(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to open price store", "error", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if *pricesDir == "" && *quotesFile == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -prices and/or -quotes")
		os.Exit(2)
	}
	if *pricesDir != "" {
		if err := loadPrices(ctx, store, *pricesDir); err != nil {
			logger.Fatal("price backfill failed", "error", err)
		}
	}
	if *quotesFile != "" {
		if err := loadQuotes(ctx, store, *quotesFile); err != nil {
			logger.Fatal("quote backfill failed", "error", err)
		}
	}
}

func loadPrices(ctx context.Context, store *market.Store, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return err
	}
	for _, file := range files {
		ticker := strings.ToUpper(strings.TrimSuffix(filepath.Base(file), ".csv"))
		points, err := readPriceCSV(file)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		if err := store.UpsertPrices(ctx, ticker, points); err != nil {
			return err
		}
		logger.Info("backfilled prices", "ticker", ticker, "rows", len(points))
	}
	return nil
}

func readPriceCSV(path string) ([]market.PricePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 2

	var points []market.PricePoint
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		date, err := market.ParseDate(record[0])
		if err != nil {
			// Tolerate a single header row.
			if len(points) == 0 {
				continue
			}
			return nil, err
		}
		closePrice, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("bad close %q on %s", record[1], record[0])
		}
		points = append(points, market.PricePoint{Date: date, Close: closePrice})
	}
	return points, nil
}

func loadQuotes(ctx context.Context, store *market.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 3

	count := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		marketCap, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			// Tolerate a single header row.
			if count == 0 {
				continue
			}
			return fmt.Errorf("bad market cap %q for %s", record[1], record[0])
		}
		pe, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			return fmt.Errorf("bad pe %q for %s", record[2], record[0])
		}
		q := &market.Quote{
			Ticker:    strings.ToUpper(strings.TrimSpace(record[0])),
			MarketCap: marketCap,
			PE:        pe,
		}
		if err := store.UpsertQuote(ctx, q); err != nil {
			return err
		}
		count++
	}
	logger.Info("backfilled quotes", "rows", count)
	return nil
}
