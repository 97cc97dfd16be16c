package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/andesgrid/bess-dispatch-go/internal/config"
	"github.com/andesgrid/bess-dispatch-go/internal/database"
	"github.com/andesgrid/bess-dispatch-go/internal/forecast"
	"github.com/andesgrid/bess-dispatch-go/internal/models"
)

// Seeds the observation table from a marginal-cost CSV export, then
// optionally runs the predictor over the same file and prints a sample
// forecast as a smoke check.
func main() {
	csvPath := flag.String("csv", "", "path to the price history CSV")
	node := flag.String("node", "Maitencillo", "grid node the rows belong to")
	smoke := flag.Bool("forecast", false, "print a sample forecast after seeding")
	dryRun := flag.Bool("dry-run", false, "parse only, skip database writes")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("❌ -csv is required")
		flag.Usage()
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil {
		fmt.Printf("⚠️  Could not load .env file: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	rows, skipped, err := readRows(*csvPath)
	if err != nil {
		fmt.Printf("❌ Failed to read %s: %v\n", *csvPath, err)
		os.Exit(1)
	}
	fmt.Printf("✅ Parsed %d rows (%d skipped) from %s\n", len(rows), skipped, *csvPath)

	if !*dryRun {
		db, err := database.NewPostgresConnection(cfg.Database)
		if err != nil {
			fmt.Printf("❌ Failed to connect to Postgres: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		repo := database.NewPriceRepository(db.Pool)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		inserted := 0
		for _, r := range rows {
			_, err := repo.InsertObservation(ctx, *node, r.hour,
				decimal.NewFromFloat(r.price), models.SourceCSV, r.observedAt)
			if err != nil {
				fmt.Printf("⚠️  Insert failed for hour %d: %v\n", r.hour, err)
				continue
			}
			inserted++
		}
		fmt.Printf("✅ Inserted %d observations for node %s\n", inserted, *node)
	}

	if *smoke {
		predictor := forecast.NewPredictor(forecast.Config{
			Node:          *node,
			HistoryWindow: cfg.Forecast.HistoryWindow,
			Alpha:         cfg.Forecast.SmoothingAlpha,
		})
		loaded := predictor.LoadHistoryFromCSV(*csvPath)
		fmt.Printf("✅ Predictor seeded with %d rows\n", loaded)

		hour := time.Now().Hour()
		fmt.Printf("🔍 Forecast from hour %02d:00\n", hour)
		for _, f := range predictor.Forecast(hour, nil)[:6] {
			fmt.Printf("   %02d:00  %.2f CLP/kWh  [%.2f – %.2f]  conf %.2f  (%s)\n",
				f.Hour, f.Price, f.PriceLow, f.PriceHigh, f.Confidence, f.Method)
		}
	}
}

type seedRow struct {
	hour       int
	price      float64
	observedAt time.Time
}

// readRows parses the CSV, tolerating either Spanish or English column
// names. Rows with an unparseable hour or price are counted and skipped.
func readRows(path string) ([]seedRow, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("unreadable header: %w", err)
	}

	col := func(names ...string) int {
		for _, want := range names {
			for i, name := range header {
				if strings.EqualFold(strings.TrimSpace(name), want) {
					return i
				}
			}
		}
		return -1
	}
	dateIdx := col("fecha", "date")
	hourIdx := col("hora", "hour")
	priceIdx := col("cmg_clp_kwh", "costo_marginal")
	if hourIdx < 0 || priceIdx < 0 {
		return nil, 0, fmt.Errorf("missing hour or price column in %v", header)
	}

	var rows []seedRow
	skipped := 0
	for {
		rec, rerr := reader.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			skipped++
			continue
		}
		if hourIdx >= len(rec) || priceIdx >= len(rec) {
			skipped++
			continue
		}
		hourVal, herr := strconv.ParseFloat(strings.TrimSpace(rec[hourIdx]), 64)
		price, perr := strconv.ParseFloat(strings.TrimSpace(rec[priceIdx]), 64)
		if herr != nil || perr != nil || hourVal < 0 || hourVal > 23 {
			skipped++
			continue
		}

		observedAt := time.Now()
		if dateIdx >= 0 && dateIdx < len(rec) {
			if d, derr := time.Parse("2006-01-02", strings.TrimSpace(rec[dateIdx])); derr == nil {
				observedAt = d.Add(time.Duration(int(hourVal)) * time.Hour)
			}
		}

		rows = append(rows, seedRow{hour: int(hourVal), price: price, observedAt: observedAt})
	}
	return rows, skipped, nil
}
