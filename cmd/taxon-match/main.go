package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/obis-tools/taxonmatch/internal/dictionary"
	"github.com/obis-tools/taxonmatch/internal/occurrence"
	"github.com/obis-tools/taxonmatch/internal/report"
	"github.com/obis-tools/taxonmatch/internal/taxonomy"
	"github.com/obis-tools/taxonmatch/internal/worms"
)

type paramsFile struct {
	Source            string                   `json:"taxonomic_api_source"`
	SkipSpeciesAssays []string                 `json:"assays_to_skip_species_match"`
	AssayRankInfo     map[string]assayRankJSON `json:"assay_rank_info"`
	LocalDictionary   map[string]int64         `json:"local_dictionary"`
}

type assayRankJSON struct {
	MaxDepth int `json:"max_depth"`
}

func main() {
	input := flag.String("input", "", "Occurrence CSV to resolve (required)")
	output := flag.String("output", "", "Annotated CSV path (required)")
	paramsPath := flag.String("params", "", "JSON params file (source, skip-species assays, assay depths, inline dictionary)")
	dictPath := flag.String("dict", "", "SQLite name->AphiaID dictionary (overrides inline dictionary)")
	workers := flag.Int("workers", 0, "Worker hint; clamped to 3 for WoRMS API stability")
	reportPath := flag.String("report", "", "Write a markdown run report here")
	pdfPath := flag.String("pdf", "", "Write the run report as PDF here (requires Chromium)")
	baseURL := flag.String("base-url", worms.DefaultBaseURL, "WoRMS REST base URL")
	rateLimit := flag.Int("rate-limit", worms.DefaultRateLimitPerMinute, "WoRMS requests per minute")
	flag.Parse()

	if *input == "" || *output == "" {
		flag.Usage()
		os.Exit(2)
	}

	params := loadParams(*paramsPath)

	cfg := taxonomy.Config{
		Source:            params.Source,
		SkipSpeciesAssays: map[string]bool{},
		AssayRanks:        map[string]taxonomy.AssayRankInfo{},
		Workers:           *workers,
	}
	for _, assay := range params.SkipSpeciesAssays {
		cfg.SkipSpeciesAssays[assay] = true
	}
	for assay, info := range params.AssayRankInfo {
		cfg.AssayRanks[assay] = taxonomy.AssayRankInfo{MaxDepth: info.MaxDepth}
	}

	if *dictPath != "" {
		store, err := dictionary.OpenSQLite(*dictPath)
		if err != nil {
			log.Fatal(err)
		}
		defer store.Close()
		cfg.Dictionary = store
		log.Printf("taxon-match dictionary loaded entries=%d path=%s", store.Len(), *dictPath)
	} else if len(params.LocalDictionary) > 0 {
		cfg.Dictionary = dictionary.MapDictionary(params.LocalDictionary)
		log.Printf("taxon-match dictionary loaded entries=%d source=params", len(params.LocalDictionary))
	}

	in, err := os.Open(*input)
	if err != nil {
		log.Fatal(err)
	}
	ds, err := occurrence.ReadCSV(in)
	in.Close()
	if err != nil {
		log.Fatalf("read %s: %v", *input, err)
	}
	log.Printf("taxon-match loaded rows=%d columns=%d input=%s", ds.NumRows(), len(ds.Columns()), *input)

	client := worms.NewClient(worms.Config{BaseURL: *baseURL, RateLimitPerMinute: *rateLimit})
	resolver := taxonomy.NewResolver(client, cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	result, err := resolver.Resolve(ctx, ds)
	if err != nil {
		log.Fatal(err)
	}

	out, err := os.Create(*output)
	if err != nil {
		log.Fatal(err)
	}
	if err := result.Dataset.WriteCSV(out); err != nil {
		out.Close()
		log.Fatalf("write %s: %v", *output, err)
	}
	if err := out.Close(); err != nil {
		log.Fatal(err)
	}
	log.Printf("taxon-match wrote rows=%d output=%s", result.Dataset.NumRows(), *output)

	if *reportPath != "" || *pdfPath != "" {
		markdown := taxonomy.BuildReport(result)
		if *reportPath != "" {
			if err := os.WriteFile(*reportPath, []byte(markdown), 0o644); err != nil {
				log.Fatalf("write report: %v", err)
			}
		}
		if *pdfPath != "" {
			pdf, err := report.NewPDFRenderer().Render(ctx, markdown)
			if err != nil {
				log.Printf("taxon-match pdf rendering failed err=%v (markdown report unaffected)", err)
			} else if err := os.WriteFile(*pdfPath, pdf, 0o644); err != nil {
				log.Fatalf("write pdf: %v", err)
			}
		}
	}
}

func loadParams(path string) paramsFile {
	params := paramsFile{Source: "WoRMS"}
	if path == "" {
		return params
	}
	b, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read params: %v", err)
	}
	if err := json.Unmarshal(b, &params); err != nil {
		log.Fatalf("parse params %s: %v", path, err)
	}
	if params.Source == "" {
		params.Source = "WoRMS"
	}
	return params
}
