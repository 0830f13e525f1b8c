package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/pierreaubert/dotaddr/dix"
)

type options struct {
	configFile  string
	inputFile   string
	jsonFile    string
	skipInvalid bool
	save        bool
	workers     int
}

func main() {
	var opts options
	flag.StringVar(&opts.configFile, "conf", "", "toml configuration file")
	flag.StringVar(&opts.inputFile, "input", "", "file with one address per line, - for stdin")
	flag.StringVar(&opts.jsonFile, "json", "", "JSON document to scan for addresses")
	flag.BoolVar(&opts.skipInvalid, "skip-invalid", false, "log and skip invalid addresses instead of failing")
	flag.BoolVar(&opts.save, "save", false, "store converted addresses in the address book")
	flag.IntVar(&opts.workers, "workers", 0, "number of workers, overrides the configuration")
	flag.Parse()

	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dix.SetupSignalHandler(cancel)

	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Fatalf("Batch conversion failed: %v", err)
	}
	log.Println("All tasks completed")
}

func loadConfig(opts options) (*dix.Config, error) {
	var config *dix.Config
	if opts.configFile != "" {
		var err error
		config, err = dix.LoadConfig(opts.configFile)
		if err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	} else {
		defaults := dix.DefaultConfig()
		config = &defaults
	}
	if opts.workers > 0 {
		config.DotaddrBatch.MaxWorkers = opts.workers
	}
	return config, nil
}

func run(ctx context.Context, opts options, out io.Writer) error {
	if (opts.inputFile == "") == (opts.jsonFile == "") {
		return fmt.Errorf("exactly one of -input or -json must be specified")
	}

	config, err := loadConfig(opts)
	if err != nil {
		return err
	}

	addresses, err := readInput(opts)
	if err != nil {
		return err
	}
	log.Printf("Converting %d addresses with %d workers", len(addresses), config.DotaddrBatch.MaxWorkers)

	converter := dix.NewConverter(config.DotaddrBatch.MaxWorkers)
	results, err := converter.ConvertAll(ctx, addresses)
	if err != nil {
		return err
	}
	converter.PrintStats()

	failed := results.Failed()
	for _, r := range failed {
		log.Printf("Line %d: %v", r.Index+1, r.Err)
	}
	if len(failed) > 0 && !opts.skipInvalid {
		return fmt.Errorf("%d of %d addresses are invalid", len(failed), len(results))
	}

	valid := results.Valid()
	for _, r := range valid {
		fmt.Fprintf(out, "%s,%s,%s\n", r.Address, r.Network(), r.PublicKey.Hex())
	}

	if opts.save {
		return save(ctx, *config, valid.Records())
	}
	return nil
}

func readInput(opts options) ([]string, error) {
	if opts.jsonFile != "" {
		doc, err := os.ReadFile(opts.jsonFile)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", opts.jsonFile, err)
		}
		return dix.ExtractAddresses(doc)
	}

	if opts.inputFile == "-" {
		return readAddressList(os.Stdin)
	}
	f, err := os.Open(opts.inputFile)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", opts.inputFile, err)
	}
	defer f.Close()
	return readAddressList(f)
}

// readAddressList returns the non empty lines of r, ignoring # comments.
func readAddressList(r io.Reader) ([]string, error) {
	addresses := make([]string, 0)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		addresses = append(addresses, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading addresses: %w", err)
	}
	return addresses, nil
}

func save(ctx context.Context, config dix.Config, records []dix.Record) error {
	database, err := dix.NewSQLDatabase(config)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	log.Printf("Successfully connected to database %s", dix.DBUrlSecure(config))

	if err := database.CreateTable(); err != nil {
		return fmt.Errorf("error creating tables: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(config.DotaddrBatch.FlushTimeout))
	defer cancel()
	if err := dix.SaveInBatches(ctx, database, records, config.DotaddrBatch.BatchSize); err != nil {
		return err
	}
	log.Printf("Saved %d addresses", len(records))
	return nil
}
