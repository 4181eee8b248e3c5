package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"

	"github.com/anlukk/gbifmap/internal/gbif"
	"github.com/anlukk/gbifmap/internal/geo"
)

type Options struct {
	Input  string `short:"i" long:"in" description:"Input file path (occurrence search response). Reads from stdin if empty"`
	Output string `short:"o" long:"out" description:"Output file path. Writes to stdout if empty"`
	Format string `short:"f" long:"format" description:"Output format" choice:"json" choice:"yaml" default:"json"`
}

// searchPayload is the envelope of a saved /v1/occurrence/search response.
type searchPayload struct {
	Results []gbif.Occurrence `json:"results"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	// Read Input
	var inputData []byte
	var err error

	if opts.Input != "" {
		inputData, err = os.ReadFile(opts.Input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading input file: %v\n", err)
			os.Exit(1)
		}
	} else {
		inputData, err = io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
			os.Exit(1)
		}
	}

	var payload searchPayload
	if err := json.Unmarshal(inputData, &payload); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing occurrence payload: %v\n", err)
		os.Exit(1)
	}

	fc := geo.NewCollection(len(payload.Results))

	count := 0
	skipped := 0
	for i := range payload.Results {
		rec := &payload.Results[i]

		if !rec.HasCoordinates() {
			skipped++
			continue
		}

		fc.Features = append(fc.Features, geo.NewPointFeature(
			*rec.DecimalLongitude,
			*rec.DecimalLatitude,
			map[string]interface{}{
				"genus":     rec.Genus,
				"species":   rec.Species,
				"family":    rec.Family,
				"eventDate": rec.EventDate,
			},
		))
		count++
	}

	if skipped > 0 {
		fmt.Fprintf(os.Stderr, "Skipped %d records without coordinates\n", skipped)
	}

	// marshal
	var outputData []byte
	if opts.Format == "yaml" {
		outputData, err = yaml.Marshal(fc)
	} else {
		outputData, err = json.MarshalIndent(fc, "", "  ")
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling data: %v\n", err)
		os.Exit(1)
	}

	if opts.Output != "" {
		err = os.WriteFile(opts.Output, outputData, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Successfully converted %d occurrences to %s (format: %s)\n", count, opts.Output, opts.Format)
	} else {
		fmt.Println(string(outputData))
	}
}
