// Command bulkresolve resolves irradiation profiles for every location of a
// CSV file and writes one JSON result per line.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/heliometric/heliometric/pkg/irradiation"
	"github.com/heliometric/heliometric/pkg/log"
	"github.com/heliometric/heliometric/pkg/types"
	"github.com/levenlabs/go-lflag"
	"gopkg.in/cheggaaa/pb.v1"
)

func main() {
	r := irradiation.Configured(nil)
	in := lflag.RequiredString("in", "CSV file with latitude,longitude[,tilt,azimuth] rows")
	out := lflag.String("out", "-", "File to write JSON lines to, - for stdout")
	source := lflag.String("source", "auto", "Irradiation source to prefer")
	lflag.Configure()
	log.SyncLevel()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, r, *in, *out, *source); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "bulk resolution failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, r *irradiation.Reconciler, in, out, source string) error {
	src, err := types.ParseIrradiationSource(source)
	if err != nil {
		return err
	}

	f, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()
	reqs, err := readRequests(f)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if out != "-" {
		of, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer of.Close()
		w = of
	}

	bar := pb.New(len(reqs))
	bar.Output = os.Stderr
	bar.ShowTimeLeft = false
	bar.Start()
	results := r.ResolveBulkProgress(ctx, reqs, src, func(irradiation.BulkResult) {
		bar.Increment()
	})
	bar.FinishPrint("irradiation resolved")

	return writeResults(w, results)
}

// readRequests parses rows of latitude,longitude[,tilt,azimuth]. A first row
// that doesn't start with a number is taken as a header.
func readRequests(rd io.Reader) ([]irradiation.Request, error) {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		if _, err := strconv.ParseFloat(strings.TrimSpace(rows[0][0]), 64); err != nil {
			rows = rows[1:]
		}
	}

	reqs := make([]irradiation.Request, 0, len(rows))
	for i, row := range rows {
		if len(row) < 2 {
			return nil, fmt.Errorf("row %d: expected at least latitude and longitude", i+1)
		}
		var vals [4]float64
		for j := 0; j < len(row) && j < len(vals); j++ {
			if strings.TrimSpace(row[j]) == "" {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[j]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i+1, j+1, err)
			}
			vals[j] = v
		}
		req := irradiation.Request{
			Location: types.Location{Latitude: vals[0], Longitude: vals[1]},
			Tilt:     vals[2],
			Azimuth:  vals[3],
		}
		// panels face the equator unless told otherwise
		if len(row) < 4 && req.Location.Latitude > 0 {
			req.Azimuth = 180
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func writeResults(w io.Writer, results []irradiation.BulkResult) error {
	enc := json.NewEncoder(w)
	for _, res := range results {
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to write result %d: %w", res.Index, err)
		}
	}
	return nil
}
