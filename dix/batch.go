package dix

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pierreaubert/dotaddr/ss58"
)

// ErrReservedPrefix marks addresses whose prefix names no network. They
// decode but cannot be stored under a network id.
var ErrReservedPrefix = errors.New("reserved address prefix")

// Result is the outcome of converting one address. Err is set when the
// address could not be decoded; the other fields are then zero.
type Result struct {
	Index     int
	Address   string
	Prefix    ss58.Prefix
	PublicKey ss58.PublicKey
	Err       error
}

func (r Result) Network() string {
	if r.Prefix == nil {
		return ""
	}
	return PrefixName(r.Prefix)
}

func (r Result) Record() Record {
	return Record{
		Address:   r.Address,
		Network:   r.Prefix.NetworkID(),
		PublicKey: r.PublicKey.Hex(),
	}
}

// Results keeps the input order of ConvertAll.
type Results []Result

func (rs Results) Valid() Results {
	out := make(Results, 0, len(rs))
	for _, r := range rs {
		if r.Err == nil {
			out = append(out, r)
		}
	}
	return out
}

func (rs Results) Failed() Results {
	out := make(Results, 0)
	for _, r := range rs {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

func (rs Results) Records() []Record {
	records := make([]Record, 0, len(rs))
	for _, r := range rs.Valid() {
		records = append(records, r.Record())
	}
	return records
}

// Converter decodes addresses on a fixed pool of workers.
type Converter struct {
	workers int
	metrics *Metrics
}

func NewConverter(workers int) *Converter {
	if workers <= 0 {
		workers = 1
	}
	return &Converter{
		workers: workers,
		metrics: NewMetrics("Converter"),
	}
}

// Convert decodes a single address. Failures are returned in Result.Err.
func (c *Converter) Convert(index int, address string) Result {
	start := time.Now()
	d, err := ss58.Decode(address)
	if err == nil && d.Prefix.Reserved() {
		err = fmt.Errorf("%w %s in %s", ErrReservedPrefix, d.Prefix, address)
	}
	c.metrics.RecordLatency(start, 1, err)
	ObserveConversion("decode", start, err)

	if err != nil {
		return Result{Index: index, Address: address, Err: err}
	}
	return Result{
		Index:     index,
		Address:   address,
		Prefix:    d.Prefix,
		PublicKey: d.PublicKey,
	}
}

// ConvertAll decodes every address and returns one Result per input, in
// input order. Per address failures never abort the batch. A cancelled
// context aborts it and no results are returned.
func (c *Converter) ConvertAll(ctx context.Context, addresses []string) (Results, error) {
	results := make(Results, len(addresses))
	if len(addresses) == 0 {
		return results, nil
	}

	indexCh := make(chan int, c.workers)

	var wg sync.WaitGroup
	for range c.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case idx, ok := <-indexCh:
					if !ok {
						return
					}
					// each index is written by exactly one worker
					results[idx] = c.Convert(idx, addresses[idx])
				}
			}
		}()
	}

	for idx := range addresses {
		select {
		case <-ctx.Done():
			close(indexCh)
			wg.Wait()
			log.Printf("Conversion stopped after %d of %d addresses", idx, len(addresses))
			return nil, fmt.Errorf("conversion cancelled: %w", ctx.Err())
		case indexCh <- idx:
		}
	}
	close(indexCh)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("conversion cancelled: %w", err)
	}
	return results, nil
}

func (c *Converter) GetStats() *MetricsStats {
	return c.metrics.GetStats()
}

func (c *Converter) PrintStats() {
	c.metrics.PrintStats(true)
}
