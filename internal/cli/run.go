package cli

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"sync/atomic"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-call-cache/cache"
	"github.com/goliatone/go-call-cache/statecache"
)

const (
	bindingMutable = "mutable"
	bindingState   = "state"
)

type runConfig struct {
	Binding       string
	Calls         int
	Keys          int
	Concurrency   int
	MaxCacheSize  int
	TTL           time.Duration
	Latency       time.Duration
	SweepInterval time.Duration
	Dedupe        bool
	Seed          int64
	LogLevel      string
	MetricsStdout bool
}

func (c runConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Binding, validation.Required, validation.In(bindingMutable, bindingState)),
		validation.Field(&c.Calls, validation.Required, validation.Min(1)),
		validation.Field(&c.Keys, validation.Required, validation.Min(1)),
		validation.Field(&c.Concurrency, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxCacheSize, validation.Min(0)),
		validation.Field(&c.TTL, validation.Min(time.Duration(0))),
		validation.Field(&c.Latency, validation.Min(time.Duration(0))),
	)
}

func loadRunConfig(v *viper.Viper) runConfig {
	return runConfig{
		Binding:       v.GetString("binding"),
		Calls:         v.GetInt("calls"),
		Keys:          v.GetInt("keys"),
		Concurrency:   v.GetInt("concurrency"),
		MaxCacheSize:  v.GetInt("max-cache-size"),
		TTL:           v.GetDuration("ttl"),
		Latency:       v.GetDuration("latency"),
		SweepInterval: v.GetDuration("sweep-interval"),
		Dedupe:        v.GetBool("dedupe"),
		Seed:          v.GetInt64("seed"),
		LogLevel:      v.GetString("log-level"),
		MetricsStdout: v.GetBool("metrics-stdout"),
	}
}

func newRunCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Memoize a synthetic producer and print cache statistics",
		Long: "Run issues --calls fetches spread over --keys sibling keys with a Zipf " +
			"distribution, so a few keys are hot and most are cold.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadRunConfig(v)
			if err := cfg.Validate(); err != nil {
				return errors.Wrap(err, "invalid run configuration")
			}
			return run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("binding", bindingMutable, "cache binding: mutable or state")
	flags.Int("calls", 1000, "number of fetches")
	flags.Int("keys", 100, "number of distinct keys")
	flags.Int("concurrency", 8, "concurrent callers")
	flags.Int("max-cache-size", 0, "sibling cap under the key parent, 0 is unbounded")
	flags.Duration("ttl", 0, "entry lifetime, 0 never expires")
	flags.Duration("latency", time.Millisecond, "simulated producer latency")
	flags.Int64("seed", 1, "key distribution seed")
	flags.Bool("metrics-stdout", false, "also export the cache metrics to stderr")
	_ = v.BindPFlags(flags)

	return cmd
}

type backend interface {
	cache.Backend
	Len() int
	Close()
}

type report struct {
	Binding  string
	Calls    int
	Producer int64
	Counters map[string]int64
	Entries  int
	Elapsed  time.Duration
}

func run(ctx context.Context, out, errOut io.Writer, cfg runConfig) error {
	logger, err := newLogger(errOut, cfg.LogLevel)
	if err != nil {
		return err
	}

	reader := sdkmetric.NewManualReader()
	mpOpts := []sdkmetric.Option{sdkmetric.WithReader(reader)}
	if cfg.MetricsStdout {
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(errOut), stdoutmetric.WithPrettyPrint())
		if err != nil {
			return errors.Wrap(err, "failed to create metric exporter")
		}
		mpOpts = append(mpOpts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)))
	}
	provider := sdkmetric.NewMeterProvider(mpOpts...)
	defer provider.Shutdown(context.Background())

	store, err := newBackend(cfg, cache.Config{
		SweepInterval:  cfg.SweepInterval,
		DedupeInFlight: cfg.Dedupe,
		Logger:         logger,
		MeterProvider:  provider,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create store")
	}
	defer store.Close()

	var produced atomic.Int64
	producer := func(id string) cache.FetchFn[string] {
		return func(ctx context.Context) (string, error) {
			produced.Add(1)
			if cfg.Latency > 0 {
				select {
				case <-time.After(cfg.Latency):
				case <-ctx.Done():
					return "", ctx.Err()
				}
			}
			return "value-" + id, nil
		}
	}

	opts := []cache.Option{
		cache.WithExpiresAfter(cfg.TTL),
		cache.WithMaxCacheSize(cfg.MaxCacheSize),
	}

	started := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for _, idx := range keySequence(cfg) {
		id := strconv.FormatUint(idx, 10)
		g.Go(func() error {
			_, err := cache.Fetch(gctx, store, cache.NewKey("items", id), producer(id), opts...)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "fetch failed")
	}

	counters, err := collectCounters(ctx, reader)
	if err != nil {
		return errors.Wrap(err, "failed to collect metrics")
	}

	writeReport(out, report{
		Binding:  cfg.Binding,
		Calls:    cfg.Calls,
		Producer: produced.Load(),
		Counters: counters,
		Entries:  store.Len(),
		Elapsed:  time.Since(started),
	})
	return nil
}

func newBackend(cfg runConfig, cacheCfg cache.Config) (backend, error) {
	if cfg.Binding == bindingState {
		return statecache.New(statecache.NewMemoryHost(), cacheCfg)
	}
	return cache.NewStore(cacheCfg)
}

// keySequence draws cfg.Calls key indexes in [0, cfg.Keys).
func keySequence(cfg runConfig) []uint64 {
	seq := make([]uint64, cfg.Calls)
	if cfg.Keys == 1 {
		return seq
	}

	r := rand.New(rand.NewSource(cfg.Seed))
	z := rand.NewZipf(r, 1.2, 1, uint64(cfg.Keys-1))
	for i := range seq {
		seq[i] = z.Uint64()
	}
	return seq
}

func collectCounters(ctx context.Context, reader *sdkmetric.ManualReader) (map[string]int64, error) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return nil, err
	}

	totals := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[m.Name] += dp.Value
			}
		}
	}
	return totals, nil
}

func writeReport(w io.Writer, r report) {
	row := func(name string, value any) {
		fmt.Fprintf(w, "%-10s %v\n", name, value)
	}
	row("binding", r.Binding)
	row("calls", r.Calls)
	row("producer", r.Producer)
	row("hits", r.Counters["cache.hits"])
	row("misses", r.Counters["cache.misses"])
	row("writes", r.Counters["cache.writes"])
	row("evictions", r.Counters["cache.evictions"])
	row("swept", r.Counters["cache.swept"])
	row("entries", r.Entries)
	row("elapsed", r.Elapsed.Round(time.Microsecond))
}
