package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/metrics"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3transfer/s3types"
)

// progressInterval throttles progress lines on the terminal.
const progressInterval = 250 * time.Millisecond

// addTransferFlags registers the flags shared by download and upload.
func addTransferFlags(flags *pflag.FlagSet) {
	flags.Bool("concurrent", false, "Transfer files in parallel instead of one at a time")
	flags.String("modified-since", "", "Only transfer files modified after this RFC3339 time")
	flags.String("unmodified-since", "", "Only transfer files modified at or before this RFC3339 time")
	flags.Bool("disable-slash-correction", false, "Use the prefix as given instead of appending '/'")
	flags.StringSlice("include", nil, "Only transfer relative paths matching these globs")
	flags.StringSlice("exclude", nil, "Skip relative paths matching these globs")
	flags.Bool("quiet", false, "Do not print progress")
}

// transferFlags holds the parsed shared flags.
type transferFlags struct {
	concurrent             bool
	modifiedSince          *time.Time
	unmodifiedSince        *time.Time
	disableSlashCorrection bool
	include                []string
	exclude                []string
	quiet                  bool
}

func (a *app) transferFlags() (*transferFlags, error) {
	modifiedSince, err := parseTime("modified-since", a.v.GetString("modified-since"))
	if err != nil {
		return nil, err
	}
	unmodifiedSince, err := parseTime("unmodified-since", a.v.GetString("unmodified-since"))
	if err != nil {
		return nil, err
	}
	return &transferFlags{
		concurrent:             a.v.GetBool("concurrent"),
		modifiedSince:          modifiedSince,
		unmodifiedSince:        unmodifiedSince,
		disableSlashCorrection: a.v.GetBool("disable-slash-correction"),
		include:                a.v.GetStringSlice("include"),
		exclude:                a.v.GetStringSlice("exclude"),
		quiet:                  a.v.GetBool("quiet"),
	}, nil
}

// parseTime parses an optional RFC3339 flag value.
func parseTime(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q: expected RFC3339, e.g. 2024-01-02T15:04:05Z", name, value)
	}
	return &t, nil
}

// transfer runs fn with a client configured from flags, serving metrics and
// printing progress as requested, then prints a summary of the result.
func (a *app) transfer(
	cmd *cobra.Command,
	quiet bool,
	fn func(context.Context, *s3transfer.Client, ...s3types.DirectoryOption) (*s3types.DirectoryResult, error),
) error {
	ctx := cmd.Context()

	var extra []s3types.Option
	if addr := a.v.GetString("metrics-addr"); addr != "" {
		reg := prometheus.NewRegistry()
		collector, err := metrics.NewCollector(reg, metrics.DefaultNamespace)
		if err != nil {
			return err
		}
		stop, err := a.serveMetrics(addr, reg)
		if err != nil {
			return err
		}
		defer stop()
		extra = append(extra, s3transfer.WithMetrics(collector))
	}

	client, err := a.newClient(extra...)
	if err != nil {
		return err
	}
	defer client.Close()

	var opts []s3types.DirectoryOption
	var printer *progressPrinter
	if !quiet {
		printer = &progressPrinter{w: cmd.ErrOrStderr()}
		opts = append(opts, s3transfer.WithDirectoryProgress(printer.print))
	}

	result, err := fn(ctx, client, opts...)
	if printer != nil {
		printer.done()
	}
	if result != nil {
		printSummary(cmd.OutOrStdout(), result)
	}
	return err
}

// serveMetrics starts a Prometheus endpoint on addr and returns its shutdown func.
func (a *app) serveMetrics(addr string, reg *prometheus.Registry) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on metrics address: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	a.logger.Info("serving metrics", slog.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// progressPrinter renders snapshots as a single rewritten terminal line.
type progressPrinter struct {
	w       io.Writer
	mu      sync.Mutex
	last    time.Time
	printed bool
}

func (p *progressPrinter) print(s s3types.DirectoryProgress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	finished := s.TransferredFiles == s.TotalFiles
	if !finished && time.Since(p.last) < progressInterval {
		return
	}
	p.last = time.Now()
	p.printed = true

	line := fmt.Sprintf("%d/%d files, %s/%s",
		s.TransferredFiles, s.TotalFiles,
		humanize.Bytes(uint64(s.TransferredBytes)), humanize.Bytes(uint64(s.TotalBytes)))
	if s.CurrentFile != "" {
		line += fmt.Sprintf(" (%s %s/%s)", s.CurrentFile,
			humanize.Bytes(uint64(s.TransferredBytesForCurrentFile)),
			humanize.Bytes(uint64(s.TotalBytesForCurrentFile)))
	}
	fmt.Fprintf(p.w, "\r\033[K%s", line)
}

func (p *progressPrinter) done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.printed {
		fmt.Fprintln(p.w)
	}
}

func printSummary(w io.Writer, r *s3types.DirectoryResult) {
	verb := "Downloaded"
	if r.Direction == s3types.DirectionUpload {
		verb = "Uploaded"
	}
	fmt.Fprintf(w, "%s %d/%d files (%s) in %s: %s\n",
		verb, r.TransferredFiles, r.TotalFiles,
		humanize.Bytes(uint64(r.TransferredBytes)),
		r.Duration.Round(time.Millisecond), r.Outcome)
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  failed %s: %v\n", f.Key, f.Err)
	}
}
