package commands

import (
	"io"
	"net"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brennhill/snapo-core/internal/clock"
	"github.com/brennhill/snapo-core/internal/config"
	"github.com/brennhill/snapo-core/internal/httpcapture"
	"github.com/brennhill/snapo-core/internal/publisher"
	"github.com/brennhill/snapo-core/internal/telemetry"
)

func newCaptureCmd() *cobra.Command {
	var listen, outPath string
	var gzipOut bool

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Run a recording HTTP forward proxy, publishing every exchange as NDJSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return runCapture(cfg, listen, outPath, gzipOut)
		},
	}
	config.BindFlags(cmd.Flags())
	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:8888", "address the forward proxy listens on")
	cmd.Flags().StringVar(&outPath, "out", "capture.ndjson", "NDJSON output path (or directory prefix with --gzip)")
	cmd.Flags().BoolVar(&gzipOut, "gzip", false, "rotate gzip-compressed NDJSON files under --out instead of one plain file")
	return cmd
}

func runCapture(cfg config.Config, listen, outPath string, gzipOut bool) error {
	log, err := telemetry.NewLogger(cfg.LogLevel == "debug")
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	metrics := telemetry.NewMetrics(prometheus.NewRegistry())

	var sinkCloser func() error
	var pub *publisher.Queue
	if gzipOut {
		sink, err := publisher.NewGzipFileSink(outPath, "snapo-capture", 64<<20)
		if err != nil {
			return err
		}
		pub = publisher.NewQueue(cfg.PublisherQueueCapacity, log, metrics, sink)
		sinkCloser = sink.Close
	} else {
		f, err := os.Create(outPath) // #nosec G304 -- operator-supplied output path
		if err != nil {
			return err
		}
		pub = publisher.NewQueue(cfg.PublisherQueueCapacity, log, metrics, f)
		sinkCloser = f.Close
	}
	defer pub.Close()
	defer sinkCloser() //nolint:errcheck

	interceptor := httpcapture.New(nil, clock.NewReal(), pub, metrics, log,
		httpcapture.Config{MaxBodyBytes: cfg.HTTPMaxBodyBytes, PreviewChars: cfg.HTTPPreviewChars})

	server := &http.Server{
		Addr:    listen,
		Handler: &forwardProxy{interceptor: interceptor},
	}
	log.Info("snapoctl capture listening", zap.String("addr", listen), zap.String("out", outPath))
	return server.ListenAndServe()
}

// forwardProxy is a minimal HTTP forward proxy: plain HTTP requests are
// replayed through the capturing interceptor; CONNECT requests are spliced
// through untouched. TLS interception (MITM) would require generating a
// per-host certificate at connect time, which spec.md's capture scope does
// not call for — CONNECT tunnels are passed through uninspected rather than
// silently dropped.
type forwardProxy struct {
	interceptor *httpcapture.Interceptor
}

func (p *forwardProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodConnect {
		p.serveConnect(w, r)
		return
	}

	outReq := r.Clone(r.Context())
	outReq.RequestURI = ""
	stripHopByHopHeaders(outReq.Header)

	resp, err := p.interceptor.RoundTrip(outReq)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func (p *forwardProxy) serveConnect(w http.ResponseWriter, r *http.Request) {
	target, err := net.Dial("tcp", r.Host)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	defer target.Close()

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		http.Error(w, "hijacking not supported", http.StatusInternalServerError)
		return
	}
	client, _, err := hijacker.Hijack()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer client.Close()

	if _, err := client.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n")); err != nil {
		return
	}

	done := make(chan struct{}, 2)
	go func() { io.Copy(target, client); done <- struct{}{} }() //nolint:errcheck
	go func() { io.Copy(client, target); done <- struct{}{} }() //nolint:errcheck
	<-done
}

var hopByHopHeaders = []string{
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"Te", "Trailers", "Transfer-Encoding", "Upgrade", "Proxy-Connection",
}

func stripHopByHopHeaders(h http.Header) {
	for _, name := range hopByHopHeaders {
		h.Del(name)
	}
}
