package proxyserver

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/elazarl/goproxy"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"urlfilter/internal/decisionlog"
	"urlfilter/internal/facade"
	"urlfilter/internal/logging"
	"urlfilter/internal/metrics"
)

const (
	proxyLogPrefix = "proxy"
	proxyLogSuffix = ".log"
)

// Server is a forward proxy that filters every request and CONNECT tunnel
// through the package-wide facade, never decrypting HTTPS traffic.
type Server struct {
	config      *Config
	proxy       *goproxy.ProxyHttpServer
	listener    net.Listener
	httpServer  *http.Server
	metricsSrv  *http.Server
	proxyLogger *decisionlog.RotatingFileWriter
	decisions   *decisionlog.Logger
	dispatcher  *logging.Dispatcher
	logger      *logging.ComponentLogger

	group   errgroup.Group
	mu      sync.Mutex
	running bool
}

// NewServer builds a Server, wiring its internal logs and optional decision
// logger/dispatcher, without starting any listener.
func NewServer(cfg *Config) (*Server, error) {
	proxy := goproxy.NewProxyHttpServer()

	proxyLogger, err := decisionlog.NewRotatingFileWriter(decisionlog.RotatingFileWriterConfig{
		Dir:    cfg.LogDir,
		Prefix: proxyLogPrefix,
		Suffix: proxyLogSuffix,
	})
	if err != nil {
		return nil, fmt.Errorf("proxyserver: creating proxy logger: %w", err)
	}
	proxy.Logger = log.New(proxyLogger, "", log.LstdFlags)

	var dispatcher *logging.Dispatcher
	if len(cfg.LogReceivers) > 0 {
		dispatcher, err = logging.NewDispatcherFromConfig(cfg.LogReceivers, cfg.LogAttributes, cfg.LogDir)
		if err != nil {
			_ = proxyLogger.Close()
			return nil, fmt.Errorf("proxyserver: creating log dispatcher: %w", err)
		}
	}

	decisions, err := decisionlog.NewLogger(cfg.LogDir)
	if err != nil {
		_ = proxyLogger.Close()
		if dispatcher != nil {
			_ = dispatcher.Close()
		}
		return nil, fmt.Errorf("proxyserver: creating decision logger: %w", err)
	}

	errorLogger, _ := logging.NewErrorLogger(cfg.LogDir + "/proxyserver-errors.log")

	s := &Server{
		config:      cfg,
		proxy:       proxy,
		proxyLogger: proxyLogger,
		decisions:   decisions,
		dispatcher:  dispatcher,
		logger:      logging.NewComponentLogger("proxyserver", errorLogger, dispatcher),
	}

	s.setupFiltering()

	return s, nil
}

// setupFiltering wires plain-HTTP filtering via OnRequest().DoFunc and
// HTTPS CONNECT filtering via OnRequest().HandleConnectFunc. The CONNECT
// path never establishes a MITM tunnel: it either rejects the CONNECT
// outright or lets it through unexamined, so TLS payloads are never seen.
func (s *Server) setupFiltering() {
	s.proxy.OnRequest().DoFunc(func(req *http.Request, ctx *goproxy.ProxyCtx) (*http.Request, *http.Response) {
		start := time.Now()
		docURL := req.Referer()
		resType := resourceTypeFromRequest(req)

		blocked, matchedRule, whitelisted := facade.Decide(req.URL.String(), docURL, resType)
		metrics.Observe(blocked, time.Since(start))

		s.logDecision(req.URL.String(), docURL, resType, blocked, matchedRule, whitelisted, requestID(req))

		if blocked {
			return req, BlockResponse(req, "blocked by rule "+matchedRule)
		}
		return req, nil
	})

	s.proxy.OnRequest().HandleConnectFunc(func(host string, ctx *goproxy.ProxyCtx) (*goproxy.ConnectAction, string) {
		start := time.Now()
		target := "https://" + host + "/"

		blocked, matchedRule, whitelisted := facade.Decide(target, "", "document")
		metrics.Observe(blocked, time.Since(start))
		s.logDecision(target, "", "document", blocked, matchedRule, whitelisted, "")

		if blocked {
			return goproxy.RejectConnect, host
		}
		return goproxy.OkConnect, host
	})
}

func (s *Server) logDecision(url, docURL, resType string, blocked bool, matchedRule string, whitelisted bool, reqID string) {
	action := decisionlog.ActionAllow
	if blocked {
		action = decisionlog.ActionBlock
	}
	reason := ""
	if whitelisted {
		reason = "whitelisted"
	}
	entry := decisionlog.Entry{
		Timestamp:    time.Now(),
		RequestID:    reqID,
		URL:          url,
		DocumentURL:  docURL,
		ResourceType: resType,
		Action:       action,
		MatchedRule:  matchedRule,
		Reason:       reason,
	}
	if err := s.decisions.Log(entry); err != nil {
		s.logger.Warnf("failed to write decision log entry: %v", err)
	}
}

func requestID(req *http.Request) string {
	if id := req.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	return uuid.NewString()
}

// resourceTypeFromRequest infers a coarse resource type from the request,
// good enough for the demonstration proxy (real platform bindings supply a
// precise type from the caller).
func resourceTypeFromRequest(req *http.Request) string {
	accept := req.Header.Get("Accept")
	switch {
	case strings.Contains(accept, "text/html"):
		return "document"
	case strings.HasSuffix(req.URL.Path, ".js"):
		return "script"
	case strings.HasSuffix(req.URL.Path, ".css"):
		return "stylesheet"
	default:
		return ""
	}
}

// Start begins listening and serving, retrying on the next port if the
// configured one is busy, and starts the metrics server if configured.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("proxyserver: already running")
	}

	listener, port, err := listenWithRetry(s.config.GetBindAddress(), s.config.Port)
	if err != nil {
		return err
	}
	s.config.Port = port
	s.listener = listener
	s.httpServer = &http.Server{Handler: s.proxy}

	s.running = true

	s.group.Go(func() error {
		if err := s.httpServer.Serve(listener); err != nil &&
			!errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
			return err
		}
		return nil
	})

	if s.config.MetricsPort != 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		s.metricsSrv = &http.Server{
			Addr:    fmt.Sprintf("%s:%d", s.config.GetBindAddress(), s.config.MetricsPort),
			Handler: mux,
		}
		s.group.Go(func() error {
			if err := s.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	return nil
}

// Port returns the port actually bound (may differ from the configured one
// after a retry).
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.Port
}

// Stop gracefully shuts the proxy and metrics listeners down and closes all
// loggers.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.metricsSrv != nil {
		_ = s.metricsSrv.Close()
	}
	s.mu.Unlock()

	_ = s.group.Wait()

	var firstErr error
	if s.decisions != nil {
		if err := s.decisions.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.proxyLogger != nil {
		if err := s.proxyLogger.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.dispatcher != nil {
		if err := s.dispatcher.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func listenWithRetry(bindAddr string, startPort int) (net.Listener, int, error) {
	port := startPort
	for i := 0; i < MaxPortRetries; i++ {
		if port > 65535 {
			break
		}
		addr := fmt.Sprintf("%s:%d", bindAddr, port)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			return listener, port, nil
		}
		if !isAddrInUse(err) {
			return nil, 0, fmt.Errorf("proxyserver: listening on %s: %w", addr, err)
		}
		port++
	}
	return nil, 0, fmt.Errorf("proxyserver: no available port after %d attempts starting at %d", MaxPortRetries, startPort)
}

func isAddrInUse(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		var sysErr *os.SyscallError
		if errors.As(opErr.Err, &sysErr) {
			return errors.Is(sysErr.Err, syscall.EADDRINUSE)
		}
	}
	return false
}

// BlockResponse builds the synthesized 403 returned for a blocked plain-HTTP
// request.
func BlockResponse(req *http.Request, reason string) *http.Response {
	body := fmt.Sprintf("Request blocked by urlfilter: %s\n", reason)

	return &http.Response{
		StatusCode: http.StatusForbidden,
		Status:     "403 Forbidden",
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header: http.Header{
			"Content-Type":   []string{"text/plain; charset=utf-8"},
			"Content-Length": []string{fmt.Sprintf("%d", len(body))},
			"X-Blocked-By":   []string{"urlfilter"},
		},
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
