package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vango-go/vai-interviews/internal/dotenv"
	"github.com/vango-go/vai-interviews/pkg/gateway/config"
	"github.com/vango-go/vai-interviews/pkg/gateway/principal"
	gatewayserver "github.com/vango-go/vai-interviews/pkg/gateway/server"
	"github.com/vango-go/vai-interviews/pkg/interview"
	"github.com/vango-go/vai-interviews/pkg/interview/completion"
	"github.com/vango-go/vai-interviews/pkg/interview/eval"
	"github.com/vango-go/vai-interviews/pkg/interview/prompt"
	"github.com/vango-go/vai-interviews/pkg/interview/questions"
	"github.com/vango-go/vai-interviews/pkg/interview/realtime"
	"github.com/vango-go/vai-interviews/pkg/interview/reconcile"
	"github.com/vango-go/vai-interviews/pkg/interview/store"
)

type gatewayDeps struct {
	loadConfig   func() (config.Config, error)
	buildGateway func(context.Context, config.Config, *slog.Logger) (*gatewayserver.Server, func(), error)
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultGatewayDeps() gatewayDeps {
	return gatewayDeps{
		loadConfig:   config.LoadFromEnv,
		buildGateway: buildGateway,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

func upstreamHTTPClient(cfg config.Config) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: cfg.UpstreamConnectTimeout,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ResponseHeaderTimeout: cfg.UpstreamResponseHeaderTimeout,
		},
		Timeout: cfg.LLMRequestTimeout,
	}
}

// buildGateway wires the store, provider clients, and lifecycle service into
// a server. The returned func releases held resources (the database pool).
func buildGateway(ctx context.Context, cfg config.Config, logger *slog.Logger) (*gatewayserver.Server, func(), error) {
	cleanup := func() {}

	var (
		st     interview.Store
		pinger interface{ Ping(context.Context) error }
	)
	if cfg.DatabaseURL != "" {
		if cfg.MigrateOnBoot {
			if err := store.Migrate(ctx, cfg.DatabaseURL); err != nil {
				return nil, cleanup, err
			}
		}
		pool, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = pool.Close
		st = store.NewPostgres(pool)
		pinger = pool
	} else {
		st = store.NewMemory()
	}

	httpClient := upstreamHTTPClient(cfg)

	var llm completion.Client
	switch cfg.Completion {
	case config.CompletionGemini:
		gem, err := completion.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("create gemini client: %w", err)
		}
		llm = gem
	default:
		llm = completion.NewOpenAI(cfg.OpenAIAPIKey,
			completion.WithBaseURL(cfg.OpenAIBaseURL),
			completion.WithModel(cfg.OpenAIModel),
			completion.WithHTTPClient(httpClient),
			completion.WithJSONMode(true),
		)
	}

	resolver := prompt.NewResolver()
	svc := &interview.Service{
		Store: st,
		Broker: realtime.New(cfg.RealtimeAPIKey,
			realtime.WithBaseURL(cfg.RealtimeBaseURL),
			realtime.WithModel(cfg.RealtimeModel),
			realtime.WithVoice(cfg.RealtimeVoice),
			realtime.WithHTTPClient(httpClient),
			realtime.WithBackoff(cfg.RealtimeBackoff),
		),
		Reconciler: &reconcile.ModelReconciler{Client: llm, Logger: logger},
		Evaluator:  &eval.Engine{Client: llm, Resolver: resolver, Logger: logger},
		Briefs:     resolver,
		Questions:  &questions.Generator{Client: llm, Resolver: resolver, Logger: logger},
		Logger:     logger,
	}

	opts := make([]gatewayserver.Option, 0, 2)
	if cfg.WorkOSAPIKey != "" {
		opts = append(opts, gatewayserver.WithOwnerResolver(principal.NewWorkOS(cfg.WorkOSAPIKey)))
	}
	if pinger != nil {
		opts = append(opts, gatewayserver.WithStorePinger(pinger))
	}

	return gatewayserver.New(cfg, svc, logger, opts...), cleanup, nil
}

func buildHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
	}
}

func runGateway(ctx context.Context, logger *slog.Logger, deps gatewayDeps) error {
	if deps.loadConfig == nil {
		return errors.New("missing loadConfig dependency")
	}
	if deps.buildGateway == nil {
		return errors.New("missing buildGateway dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	gw, cleanup, err := deps.buildGateway(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build gateway: %w", err)
	}
	defer cleanup()
	httpSrv := buildHTTPServer(cfg, gw.Handler())

	logger.Info("starting gateway", "addr", cfg.Addr, "auth_mode", cfg.AuthMode)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("gateway stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps gatewayDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if err := dotenv.LoadFile(".env"); err != nil {
		fmt.Fprintf(stderr, "interview-gateway: %v\n", err)
		return 1
	}

	if err := runGateway(ctx, logger, deps); err != nil {
		fmt.Fprintf(stderr, "interview-gateway: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultGatewayDeps()))
}
