package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"edge-gateway/middleware/edge"
	"edge-gateway/middleware/edge/application"
	"edge-gateway/middleware/edge/domain"
	"edge-gateway/middleware/edge/infra"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "edge-gateway").
		Logger()

	cfg, err := readConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("config error")
	}

	target, err := url.Parse(cfg.upstreamURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid UPSTREAM_URL")
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("proxy error")
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore := infra.NewCounterStore(ctx, infra.StoreConfig{
		RedisAddr:     cfg.redisAddr,
		RedisPassword: cfg.redisPassword,
		RedisDB:       cfg.redisDB,
		CallTimeout:   cfg.storeTimeout,
		SweepEvery:    cfg.sweepEvery,
	}, logger)
	defer closeStore()

	limiterOpts := []application.LimiterOption{
		application.WithLogger(logger),
		application.WithAtomicExpiry(cfg.atomicExpiry),
	}
	if len(cfg.failClosedTiers) > 0 {
		limiterOpts = append(limiterOpts, application.WithFailClosed(cfg.failClosedTiers...))
	}
	limiter := application.NewLimiter(store, limiterOpts...)

	stats := buildStats(ctx, cfg, logger)
	cspCfg := buildCSPConfig(cfg, logger)

	routes := application.NewRoutePolicy(cfg.baseDomain)
	if cfg.appHost != "" {
		routes.AppHost = cfg.appHost
	}
	if cfg.defaultView != "" {
		routes.DefaultView = cfg.defaultView
	}

	// endpoints servidos fora do pipeline (bypass): health, métricas e o
	// receptor de reports da CSP; todo o resto vai para o upstream.
	mux := chi.NewRouter()
	mux.Use(requestID)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Method(http.MethodGet, "/metrics", promhttp.Handler())
	mux.Post("/api/csp-report", cspReportHandler(logger))
	mux.Handle("/*", proxy)

	h := edge.Pipeline(edge.Options{
		Limiter:        limiter,
		CSP:            cspCfg,
		CSRF:           application.NewCSRFPolicy(cfg.csrfExemptPrefixes...),
		Routes:         routes,
		Stats:          stats,
		BypassPaths:    edge.DefaultBypassPaths(),
		MaxInFlight:    cfg.maxInFlight,
		AcquireTimeout: cfg.acquireTimeout,
		Logger:         logger,
	})(mux)

	srv := &http.Server{
		Addr:              cfg.listenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", cfg.listenAddr).Str("upstream", target.String()).Msg("gateway listening")
	logger.Info().
		Str("base_domain", cfg.baseDomain).
		Str("app_host", routes.AppHost).
		Str("default_view", routes.DefaultView).
		Msg("routing policy")
	logger.Info().
		Bool("atomic_expiry", cfg.atomicExpiry).
		Dur("store_timeout", cfg.storeTimeout).
		Strs("fail_closed_tiers", tierNames(cfg.failClosedTiers)).
		Msg("rate limit policy")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server error")
	}
}

// requestID propaga (ou cria) o X-Request-Id nas duas direções.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		r.Header.Set("X-Request-Id", id)
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

// cspReportHandler recebe os reports de violação da CSP e os joga no log.
// Fica na lista de bypass para não depender da política que o alimenta.
func cspReportHandler(logger zerolog.Logger) http.HandlerFunc {
	type report struct {
		Body map[string]any `json:"csp-report"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
		var rep report
		if err := json.NewDecoder(r.Body).Decode(&rep); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		logger.Warn().
			Interface("report", rep.Body).
			Str("ip", edge.ClientIP(r)).
			Msg("csp violation")
		w.WriteHeader(http.StatusNoContent)
	}
}

func buildStats(ctx context.Context, cfg config, logger zerolog.Logger) domain.StatsStore {
	stores := []domain.StatsStore{infra.NewPromStatsStore(prometheus.DefaultRegisterer)}

	if cfg.statsEnabled && cfg.redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.redisAddr,
			Password: cfg.redisPassword,
			DB:       cfg.redisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("stats redis unreachable, keeping prometheus only")
		} else {
			stores = append(stores, infra.NewRedisStatsStore(
				rdb,
				infra.WithStatsTTL(cfg.statsTTL),
				infra.WithStatsTrackKeys(cfg.statsTrackKeys),
			))
		}
	}

	return infra.MultiStats(stores...)
}

func buildCSPConfig(cfg config, logger zerolog.Logger) domain.CSPConfig {
	connect := application.ParseDomainList(cfg.cspConnectDomains)
	connect = append(connect, application.ConnectSourcesFromAPI(cfg.apiURL)...)
	connect = append(connect, application.ParseDomainList(cfg.appURL)...)

	out := domain.CSPConfig{
		ConnectDomains: connect,
		ScriptDomains:  application.ParseDomainList(cfg.cspScriptDomains),
		StyleDomains:   application.ParseDomainList(cfg.cspStyleDomains),
		FontDomains:    application.ParseDomainList(cfg.cspFontDomains),
		ImgDomains:     application.ParseDomainList(cfg.cspImgDomains),
		ReportURI:      cfg.cspReportURI,
		ReportOnly:     cfg.cspReportOnly,
		Development:    cfg.development,
	}

	if !out.Development {
		if len(out.ConnectDomains) == 0 {
			logger.Warn().Msg("CSP connect-src has no configured origins beyond 'self'")
		}
		if out.ReportURI == "" {
			logger.Warn().Msg("CSP report-uri not configured")
		}
	}
	return out
}

func tierNames(tiers []domain.Tier) []string {
	out := make([]string, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, string(t))
	}
	return out
}

type config struct {
	listenAddr  string
	upstreamURL string

	baseDomain  string
	appHost     string
	defaultView string

	redisAddr     string
	redisPassword string
	redisDB       int
	storeTimeout  time.Duration
	sweepEvery    time.Duration

	atomicExpiry    bool
	failClosedTiers []domain.Tier

	maxInFlight    int
	acquireTimeout time.Duration

	statsEnabled   bool
	statsTrackKeys bool
	statsTTL       time.Duration

	cspConnectDomains string
	cspScriptDomains  string
	cspStyleDomains   string
	cspFontDomains    string
	cspImgDomains     string
	cspReportURI      string
	cspReportOnly     bool

	apiURL string
	appURL string

	csrfExemptPrefixes []string
	allowedOrigins     []string

	development bool
}

func readConfig() (config, error) {
	cfg := config{}
	cfg.listenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.upstreamURL = os.Getenv("UPSTREAM_URL")

	cfg.baseDomain = os.Getenv("BASE_DOMAIN")
	cfg.appHost = os.Getenv("APP_HOST")
	cfg.defaultView = os.Getenv("DEFAULT_APP_VIEW")

	cfg.redisAddr = os.Getenv("EDGE_REDIS_ADDR")
	cfg.redisPassword = os.Getenv("EDGE_REDIS_PASSWORD")
	cfg.redisDB = getenvIntDefault("EDGE_REDIS_DB", 0)
	cfg.storeTimeout = getenvDurationDefault("EDGE_STORE_TIMEOUT", 500*time.Millisecond)
	cfg.sweepEvery = getenvDurationDefault("EDGE_SWEEP_EVERY", time.Minute)

	cfg.atomicExpiry = getenvBoolDefault("EDGE_ATOMIC_EXPIRY", true)
	for _, name := range getenvSlice("EDGE_FAIL_CLOSED_TIERS", nil) {
		switch domain.Tier(name) {
		case domain.TierAuth, domain.TierAPI, domain.TierWeb:
			cfg.failClosedTiers = append(cfg.failClosedTiers, domain.Tier(name))
		default:
			return config{}, errors.New("unknown tier in EDGE_FAIL_CLOSED_TIERS: " + name)
		}
	}

	cfg.maxInFlight = getenvIntDefault("EDGE_MAX_INFLIGHT", 0)
	cfg.acquireTimeout = getenvDurationDefault("EDGE_ACQUIRE_TIMEOUT", 0)

	cfg.statsEnabled = getenvBoolDefault("EDGE_STATS_ENABLED", false)
	cfg.statsTrackKeys = getenvBoolDefault("EDGE_STATS_TRACK_KEYS", false)
	cfg.statsTTL = getenvDurationDefault("EDGE_STATS_TTL", 24*time.Hour)

	cfg.cspConnectDomains = os.Getenv("CSP_CONNECT_DOMAINS")
	cfg.cspScriptDomains = os.Getenv("CSP_SCRIPT_DOMAINS")
	cfg.cspStyleDomains = os.Getenv("CSP_STYLE_DOMAINS")
	cfg.cspFontDomains = os.Getenv("CSP_FONT_DOMAINS")
	cfg.cspImgDomains = os.Getenv("CSP_IMG_DOMAINS")
	cfg.cspReportURI = os.Getenv("CSP_REPORT_URI")
	cfg.cspReportOnly = getenvBoolDefault("CSP_REPORT_ONLY", false)

	cfg.apiURL = os.Getenv("API_URL")
	cfg.appURL = os.Getenv("APP_URL")

	cfg.csrfExemptPrefixes = getenvSlice("CSRF_EXEMPT_PREFIXES", []string{"/api/webhook"})
	cfg.allowedOrigins = getenvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"})

	cfg.development = getenvDefault("ENVIRONMENT", "production") == "development"

	if cfg.upstreamURL == "" {
		return config{}, errors.New("UPSTREAM_URL is required")
	}
	if cfg.baseDomain == "" {
		return config{}, errors.New("BASE_DOMAIN is required")
	}
	return cfg, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getenvSlice(k string, def []string) []string {
	v := os.Getenv(k)
	if strings.TrimSpace(v) == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
