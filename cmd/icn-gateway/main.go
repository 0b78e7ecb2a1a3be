// Command icn-gateway is the thin external-collaborator HTTP/JSON boundary
// named in SPEC_FULL.md 9's dropped-dependency ledger: spec.md scopes the
// core packages (identity/dagstore/mana/governance/execution/router) to an
// internal Go API, treating the HTTP surface as an external collaborator.
// This binary is that collaborator: a chi router translating JSON requests
// into calls against a runtime.Context, authenticated with the teacher's
// gateway JWT middleware and instrumented with the teacher's Prometheus
// registry convention.
package main

import (
	"encoding/hex"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/icn-project/icn-core/cmd/icn-gateway/httpapi"
	"github.com/icn-project/icn-core/crypto"
	"github.com/icn-project/icn-core/gateway/middleware"
	"github.com/icn-project/icn-core/governance"
	"github.com/icn-project/icn-core/identity"
	"github.com/icn-project/icn-core/observability/logging"
	"github.com/icn-project/icn-core/runtime"
	"github.com/icn-project/icn-core/storage"
)

func main() {
	listenAddr := flag.String("listen", ":8081", "HTTP listen address")
	federationID := flag.String("federation", "default-federation", "Federation id this gateway serves")
	authEnabled := flag.Bool("auth", false, "Require a bearer JWT for mutating requests")
	jwtSecret := flag.String("jwt-secret", "", "HMAC secret for bearer token validation (required when -auth is set)")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("ICN_ENV"))
	slogger := logging.Setup("icn-gateway", env)
	stdLogger := log.New(os.Stdout, "icn-gateway ", log.LstdFlags|log.Lmsgprefix)

	sk, err := crypto.GenerateSigningKey()
	if err != nil {
		slogger.Error("failed to generate gateway node signing key", slog.Any("error", err))
		os.Exit(1)
	}
	didKey, err := crypto.DidKeyFromVerifyingKey(sk.VerifyingKey())
	if err != nil {
		slogger.Error("failed to derive gateway did", slog.Any("error", err))
		os.Exit(1)
	}
	did, err := identity.ParseDid(didKey)
	if err != nil {
		slogger.Error("failed to parse gateway did", slog.Any("error", err))
		os.Exit(1)
	}

	rt, err := runtime.NewContext(storage.NewMemDB(), runtime.Config{
		NodeID:        "icn-gateway",
		FederationID:  *federationID,
		AuditLog:      true,
		SigningKey:    sk,
		ExecutorDid:   did,
		TrustResolver: &identity.KeyMethodResolver{},
		// Open until a registrar or attestation CLI path exists to
		// populate member-to-member trust explicitly; see DESIGN.md.
		TrustStore:  identity.NewOpenTrustStore(identity.TrustFull),
		PolicyRules: governance.DefaultPolicyRules(),
	})
	if err != nil {
		slogger.Error("failed to wire runtime context", slog.Any("error", err))
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "icn_gateway_requests_total",
		Help: "Total HTTP requests served by icn-gateway, by route and status class.",
	}, []string{"route", "status_class"})
	registry.MustRegister(requestsTotal)

	auth := middleware.NewAuthenticator(middleware.AuthConfig{
		Enabled:        *authEnabled,
		HMACSecret:     *jwtSecret,
		ScopeClaim:     "scope",
		OptionalPaths:  []string{"/healthz", "/metrics"},
		AllowAnonymous: true,
		ClockSkew:      2 * time.Minute,
	}, stdLogger)

	api := httpapi.New(rt, requestsTotal)

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware())
		api.Mount(r)
	})

	slogger.Info("icn-gateway started", slog.String("listen", *listenAddr), slog.String("node_did", did.String()), slog.String("gateway_seed", hex.EncodeToString(sk.Seed())[:8]+"..."))

	if err := http.ListenAndServe(*listenAddr, r); err != nil {
		slogger.Error("icn-gateway exited", slog.Any("error", err))
		os.Exit(1)
	}
}
