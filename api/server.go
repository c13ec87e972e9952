/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the mobile web client

ROLE SCOPING:
  The auth gateway injects X-Role and X-Actor-Id. requireRole gates each
  route group on the capability the group needs; handlers read the actor
  from the request context.

SEE ALSO:
  - handlers.go: Handler implementations
  - ledger/roles.go: Role to capability mapping
  - cmd/server/main.go: Server startup
*/
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kalpay/ledger-engine/ledger"
)

type contextKey string

const (
	roleKey  contextKey = "role"
	actorKey contextKey = "actor"
)

// HeaderRole and HeaderActorID are injected by the auth gateway.
const (
	HeaderRole    = "X-Role"
	HeaderActorID = "X-Actor-Id"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", HeaderRole, HeaderActorID},
		AllowCredentials: false,
	}))

	r.Get("/healthz", h.Health)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Account provisioning (distributors onboard clients in person)
		r.With(requireRole(ledger.CapProvision)).
			Post("/accounts", h.CreateAccount)

		// Client routes
		r.Route("/client", func(r chi.Router) {
			r.With(requireRole(ledger.CapViewOwn)).Get("/balance", h.ClientBalance)
			r.With(requireRole(ledger.CapViewOwn)).Get("/transactions", h.ClientTransactions)
			r.With(requireRole(ledger.CapTransfer)).Post("/transfer", h.ClientTransfer)
			r.With(requireRole(ledger.CapPayMerchant)).Post("/payment", h.ClientPayment)
		})

		// Distributor routes
		r.Route("/distributor", func(r chi.Router) {
			r.With(requireRole(ledger.CapDeposit)).Post("/deposit", h.Deposit)
			r.With(requireRole(ledger.CapWithdraw)).Post("/withdrawal", h.Withdraw)
			r.With(requireRole(ledger.CapViewScoped)).Get("/transactions", h.DistributorTransactions)
			r.With(requireRole(ledger.CapViewScoped)).Get("/transactions/{id}", h.DistributorTransaction)
		})

		// Merchant directory (any authenticated caller)
		r.With(requireAuth).Get("/merchants", h.ListMerchants)
	})

	return r
}

// requireAuth rejects requests with a missing or unknown role header or
// no actor ID. The role and actor are stashed in the request context.
func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := ledger.Role(r.Header.Get(HeaderRole))
		if !role.Known() {
			writeError(w, http.StatusUnauthorized, "Unknown role", nil)
			return
		}

		actor := r.Header.Get(HeaderActorID)
		if actor == "" {
			writeError(w, http.StatusUnauthorized, "Missing actor ID", nil)
			return
		}

		ctx := context.WithValue(r.Context(), roleKey, role)
		ctx = context.WithValue(ctx, actorKey, ledger.UserID(actor))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole builds on requireAuth and additionally checks that the
// role carries the capability the route needs.
func requireRole(cap ledger.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !roleOf(r).Can(cap) {
				writeError(w, http.StatusForbidden, "Role not permitted", nil)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func roleOf(r *http.Request) ledger.Role {
	role, _ := r.Context().Value(roleKey).(ledger.Role)
	return role
}

func actorID(r *http.Request) ledger.UserID {
	actor, _ := r.Context().Value(actorKey).(ledger.UserID)
	return actor
}
