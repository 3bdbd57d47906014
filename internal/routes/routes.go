package routes

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/promenade-labs/authcore/internal/database"
	"github.com/promenade-labs/authcore/internal/handlers"
	custommw "github.com/promenade-labs/authcore/internal/middleware"
)

// New builds the HTTP surface for the security core
func New(
	mfaHandler *handlers.MFAHandler,
	securityHandler *handlers.SecurityHandler,
	db *database.DB,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommw.SecureLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := db.HealthCheck(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		stats := db.Stats()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","db_conns_total":%d,"db_conns_idle":%d}`,
			stats.TotalConns(), stats.IdleConns())
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(custommw.RateLimitByIP(custommw.DefaultSecurityRateLimit()))

		r.Route("/mfa", func(r chi.Router) {
			r.Post("/enroll", mfaHandler.Enroll)
			r.Post("/confirm", mfaHandler.Confirm)
			r.Post("/verify", mfaHandler.Verify)
			r.Post("/disable", mfaHandler.Disable)
			r.Get("/status/{userID}", mfaHandler.Status)
			r.Post("/backup-codes/regenerate", mfaHandler.RegenerateBackupCodes)
		})

		r.Route("/login-guard", func(r chi.Router) {
			r.Post("/check", securityHandler.CheckLogin)
			r.Post("/failure", securityHandler.RecordFailure)
			r.Post("/clear", securityHandler.ClearFailures)
		})

		r.Post("/password/validate", securityHandler.ValidatePassword)
	})

	return r
}
