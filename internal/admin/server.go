package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kkkkikiki/quizgift/internal/config"
	"github.com/kkkkikiki/quizgift/internal/database"
	"github.com/kkkkikiki/quizgift/internal/migration"
	"github.com/kkkkikiki/quizgift/internal/repository"
	"github.com/kkkkikiki/quizgift/internal/requirements"
	"github.com/kkkkikiki/quizgift/internal/service"
	"github.com/kkkkikiki/quizgift/internal/settings"
)

// Handler serves the admin pages
type Handler struct {
	cfg          *config.Config
	db           *database.DB
	campaigns    *service.CampaignService
	gifts        *service.GiftService
	participants *service.ParticipantService
	settings     *settings.Store
	checker      *requirements.Checker
	migrator     *migration.Migrator
	views        *renderer
}

// NewHandler wires the admin pages to the database
func NewHandler(cfg *config.Config, db *database.DB, store *settings.Store) (*Handler, error) {
	if err := cfg.App.CheckAdminAccess(); err != nil {
		return nil, err
	}
	views, err := newRenderer()
	if err != nil {
		return nil, err
	}
	return &Handler{
		cfg:          cfg,
		db:           db,
		campaigns:    service.NewCampaignService(db),
		gifts:        service.NewGiftService(db),
		participants: service.NewParticipantService(db),
		settings:     store,
		checker:      requirements.NewChecker(cfg, db),
		migrator:     migration.New(db, migration.Options{DefaultCampaignID: cfg.App.DefaultCampaignID}),
		views:        views,
	}, nil
}

// Routes returns the admin HTTP handler
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	admin := func(pattern string, fn http.HandlerFunc) {
		if h.cfg.App.AdminAuthEnabled() {
			fn = BasicAuth(h.cfg.App.AdminUser, h.cfg.App.AdminPassword, fn)
		}
		mux.HandleFunc(pattern, WithLogging(pattern, fn))
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /health/db", h.healthDB)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/", http.StatusFound)
	})

	admin("GET /admin/{$}", h.dashboard)

	// Campaigns
	admin("GET /admin/campaigns", h.listCampaigns)
	admin("GET /admin/campaigns/new", h.newCampaign)
	admin("POST /admin/campaigns", h.createCampaign)
	admin("GET /admin/campaigns/{id}/edit", h.editCampaign)
	admin("POST /admin/campaigns/{id}", h.updateCampaign)
	admin("POST /admin/campaigns/{id}/delete", h.deleteCampaign)

	// Gifts
	admin("GET /admin/gifts", h.listGifts)
	admin("GET /admin/gifts/new", h.newGift)
	admin("POST /admin/gifts", h.createGift)
	admin("GET /admin/gifts/{id}/edit", h.editGift)
	admin("POST /admin/gifts/{id}", h.updateGift)
	admin("POST /admin/gifts/{id}/delete", h.deleteGift)

	// Participants
	admin("GET /admin/participants", h.listParticipants)
	admin("GET /admin/participants/{id}", h.showParticipant)
	admin("POST /admin/participants/{id}/assign-gift", h.assignGift)
	admin("POST /admin/participants/{id}/unassign-gift", h.unassignGift)

	// Settings and maintenance
	admin("GET /admin/settings", h.showSettings)
	admin("POST /admin/settings", h.saveSettings)
	admin("GET /admin/system", h.system)
	admin("GET /admin/migration", h.showMigration)
	admin("POST /admin/migration", h.runMigration)

	return WithRequestID(http.NewCrossOriginProtection().Handler(mux))
}

func (h *Handler) healthDB(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Conn.PingContext(r.Context()); err != nil {
		slog.Error("database health check failed", "error", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	_, _ = w.Write([]byte("OK"))
}

// pathID parses the {id} path segment
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// fail renders the error page for err, mapping not-found errors to 404
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "Something went wrong. The error has been logged."
	if errors.Is(err, repository.ErrNotFound) {
		status = http.StatusNotFound
		msg = "The requested item does not exist."
	} else {
		slog.Error("admin request failed", "path", r.URL.Path, "error", err, "request_id", RequestID(r.Context()))
	}
	h.views.render(w, r, status, "error", view{Title: http.StatusText(status), Error: msg})
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.fail(w, r, repository.ErrNotFound)
}
