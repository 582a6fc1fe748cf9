package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"admin-console/internal/apiclient"
	"admin-console/internal/config"
	"admin-console/internal/models"
	"admin-console/internal/service"
	"admin-console/internal/util"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminHandler serves the console screens. Every route runs behind
// RequireAuth, so credentials are always present.
type AdminHandler struct {
	responder
	admin   *service.AdminService
	session *LoginHandler
	cfg     *config.Config
}

func NewAdminHandler(adminService *service.AdminService, session *LoginHandler, cfg *config.Config, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		responder: responder{logger: logger},
		admin:     adminService,
		session:   session,
		cfg:       cfg,
	}
}

// RegisterRoutes registers all console routes
func (h *AdminHandler) RegisterRoutes(router chi.Router) {
	router.Get("/dashboard", h.Dashboard)

	router.Route("/users", func(r chi.Router) {
		r.Get("/", h.Users)
		r.Get("/search", h.SearchUsers)
		r.Post("/sync", h.SyncUsers)
	})
	router.Get("/bookings", h.Bookings)

	router.Route("/timeslots", func(r chi.Router) {
		r.Get("/", h.TimeSlots)
		r.Post("/", h.SaveTimeSlot)
		r.Put("/{id}", h.SaveTimeSlot)
		r.Delete("/{id}", h.DeleteTimeSlot)
		r.Patch("/{id}/toggle", h.ToggleTimeSlot)
	})

	router.Route("/research-papers", func(r chi.Router) {
		r.Get("/", h.ResearchPapers)
		r.Post("/configs", h.SaveResearchConfig)
		r.Put("/configs/{id}", h.SaveResearchConfig)
		r.Delete("/configs/{id}", h.DeleteResearchConfig)
		r.Put("/purchases/{id}", h.UpdateResearchPurchase)
	})

	router.Route("/visa-applications", func(r chi.Router) {
		r.Get("/", h.VisaApplications)
		r.Post("/configs", h.SaveVisaConfig)
		r.Put("/configs/{id}", h.SaveVisaConfig)
		r.Delete("/configs/{id}", h.DeleteVisaConfig)
		r.Put("/purchases/{id}", h.UpdateVisaPurchase)
	})

	router.Route("/counselling", func(r chi.Router) {
		r.Get("/", h.Counselling)
		r.Post("/service-types", h.SaveServiceType)
		r.Put("/service-types/{id}", h.SaveServiceType)
		r.Delete("/service-types/{id}", h.DeleteServiceType)
		r.Post("/counselors", h.SaveCounsellor)
		r.Put("/counselors/{id}", h.SaveCounsellor)
		r.Delete("/counselors/{id}", h.DeleteCounsellor)
		r.Post("/pricing", h.SaveCounsellingPricing)
		r.Put("/pricing/{id}", h.SaveCounsellingPricing)
		r.Delete("/pricing/{id}", h.DeleteCounsellingPricing)
		r.Put("/purchases/{id}", h.UpdateCounsellingPurchase)
	})

	router.Route("/terms", func(r chi.Router) {
		r.Get("/", h.Terms)
		r.Post("/", h.SaveTerms)
		r.Put("/{id}", h.SaveTerms)
		r.Patch("/{id}/activate", h.ActivateTerms)
	})

	router.Route("/pricing", func(r chi.Router) {
		r.Post("/final-price", h.PreviewFinalPrice)
		r.Post("/discount-percent", h.PreviewDiscountPercent)
	})

	router.Get("/reports/audit", h.AuditReport)
	router.Get("/settings", h.Settings)
}

// fail answers with the login redirect when upstream rejected the token
// and with a regular error otherwise.
func (h *AdminHandler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if h.session != nil && h.session.rejected(w, r, err) {
		return
	}
	h.respondWithError(w, err, fallback)
}

func itemID(r *http.Request) models.ID {
	return models.ID(chi.URLParam(r, "id"))
}

// load serves a read-only screen.
func load[T any](h *AdminHandler, w http.ResponseWriter, r *http.Request, fallback string, fn func(context.Context, *models.Credentials) (T, error)) {
	out, err := fn(r.Context(), CredentialsFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err, fallback)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(out, ""))
}

// saveRecord decodes a body and resolves it to a create, or to an update
// when the route carries an id.
func saveRecord[T, R any](h *AdminHandler, w http.ResponseWriter, r *http.Request, noun string, fn func(context.Context, *models.Credentials, apiclient.Save[T]) (R, error)) {
	startTime := time.Now()

	var body T
	if err := decodeJSON(r, &body); err != nil {
		h.respondWithError(w, err, "Invalid request body")
		return
	}
	op := apiclient.Create(body)
	status, verb := http.StatusCreated, "created"
	if id := itemID(r); id != "" {
		op = apiclient.Update(id, body)
		status, verb = http.StatusOK, "updated"
	}

	out, err := fn(r.Context(), CredentialsFrom(r.Context()), op)
	if err != nil {
		h.fail(w, r, err, "Failed to save "+noun)
		return
	}
	h.respondWithJSON(w, status, successResponse(out, noun+" "+verb+" successfully"))
	h.logger.Debug("Record saved via HTTP",
		util.String("resource", noun),
		util.String("id", op.ID().String()),
		util.Duration("duration", time.Since(startTime)),
	)
}

func (h *AdminHandler) deleteRecord(w http.ResponseWriter, r *http.Request, noun string, fn func(context.Context, *models.Credentials, models.ID) error) {
	if err := fn(r.Context(), CredentialsFrom(r.Context()), itemID(r)); err != nil {
		h.fail(w, r, err, "Failed to delete "+noun)
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(nil, noun+" deleted successfully"))
}

func (h *AdminHandler) updatePurchase(w http.ResponseWriter, r *http.Request, fn func(context.Context, *models.Credentials, models.ID, models.PurchaseUpdate) (*models.Purchase, error)) {
	var in models.PurchaseUpdate
	if err := decodeJSON(r, &in); err != nil {
		h.respondWithError(w, err, "Invalid request body")
		return
	}
	out, err := fn(r.Context(), CredentialsFrom(r.Context()), itemID(r), in)
	if err != nil {
		h.fail(w, r, err, "Failed to update purchase")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(out, "Purchase updated successfully"))
}

func userFilter(r *http.Request) (models.UserFilter, error) {
	q := r.URL.Query()
	filter := models.UserFilter{Query: strings.TrimSpace(q.Get("q")), Role: q.Get("role")}
	if util.ContainsSuspicious(filter.Query) {
		return filter, fmt.Errorf("%w: search query", errBadRequest)
	}
	return filter, nil
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	load(h, w, r, "Failed to load dashboard", h.admin.Dashboard)
}

func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	filter, err := userFilter(r)
	if err != nil {
		h.fail(w, r, err, "Failed to fetch users")
		return
	}
	load(h, w, r, "Failed to fetch users", func(ctx context.Context, creds *models.Credentials) (*service.UserList, error) {
		return h.admin.Users(ctx, creds, filter)
	})
}

func (h *AdminHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	filter, err := userFilter(r)
	if err != nil {
		h.fail(w, r, err, "Failed to search users")
		return
	}
	load(h, w, r, "Failed to search users", func(ctx context.Context, creds *models.Credentials) ([]models.User, error) {
		return h.admin.SearchUsers(ctx, creds, filter)
	})
}

func (h *AdminHandler) SyncUsers(w http.ResponseWriter, r *http.Request) {
	n, err := h.admin.SyncUsers(r.Context(), CredentialsFrom(r.Context()))
	if err != nil {
		h.fail(w, r, err, "Failed to index users")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(map[string]int{"indexed": n}, "Users indexed successfully"))
}

func (h *AdminHandler) Bookings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	load(h, w, r, "Failed to fetch bookings", func(ctx context.Context, creds *models.Credentials) ([]models.Booking, error) {
		return h.admin.Bookings(ctx, creds, query)
	})
}

func (h *AdminHandler) TimeSlots(w http.ResponseWriter, r *http.Request) {
	tz := r.URL.Query().Get("timezone")
	load(h, w, r, "Failed to fetch time slots", func(ctx context.Context, creds *models.Credentials) ([]models.TimeSlot, error) {
		return h.admin.TimeSlots(ctx, creds, tz)
	})
}

func (h *AdminHandler) SaveTimeSlot(w http.ResponseWriter, r *http.Request) {
	saveRecord(h, w, r, "Time slot", h.admin.SaveTimeSlot)
}

func (h *AdminHandler) DeleteTimeSlot(w http.ResponseWriter, r *http.Request) {
	h.deleteRecord(w, r, "Time slot", h.admin.DeleteTimeSlot)
}

// ToggleTimeSlot relays upstream's confirmation text.
func (h *AdminHandler) ToggleTimeSlot(w http.ResponseWriter, r *http.Request) {
	msg, err := h.admin.ToggleTimeSlot(r.Context(), CredentialsFrom(r.Context()), itemID(r))
	if err != nil {
		h.fail(w, r, err, "Failed to toggle time slot")
		return
	}
	if msg == "" {
		msg = "Time slot updated successfully"
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(nil, msg))
}

func (h *AdminHandler) ResearchPapers(w http.ResponseWriter, r *http.Request) {
	load(h, w, r, "Failed to fetch research paper data", h.admin.ResearchPapers)
}

func (h *AdminHandler) SaveResearchConfig(w http.ResponseWriter, r *http.Request) {
	saveRecord(h, w, r, "Configuration", h.admin.SaveResearchConfig)
}

func (h *AdminHandler) DeleteResearchConfig(w http.ResponseWriter, r *http.Request) {
	h.deleteRecord(w, r, "Configuration", h.admin.DeleteResearchConfig)
}

func (h *AdminHandler) UpdateResearchPurchase(w http.ResponseWriter, r *http.Request) {
	h.updatePurchase(w, r, h.admin.UpdateResearchPurchase)
}

func (h *AdminHandler) VisaApplications(w http.ResponseWriter, r *http.Request) {
	load(h, w, r, "Failed to fetch visa application data", h.admin.VisaApplications)
}

func (h *AdminHandler) SaveVisaConfig(w http.ResponseWriter, r *http.Request) {
	saveRecord(h, w, r, "Configuration", h.admin.SaveVisaConfig)
}

func (h *AdminHandler) DeleteVisaConfig(w http.ResponseWriter, r *http.Request) {
	h.deleteRecord(w, r, "Configuration", h.admin.DeleteVisaConfig)
}

func (h *AdminHandler) UpdateVisaPurchase(w http.ResponseWriter, r *http.Request) {
	h.updatePurchase(w, r, h.admin.UpdateVisaPurchase)
}

func (h *AdminHandler) Counselling(w http.ResponseWriter, r *http.Request) {
	load(h, w, r, "Failed to fetch counselling data", h.admin.Counselling)
}

func (h *AdminHandler) SaveServiceType(w http.ResponseWriter, r *http.Request) {
	saveRecord(h, w, r, "Service type", h.admin.SaveServiceType)
}

func (h *AdminHandler) DeleteServiceType(w http.ResponseWriter, r *http.Request) {
	h.deleteRecord(w, r, "Service type", h.admin.DeleteServiceType)
}

func (h *AdminHandler) SaveCounsellor(w http.ResponseWriter, r *http.Request) {
	saveRecord(h, w, r, "Counselor", h.admin.SaveCounsellor)
}

func (h *AdminHandler) DeleteCounsellor(w http.ResponseWriter, r *http.Request) {
	h.deleteRecord(w, r, "Counselor", h.admin.DeleteCounsellor)
}

func (h *AdminHandler) SaveCounsellingPricing(w http.ResponseWriter, r *http.Request) {
	saveRecord(h, w, r, "Pricing", h.admin.SaveCounsellingPricing)
}

func (h *AdminHandler) DeleteCounsellingPricing(w http.ResponseWriter, r *http.Request) {
	h.deleteRecord(w, r, "Pricing", h.admin.DeleteCounsellingPricing)
}

func (h *AdminHandler) UpdateCounsellingPurchase(w http.ResponseWriter, r *http.Request) {
	h.updatePurchase(w, r, h.admin.UpdateCounsellingPurchase)
}

func (h *AdminHandler) Terms(w http.ResponseWriter, r *http.Request) {
	load(h, w, r, "Failed to fetch terms data", h.admin.Terms)
}

func (h *AdminHandler) SaveTerms(w http.ResponseWriter, r *http.Request) {
	saveRecord(h, w, r, "Terms", h.admin.SaveTerms)
}

func (h *AdminHandler) ActivateTerms(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.ActivateTerms(r.Context(), CredentialsFrom(r.Context()), itemID(r)); err != nil {
		h.fail(w, r, err, "Failed to activate terms")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(nil, "Terms activated successfully"))
}

func (h *AdminHandler) AuditReport(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	report, err := h.admin.AuditReport(r.Context(), days)
	if err != nil {
		h.respondWithError(w, err, "Failed to load audit report")
		return
	}
	h.respondWithJSON(w, http.StatusOK, successResponse(report, ""))
}

type settingsView struct {
	Environment           string `json:"environment"`
	UpstreamBaseURL       string `json:"upstream_base_url"`
	CodeLength            int    `json:"code_length"`
	ResendCooldownSeconds int    `json:"resend_cooldown_seconds"`
	RedisEnabled          bool   `json:"redis_enabled"`
	KafkaEnabled          bool   `json:"kafka_enabled"`
	SearchEnabled         bool   `json:"search_enabled"`
	AnalyticsEnabled      bool   `json:"analytics_enabled"`
	KMSEnabled            bool   `json:"kms_enabled"`
}

// Settings exposes non-secret runtime settings.
func (h *AdminHandler) Settings(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, successResponse(settingsView{
		Environment:           h.cfg.Environment,
		UpstreamBaseURL:       h.cfg.Upstream.BaseURL,
		CodeLength:            h.cfg.Login.CodeLength,
		ResendCooldownSeconds: h.cfg.ResendCooldownSeconds(),
		RedisEnabled:          h.cfg.Redis.URL != "",
		KafkaEnabled:          h.cfg.Kafka.Enabled,
		SearchEnabled:         h.cfg.Elasticsearch.Enabled,
		AnalyticsEnabled:      h.cfg.Clickhouse.Enabled,
		KMSEnabled:            h.cfg.KMS.Enabled,
	}, ""))
}
