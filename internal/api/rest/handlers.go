package rest

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/campaign"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/errors"
	"github.com/davidleathers/outbound-pacing-backend/internal/domain/pacing"
	"github.com/davidleathers/outbound-pacing-backend/internal/service/dialing"
	"github.com/davidleathers/outbound-pacing-backend/internal/service/leadpriority"
)

const stopReason = "stopped by operator"

// Services are the collaborators the handlers call into.
type Services struct {
	Dialing     dialing.Service
	Prioritizer leadpriority.Service
	Settings    SettingsStore
	Campaigns   CampaignStore
	Snapshots   SnapshotReader
	Lifecycle   Lifecycle
	Events      http.Handler
	Health      map[string]HealthChecker
}

// Handlers serves the pacing API.
type Handlers struct {
	*BaseHandler
	svc Services
}

func NewHandlers(apiVersion string, svc Services, logger *zap.Logger) *Handlers {
	return &Handlers{
		BaseHandler: NewBaseHandler(apiVersion, logger),
		svc:         svc,
	}
}

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Timestamp: time.Now().UTC()}
	status := http.StatusOK

	if len(h.svc.Health) > 0 {
		resp.Checks = make(map[string]string, len(h.svc.Health))
		for name, check := range h.svc.Health {
			if err := check(r.Context()); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
	}
	h.writeJSON(w, status, resp)
}

func (h *Handlers) dialingRate(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if err := h.decode(w, r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	if req.Settings != nil {
		if err := req.Settings.Validate(); err != nil {
			h.handleError(w, r, err)
			return
		}
		h.writeSuccess(w, r, http.StatusOK, h.svc.Dialing.RateWith(req.CurrentConcurrency, *req.Settings))
		return
	}

	if req.OwnerID == uuid.Nil {
		h.handleError(w, r, errors.NewValidationError("OWNER_OR_SETTINGS_REQUIRED", "owner_id or settings is required"))
		return
	}
	m, err := h.svc.Dialing.RateFor(r.Context(), req.OwnerID, req.CurrentConcurrency)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeSuccess(w, r, http.StatusOK, m)
}

// predictive answers 422 with the fallback metrics when the parameters are
// rejected.
func (h *Handlers) predictive(w http.ResponseWriter, r *http.Request) {
	var params pacing.DialingAlgorithmParams
	if err := h.decodeJSON(w, r, &params); err != nil {
		h.handleError(w, r, err)
		return
	}

	m, err := h.svc.Dialing.Predict(r.Context(), params)
	if err != nil {
		if !errors.IsType(err, errors.ErrorTypeValidation) {
			h.handleError(w, r, err)
			return
		}
		_, errResp := toErrorResponse(err)
		h.writeFailure(w, r, http.StatusUnprocessableEntity,
			PredictiveResponse{Metrics: m, Error: err.Error()}, errResp)
		return
	}
	h.writeSuccess(w, r, http.StatusOK, PredictiveResponse{Metrics: m})
}

func (h *Handlers) insights(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, r, http.StatusOK, h.svc.Dialing.Insights())
}

func (h *Handlers) platformCapacity(w http.ResponseWriter, r *http.Request) {
	ownerID, err := pathUUID(r, "ownerID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	capacity, err := h.svc.Dialing.PlatformCapacity(r.Context(), ownerID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeSuccess(w, r, http.StatusOK, capacity)
}

func (h *Handlers) getPacingSettings(w http.ResponseWriter, r *http.Request) {
	ownerID, err := pathUUID(r, "ownerID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	s, err := h.svc.Settings.GetPacingSettings(r.Context(), ownerID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeSuccess(w, r, http.StatusOK, SettingsResponse[pacing.PacingSettings]{OwnerID: ownerID, Settings: s})
}

// putPacingSettings stores the settings and pushes them into the owner's
// running pacing loops.
func (h *Handlers) putPacingSettings(w http.ResponseWriter, r *http.Request) {
	ownerID, err := pathUUID(r, "ownerID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var s pacing.PacingSettings
	if err := h.decode(w, r, &s); err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := h.svc.Settings.PutPacingSettings(r.Context(), ownerID, s); err != nil {
		h.handleError(w, r, err)
		return
	}
	n := h.svc.Lifecycle.RefreshSettings(ownerID, s)
	h.writeSuccess(w, r, http.StatusOK, SettingsResponse[pacing.PacingSettings]{OwnerID: ownerID, Settings: s, RefreshedLoops: n})
}

func (h *Handlers) getConcurrencySettings(w http.ResponseWriter, r *http.Request) {
	ownerID, err := pathUUID(r, "ownerID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	s, err := h.svc.Settings.GetConcurrencySettings(r.Context(), ownerID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeSuccess(w, r, http.StatusOK, SettingsResponse[pacing.ConcurrencySettings]{OwnerID: ownerID, Settings: s})
}

func (h *Handlers) putConcurrencySettings(w http.ResponseWriter, r *http.Request) {
	ownerID, err := pathUUID(r, "ownerID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var s pacing.ConcurrencySettings
	if err := h.decode(w, r, &s); err != nil {
		h.handleError(w, r, err)
		return
	}
	if err := h.svc.Settings.PutConcurrencySettings(r.Context(), ownerID, s); err != nil {
		h.handleError(w, r, err)
		return
	}
	n := h.svc.Lifecycle.RefreshConcurrency(ownerID, s)
	h.writeSuccess(w, r, http.StatusOK, SettingsResponse[pacing.ConcurrencySettings]{OwnerID: ownerID, Settings: s, RefreshedLoops: n})
}

// startCampaign activates the campaign when needed and starts its pacing and
// compliance tasks.
func (h *Handlers) startCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	c, err := h.svc.Campaigns.GetCampaign(r.Context(), campaignID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if c.Status == campaign.StatusCompleted {
		h.handleError(w, r, errors.NewBusinessError("CAMPAIGN_COMPLETED", "a completed campaign cannot be started"))
		return
	}
	if !c.IsActive() {
		if err := h.svc.Campaigns.SetCampaignStatus(r.Context(), campaignID, campaign.StatusActive, ""); err != nil {
			h.handleError(w, r, err)
			return
		}
		c.Status = campaign.StatusActive
		c.StatusReason = ""
	}

	started := h.svc.Lifecycle.Start(c)
	h.writeSuccess(w, r, http.StatusOK, CampaignStateResponse{CampaignID: campaignID, Running: true, Changed: started})
}

// stopCampaign stops the campaign's tasks and pauses it.
func (h *Handlers) stopCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	stopped := h.svc.Lifecycle.Stop(campaignID)

	c, err := h.svc.Campaigns.GetCampaign(r.Context(), campaignID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if c.IsActive() {
		if err := h.svc.Campaigns.SetCampaignStatus(r.Context(), campaignID, campaign.StatusPaused, stopReason); err != nil {
			h.handleError(w, r, err)
			return
		}
	}
	h.writeSuccess(w, r, http.StatusOK, CampaignStateResponse{CampaignID: campaignID, Running: false, Changed: stopped})
}

func (h *Handlers) pacingSnapshot(w http.ResponseWriter, r *http.Request) {
	h.campaignRead(w, r, func(ctx context.Context, id uuid.UUID) (any, error) {
		return h.svc.Snapshots.GetPacingSnapshot(ctx, id)
	})
}

func (h *Handlers) complianceSnapshot(w http.ResponseWriter, r *http.Request) {
	h.campaignRead(w, r, func(ctx context.Context, id uuid.UUID) (any, error) {
		return h.svc.Snapshots.GetComplianceMetrics(ctx, id)
	})
}

func (h *Handlers) campaignRead(w http.ResponseWriter, r *http.Request, read func(context.Context, uuid.UUID) (any, error)) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	v, err := read(r.Context(), campaignID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeSuccess(w, r, http.StatusOK, v)
}

func (h *Handlers) prioritize(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.handleError(w, r, errors.NewValidationError("INVALID_LIMIT", "limit must be a non-negative integer"))
			return
		}
	}

	res, err := h.svc.Prioritizer.Prioritize(r.Context(), campaignID, limit)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeSuccess(w, r, http.StatusOK, res)
}

func (h *Handlers) authorize(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathUUID(r, "campaignID")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var body AuthorizeBody
	if err := h.decode(w, r, &body); err != nil {
		h.handleError(w, r, err)
		return
	}

	auth, err := h.svc.Dialing.Authorize(r.Context(), dialing.AuthorizeRequest{
		CampaignID: campaignID,
		Requested:  body.Requested,
		InFlight:   body.InFlight,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	h.writeSuccess(w, r, http.StatusOK, auth)
}
