package admin

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kkkkikiki/quizgift/internal/model"
	"github.com/kkkkikiki/quizgift/internal/service"
)

type dashboardData struct {
	Stats  []model.CampaignStats
	Counts map[model.QuizStatus]int64
	Total  int64
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.campaigns.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	counts, err := h.participants.CountByStatus(r.Context(), 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	data := dashboardData{Stats: stats, Counts: counts}
	for _, n := range counts {
		data.Total += n
	}
	h.views.render(w, r, http.StatusOK, "dashboard", view{Title: "Dashboard", Nav: "dashboard", Data: data})
}

func (h *Handler) listCampaigns(w http.ResponseWriter, r *http.Request) {
	stats, err := h.campaigns.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.views.render(w, r, http.StatusOK, "campaigns", view{Title: "Campaigns", Nav: "campaigns", Data: stats})
}

type campaignForm struct {
	Action   string
	Campaign model.Campaign
}

func (h *Handler) newCampaign(w http.ResponseWriter, r *http.Request) {
	h.views.render(w, r, http.StatusOK, "campaign_form", view{
		Title: "New campaign",
		Nav:   "campaigns",
		Data:  campaignForm{Action: "/admin/campaigns", Campaign: model.Campaign{IsActive: true}},
	})
}

func (h *Handler) editCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	c, err := h.campaigns.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.views.render(w, r, http.StatusOK, "campaign_form", view{
		Title: "Edit campaign",
		Nav:   "campaigns",
		Data:  campaignForm{Action: fmt.Sprintf("/admin/campaigns/%d", id), Campaign: *c},
	})
}

func (h *Handler) createCampaign(w http.ResponseWriter, r *http.Request) {
	in, err := parseCampaignForm(r)
	if err == nil {
		_, err = h.campaigns.Create(r.Context(), in)
	}
	if err != nil {
		h.campaignFormError(w, r, "/admin/campaigns", "New campaign", 0, in, err)
		return
	}
	redirect(w, r, "/admin/campaigns", "Campaign created")
}

func (h *Handler) updateCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	in, err := parseCampaignForm(r)
	if err == nil {
		_, err = h.campaigns.Update(r.Context(), id, in)
	}
	if err != nil {
		h.campaignFormError(w, r, fmt.Sprintf("/admin/campaigns/%d", id), "Edit campaign", id, in, err)
		return
	}
	redirect(w, r, "/admin/campaigns", "Campaign saved")
}

func (h *Handler) deleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	if err := h.campaigns.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	redirect(w, r, "/admin/campaigns", "Campaign deleted")
}

// campaignFormError re-renders the form with the submitted values for validation errors
func (h *Handler) campaignFormError(w http.ResponseWriter, r *http.Request, action, title string, id int64, in service.CampaignInput, err error) {
	var formErr *formError
	if !errors.Is(err, service.ErrInvalidCampaign) && !errors.As(err, &formErr) {
		h.fail(w, r, err)
		return
	}
	c := model.Campaign{
		ID:          id,
		Name:        in.Name,
		Slug:        nullString(in.Slug),
		Description: nullString(in.Description),
		IsActive:    in.IsActive,
		StartDate:   nullTime(in.StartDate),
		EndDate:     nullTime(in.EndDate),
	}
	h.views.render(w, r, http.StatusBadRequest, "campaign_form", view{
		Title: title,
		Nav:   "campaigns",
		Error: err.Error(),
		Data:  campaignForm{Action: action, Campaign: c},
	})
}

func parseCampaignForm(r *http.Request) (service.CampaignInput, error) {
	if err := r.ParseForm(); err != nil {
		return service.CampaignInput{}, &formError{msg: "malformed form"}
	}
	in := service.CampaignInput{
		Name:        r.PostFormValue("name"),
		Slug:        strings.TrimSpace(r.PostFormValue("slug")),
		Description: r.PostFormValue("description"),
		IsActive:    r.PostFormValue("is_active") != "",
	}

	var err error
	if in.StartDate, err = parseDateTime(r.PostFormValue("start_date")); err != nil {
		return in, &formError{msg: "invalid start date"}
	}
	if in.EndDate, err = parseDateTime(r.PostFormValue("end_date")); err != nil {
		return in, &formError{msg: "invalid end date"}
	}
	return in, nil
}

// parseDateTime reads a datetime-local input in server local time; empty means unset
func parseDateTime(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateTimeInput, v, time.Local)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
