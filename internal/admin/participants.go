package admin

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/kkkkikiki/quizgift/internal/model"
	"github.com/kkkkikiki/quizgift/internal/repository"
	"github.com/kkkkikiki/quizgift/internal/service"
	"github.com/kkkkikiki/quizgift/internal/settings"
)

type participantList struct {
	Participants []model.ParticipantRow
	Campaigns    []model.Campaign
	Statuses     []model.QuizStatus
	CampaignID   int64
	Status       string
	Query        string
	Page         int
	PrevPage     int
	NextPage     int
}

func (h *Handler) listParticipants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	perPage, err := h.settings.Int(r.Context(), settings.ResultsPerPage)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if perPage <= 0 {
		perPage = 50
	}
	page := int(min(queryInt(q.Get("page")), int64(math.MaxInt32/perPage)))
	if page < 1 {
		page = 1
	}

	data := participantList{
		Statuses:   model.QuizStatuses,
		CampaignID: queryInt(q.Get("campaign")),
		Status:     q.Get("status"),
		Query:      q.Get("q"),
		Page:       page,
	}
	filter := model.ParticipantFilter{
		CampaignID: data.CampaignID,
		Limit:      perPage + 1,
		Offset:     (page - 1) * perPage,
	}
	if status := model.QuizStatus(data.Status); status.Valid() {
		filter.Status = status
	}

	rows, err := h.participants.Search(r.Context(), filter, data.Query)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	// One extra row tells whether a next page exists.
	if len(rows) > perPage {
		rows = rows[:perPage]
		data.NextPage = page + 1
	}
	data.Participants = rows
	if page > 1 {
		data.PrevPage = page - 1
	}

	if data.Campaigns, err = h.campaigns.List(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	h.views.render(w, r, http.StatusOK, "participants", view{Title: "Participants", Nav: "participants", Data: data})
}

func (h *Handler) showParticipant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	p, err := h.participants.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.views.render(w, r, http.StatusOK, "participant", view{Title: p.FullName, Nav: "participants", Data: p})
}

func (h *Handler) assignGift(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	back := "/admin/participants/" + strconv.FormatInt(id, 10)

	gift, err := h.gifts.AssignGift(r.Context(), id)
	switch {
	case err == nil:
		redirect(w, r, back, fmt.Sprintf("Assigned %s", gift.Name))
	case errors.Is(err, repository.ErrNoGiftAvailable):
		redirect(w, r, back, "No eligible gift is in stock for this score")
	case errors.Is(err, service.ErrNotCompleted):
		redirect(w, r, back, "The participant has not completed the quiz")
	case errors.Is(err, service.ErrAlreadyAssigned):
		redirect(w, r, back, "The participant already has a gift")
	default:
		h.fail(w, r, err)
	}
}

func (h *Handler) unassignGift(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	if err := h.gifts.UnassignGift(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	redirect(w, r, "/admin/participants/"+strconv.FormatInt(id, 10), "Gift returned to stock")
}
