package admin

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/kkkkikiki/quizgift/internal/model"
	"github.com/kkkkikiki/quizgift/internal/service"
)

type giftList struct {
	Gifts      []model.GiftRow
	Campaigns  []model.Campaign
	CampaignID int64
}

func (h *Handler) listGifts(w http.ResponseWriter, r *http.Request) {
	campaignID := queryInt(r.URL.Query().Get("campaign"))
	gifts, err := h.gifts.List(r.Context(), campaignID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	campaigns, err := h.campaigns.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.views.render(w, r, http.StatusOK, "gifts", view{
		Title: "Gifts",
		Nav:   "gifts",
		Data:  giftList{Gifts: gifts, Campaigns: campaigns, CampaignID: campaignID},
	})
}

type giftForm struct {
	Action    string
	Gift      model.Gift
	Campaigns []model.Campaign
	Types     []struct {
		Type  model.GiftType
		Label string
	}
}

func (h *Handler) renderGiftForm(w http.ResponseWriter, r *http.Request, status int, title, action string, g model.Gift, errMsg string) {
	campaigns, err := h.campaigns.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.views.render(w, r, status, "gift_form", view{
		Title: title,
		Nav:   "gifts",
		Error: errMsg,
		Data:  giftForm{Action: action, Gift: g, Campaigns: campaigns, Types: model.GiftTypes},
	})
}

func (h *Handler) newGift(w http.ResponseWriter, r *http.Request) {
	g := model.Gift{
		CampaignID: queryInt(r.URL.Query().Get("campaign")),
		GiftType:   model.GiftVoucher,
	}
	h.renderGiftForm(w, r, http.StatusOK, "New gift", "/admin/gifts", g, "")
}

func (h *Handler) editGift(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	g, err := h.gifts.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderGiftForm(w, r, http.StatusOK, "Edit gift", fmt.Sprintf("/admin/gifts/%d", id), *g, "")
}

func (h *Handler) createGift(w http.ResponseWriter, r *http.Request) {
	in, err := parseGiftForm(r)
	if err == nil {
		_, err = h.gifts.Create(r.Context(), in)
	}
	if err != nil {
		h.giftFormError(w, r, "New gift", "/admin/gifts", 0, in, err)
		return
	}
	redirect(w, r, "/admin/gifts", "Gift created")
}

func (h *Handler) updateGift(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	in, err := parseGiftForm(r)
	if err == nil {
		_, err = h.gifts.Update(r.Context(), id, in)
	}
	if err != nil {
		h.giftFormError(w, r, "Edit gift", fmt.Sprintf("/admin/gifts/%d", id), id, in, err)
		return
	}
	redirect(w, r, "/admin/gifts", "Gift saved")
}

func (h *Handler) deleteGift(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.notFound(w, r)
		return
	}
	if err := h.gifts.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	redirect(w, r, "/admin/gifts", "Gift deleted")
}

func (h *Handler) giftFormError(w http.ResponseWriter, r *http.Request, title, action string, id int64, in service.GiftInput, err error) {
	var formErr *formError
	if !errors.Is(err, service.ErrInvalidGift) && !errors.As(err, &formErr) {
		h.fail(w, r, err)
		return
	}
	g := model.Gift{
		ID:         id,
		CampaignID: in.CampaignID,
		Name:       in.Name,
		GiftType:   in.GiftType,
		Value:      nullString(in.Value),
		MinScore:   in.MinScore,
	}
	if in.MaxScore != nil {
		g.MaxScore.Int64, g.MaxScore.Valid = int64(*in.MaxScore), true
	}
	if in.MaxQuantity != nil {
		g.MaxQuantity.Int64, g.MaxQuantity.Valid = *in.MaxQuantity, true
	}
	h.renderGiftForm(w, r, http.StatusBadRequest, title, action, g, err.Error())
}

func parseGiftForm(r *http.Request) (service.GiftInput, error) {
	if err := r.ParseForm(); err != nil {
		return service.GiftInput{}, &formError{msg: "malformed form"}
	}
	in := service.GiftInput{
		CampaignID: queryInt(r.PostFormValue("campaign_id")),
		Name:       r.PostFormValue("name"),
		GiftType:   model.GiftType(r.PostFormValue("gift_type")),
		Value:      r.PostFormValue("value"),
	}

	if v := strings.TrimSpace(r.PostFormValue("min_score")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return in, &formError{msg: "minimum score must be a number"}
		}
		in.MinScore = n
	}
	maxScore, err := optionalInt(r.PostFormValue("max_score"))
	if err != nil {
		return in, &formError{msg: "maximum score must be a number"}
	}
	if maxScore != nil {
		n := int(*maxScore)
		in.MaxScore = &n
	}
	if in.MaxQuantity, err = optionalInt(r.PostFormValue("max_quantity")); err != nil {
		return in, &formError{msg: "quantity must be a number"}
	}
	return in, nil
}
