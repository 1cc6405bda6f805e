package admin

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/kkkkikiki/quizgift/internal/migration"
	"github.com/kkkkikiki/quizgift/internal/requirements"
	"github.com/kkkkikiki/quizgift/internal/settings"
)

// numericSettings must hold non-negative integers
var numericSettings = map[string]bool{
	settings.QuizTimeLimit:    true,
	settings.QuestionsPerQuiz: true,
	settings.PassScore:        true,
	settings.ResultsPerPage:   true,
}

// yesNoSettings are rendered as a yes/no choice
var yesNoSettings = map[string]bool{
	settings.AllowRetake:    true,
	settings.RequirePhone:   true,
	settings.RequireAddress: true,
	settings.AutoAssignGift: true,
}

type settingsPage struct {
	Settings []settings.Setting
	YesNo    map[string]bool
	Numeric  map[string]bool
}

func (h *Handler) showSettings(w http.ResponseWriter, r *http.Request) {
	h.renderSettings(w, r, http.StatusOK, "")
}

func (h *Handler) renderSettings(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	all, err := h.settings.All(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.views.render(w, r, status, "settings", view{
		Title: "Settings",
		Nav:   "settings",
		Error: errMsg,
		Data:  settingsPage{Settings: all, YesNo: yesNoSettings, Numeric: numericSettings},
	})
}

func (h *Handler) saveSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderSettings(w, r, http.StatusBadRequest, "malformed form")
		return
	}

	if key := r.PostFormValue("reset"); key != "" {
		if _, known := settings.Defaults[key]; !known {
			h.renderSettings(w, r, http.StatusBadRequest, fmt.Sprintf("unknown setting %q", key))
			return
		}
		if err := h.settings.Reset(r.Context(), key); err != nil {
			h.fail(w, r, err)
			return
		}
		redirect(w, r, "/admin/settings", "Restored default for "+key)
		return
	}

	keys := make([]string, 0, len(settings.Defaults))
	for key := range settings.Defaults {
		if _, present := r.PostForm[key]; present {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	// Validate everything before writing anything.
	values := make(map[string]string, len(keys))
	for _, key := range keys {
		v := strings.TrimSpace(r.PostFormValue(key))
		if numericSettings[key] {
			if n, err := strconv.Atoi(v); err != nil || n < 0 {
				h.renderSettings(w, r, http.StatusBadRequest, fmt.Sprintf("%s must be a non-negative number", key))
				return
			}
		}
		if yesNoSettings[key] && v != "yes" && v != "no" {
			h.renderSettings(w, r, http.StatusBadRequest, fmt.Sprintf("%s must be yes or no", key))
			return
		}
		values[key] = v
	}

	for _, key := range keys {
		if err := h.settings.Set(r.Context(), key, values[key]); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	redirect(w, r, "/admin/settings", "Settings saved")
}

func (h *Handler) system(w http.ResponseWriter, r *http.Request) {
	results := h.checker.Results(r.Context())
	h.views.render(w, r, http.StatusOK, "system", view{Title: "System", Nav: "system", Data: results})
}

type migrationPage struct {
	State  *migration.State
	Report *migration.Report
	Checks []requirements.Result
	Ready  bool
}

func (h *Handler) migrationData(r *http.Request, report *migration.Report) (migrationPage, error) {
	state, err := h.migrator.State(r.Context())
	if err != nil {
		return migrationPage{}, err
	}
	page := migrationPage{State: state, Report: report, Checks: h.checker.Results(r.Context()), Ready: true}
	for _, c := range page.Checks {
		if !c.Passed() {
			page.Ready = false
		}
	}
	return page, nil
}

func (h *Handler) showMigration(w http.ResponseWriter, r *http.Request) {
	data, err := h.migrationData(r, nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.views.render(w, r, http.StatusOK, "migration", view{Title: "Migration", Nav: "migration", Data: data})
}

func (h *Handler) runMigration(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.fail(w, r, err)
		return
	}
	rollback := r.FormValue("rollback") == "1"
	dryRun := r.PostFormValue("dry_run") == "1"

	if r.PostFormValue("confirm") != "yes" && !dryRun {
		data, err := h.migrationData(r, nil)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.views.render(w, r, http.StatusBadRequest, "migration", view{
			Title: "Migration",
			Nav:   "migration",
			Error: "Confirm that you have a database backup before running the migration.",
			Data:  data,
		})
		return
	}

	if !dryRun && r.PostFormValue("force") != "1" {
		data, err := h.migrationData(r, nil)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if !data.Ready {
			h.views.render(w, r, http.StatusConflict, "migration", view{
				Title: "Migration",
				Nav:   "migration",
				Error: "Some system checks fail. Fix them or tick \"run anyway\" to continue.",
				Data:  data,
			})
			return
		}
	}

	m := migration.New(h.db, migration.Options{DryRun: dryRun, DefaultCampaignID: h.cfg.App.DefaultCampaignID})
	var report *migration.Report
	if rollback {
		report = m.Rollback(r.Context())
	} else {
		report = m.Run(r.Context())
	}
	if !dryRun {
		// The options table may have changed underneath the settings cache.
		h.settings.Invalidate()
	}

	status := http.StatusOK
	v := view{Title: "Migration", Nav: "migration"}
	if err := report.Err(); err != nil {
		slog.Error("migration finished with failures", "rollback", rollback, "error", err, "request_id", RequestID(r.Context()))
		v.Error = fmt.Sprintf("%d step(s) failed. See the report below.", report.Count(migration.StatusFailed))
		status = http.StatusInternalServerError
	}

	data, err := h.migrationData(r, report)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	v.Data = data
	h.views.render(w, r, status, "migration", v)
}
