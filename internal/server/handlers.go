package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/runnerr0/historylens/internal/activity"
	"github.com/runnerr0/historylens/internal/categorize"
	"github.com/runnerr0/historylens/internal/logger"
	"github.com/runnerr0/historylens/internal/recategorize"
	"github.com/runnerr0/historylens/internal/rules"
	"github.com/runnerr0/historylens/internal/storage"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type entriesResponse struct {
	Entries []storage.ActivityEntry `json:"entries"`
}

type rulesResponse struct {
	Rules rules.RuleSet `json:"rules"`
}

type addRuleResponse struct {
	Rule   rules.UrlPattern    `json:"rule"`
	Report recategorize.Report `json:"report"`
}

type healthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// decodeBody reads a JSON request body into v, answering the request itself
// when that fails.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request too large", err.Error())
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON", err.Error())
		return false
	}
	return true
}

func internalError(w http.ResponseWriter, d Deps, code string, err error) {
	d.Logger.Error(code, logger.Error(err))
	writeError(w, http.StatusInternalServerError, code, err.Error())
}

func nonNil(entries []storage.ActivityEntry) []storage.ActivityEntry {
	if entries == nil {
		return []storage.ActivityEntry{}
	}
	return entries
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func timeParam(r *http.Request, name string, def time.Time) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func healthz(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthzResponse{
			Status:        "ok",
			UptimeSeconds: d.Now().Sub(d.StartTime).Seconds(),
			Version:       d.Version,
		})
	}
}

func submitActivity(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sub activity.Submission
		if !decodeBody(w, r, &sub) {
			return
		}

		res, err := d.Service.SubmitActivity(r.Context(), sub, d.Now())
		if err != nil {
			if errors.Is(err, categorize.ErrInvalidURL) {
				writeError(w, http.StatusBadRequest, "invalid URL", err.Error())
				return
			}
			internalError(w, d, "save failed", err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func suppressURL(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			URL string `json:"url"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		if strings.TrimSpace(body.URL) == "" {
			writeError(w, http.StatusBadRequest, "url required", "")
			return
		}

		d.Service.Suppress(body.URL, d.Now())
		writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
	}
}

// queryActivity serves range queries when from or to is given, category
// queries when category is given, and everything otherwise.
func queryActivity(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		ctx := r.Context()

		var (
			entries []storage.ActivityEntry
			err     error
		)
		switch {
		case q.Get("from") != "" || q.Get("to") != "":
			low, perr := timeParam(r, "from", time.UnixMilli(0).UTC())
			if perr != nil {
				writeError(w, http.StatusBadRequest, "invalid from", perr.Error())
				return
			}
			high, perr := timeParam(r, "to", d.Now())
			if perr != nil {
				writeError(w, http.StatusBadRequest, "invalid to", perr.Error())
				return
			}
			entries, err = d.Service.QueryRange(ctx, low, high, storage.ParseOrder(q.Get("order")))
		case q.Get("category") != "":
			entries, err = d.Service.QueryCategory(ctx, q.Get("category"))
		default:
			entries, err = d.Service.QueryAll(ctx)
		}
		if err != nil {
			internalError(w, d, "query failed", err)
			return
		}
		writeJSON(w, http.StatusOK, entriesResponse{Entries: nonNil(entries)})
	}
}

func recentActivity(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := intParam(r, "limit", 0)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", "")
			return
		}
		offset, err := intParam(r, "offset", 0)
		if err != nil || offset < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset", "")
			return
		}

		entries, err := d.Service.Recent(r.Context(), limit, offset)
		if err != nil {
			internalError(w, d, "query failed", err)
			return
		}
		writeJSON(w, http.StatusOK, entriesResponse{Entries: nonNil(entries)})
	}
}

func getEntry(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		url := strings.TrimSpace(r.URL.Query().Get("url"))
		if url == "" {
			writeError(w, http.StatusBadRequest, "url required", "")
			return
		}

		entry, err := d.Service.Get(r.Context(), url)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found", url)
			return
		}
		if err != nil {
			internalError(w, d, "query failed", err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

func weeklyReport(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, err := intParam(r, "offset", 0)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid offset", err.Error())
			return
		}

		week, err := d.Service.Weekly(r.Context(), d.Now(), offset)
		if err != nil {
			internalError(w, d, "report failed", err)
			return
		}
		writeJSON(w, http.StatusOK, week)
	}
}

func stats(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := d.Service.Stats(r.Context())
		if err != nil {
			internalError(w, d, "stats failed", err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func listRules(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rs, err := d.Service.RuleSet(r.Context())
		if err != nil {
			internalError(w, d, "load rules failed", err)
			return
		}
		writeJSON(w, http.StatusOK, rulesResponse{Rules: rs})
	}
}

// replaceRules stores a new rule set. Stored entries keep their categories
// until the next recategorization.
func replaceRules(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body rulesResponse
		if !decodeBody(w, r, &body) {
			return
		}
		if body.Rules == nil {
			body.Rules = rules.RuleSet{}
		}

		if err := d.Service.SetRuleSet(r.Context(), body.Rules); err != nil {
			if errors.Is(err, rules.ErrInvalidRule) {
				writeError(w, http.StatusBadRequest, "invalid rule", err.Error())
				return
			}
			internalError(w, d, "save rules failed", err)
			return
		}

		rs, err := d.Service.RuleSet(r.Context())
		if err != nil {
			internalError(w, d, "load rules failed", err)
			return
		}
		writeJSON(w, http.StatusOK, rulesResponse{Rules: rs})
	}
}

func addRule(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rule rules.UrlPattern
		if !decodeBody(w, r, &rule) {
			return
		}

		report, err := d.Service.AddRule(r.Context(), rule.Pattern, rule.Category)
		switch {
		case errors.Is(err, rules.ErrInvalidRule):
			writeError(w, http.StatusBadRequest, "invalid rule", err.Error())
			return
		case err != nil && !errors.Is(err, recategorize.ErrIncomplete):
			internalError(w, d, "add rule failed", err)
			return
		}

		valid, _ := rules.Validate(rule)
		writeJSON(w, http.StatusOK, addRuleResponse{Rule: valid, Report: report})
	}
}

func suggestPattern(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		url := strings.TrimSpace(r.URL.Query().Get("url"))
		if url == "" {
			writeError(w, http.StatusBadRequest, "url required", "")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"pattern": d.Service.SuggestPattern(url)})
	}
}

func listCategories(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, err := d.Service.Categories(r.Context())
		if err != nil {
			internalError(w, d, "load rules failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]string{"categories": cats})
	}
}

// recategorizeAll reports partial failures through the failed count rather
// than an error status.
func recategorizeAll(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := d.Service.RecategorizeAll(r.Context())
		if err != nil && !errors.Is(err, recategorize.ErrIncomplete) {
			internalError(w, d, "recategorize failed", err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}
