package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"combos/internal/amqp"
	"combos/internal/core"
	applog "combos/internal/log"
	"combos/internal/services"
	"combos/internal/sources"
)

// sheetReadTimeout bounds one spreadsheet read.
const sheetReadTimeout = 10 * time.Second

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady fails while templates are missing or the queue is unreachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusServiceUnavailable)
		return
	}
	if hc, ok := s.jobs.(healthChecker); ok && !hc.Healthy() {
		http.Error(w, "amqp unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := struct {
		DefaultMaxCount int
		AsyncEnabled    bool
		SheetsEnabled   bool
	}{
		DefaultMaxCount: s.search.MaxCount(""),
		AsyncEnabled:    s.jobs != nil,
		SheetsEnabled:   s.sheet != nil,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Index template execution failed",
			applog.FieldError, err, "template", "index.html")
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

// handleUIEntries renders the parsed-entries partial for the pasted text.
func (s *Server) handleUIEntries(w http.ResponseWriter, r *http.Request) {
	req, _, err := ParseSearchRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	entries, err := s.parseEntries(req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	data := struct {
		Status  string
		Entries []entryView
	}{
		Status:  entriesStatus(len(entries)),
		Entries: entryViews(entries),
	}
	s.renderPartial(w, r, "entries.html", data, NewHTMXResponse().TriggerEntriesParsed(len(entries)))
}

// handleUICombinations runs a search and renders the combinations partial.
func (s *Server) handleUICombinations(w http.ResponseWriter, r *http.Request) {
	req, _, err := ParseSearchRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	resp, err := s.search.Search(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	data := struct {
		Status    string
		Target    string
		Truncated bool
		Combos    []comboView
	}{
		Status:    resp.Status,
		Target:    core.FormatCents(resp.TargetCents),
		Truncated: resp.Result.Truncated,
		Combos:    comboViews(resp.Result),
	}

	b := NewHTMXResponse().TriggerSearchCompleted(len(resp.Result.Combinations), resp.Result.Truncated)
	if resp.Result.Truncated {
		b.TriggerWarningNotification(fmt.Sprintf("Showing the first %d combinations.", len(resp.Result.Combinations)))
	}
	s.renderPartial(w, r, "combos.html", data, b)
}

func (s *Server) handleAPIEntries(w http.ResponseWriter, r *http.Request) {
	req, _, err := ParseSearchRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	entries, err := s.parseEntries(req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entriesResponse{
		Count:   len(entries),
		Entries: entriesJSON(entries),
		Status:  entriesStatus(len(entries)),
	})
}

func (s *Server) handleAPICombinations(w http.ResponseWriter, r *http.Request) {
	req, _, err := ParseSearchRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	resp, err := s.search.Search(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCombinationsResponse(resp))
}

// handleAPIExport returns the TSV export of combination n (1-based).
func (s *Server) handleAPIExport(w http.ResponseWriter, r *http.Request) {
	req, p, err := ParseSearchRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	n, err := parseExportIndex(p)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	out, err := s.search.Export(r.Context(), req, n)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Combination exported",
		applog.FieldOperation, applog.OpExport, "n", n)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="combination-%d.tsv"`, n))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out + "\n"))
}

// handleSheetCombinations searches over lines read from the spreadsheet. An
// optional "range" field overrides the configured range.
func (s *Server) handleSheetCombinations(w http.ResponseWriter, r *http.Request) {
	if s.sheet == nil {
		s.respondError(w, r, errSheetsDisabled)
		return
	}
	req, p, err := ParseSearchRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), sheetReadTimeout)
	defer cancel()

	var lines []string
	rng := p.Get("range")
	if rr, ok := s.sheet.(sources.RangeReader); ok && rng != "" {
		lines, err = rr.ReadRange(ctx, rng)
	} else {
		lines, err = s.sheet.ReadLines(ctx)
	}
	if err != nil {
		if errors.Is(r.Context().Err(), context.Canceled) {
			s.respondError(w, r, r.Context().Err())
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", errSourceFailed, err))
		return
	}
	if lines == nil {
		lines = []string{}
	}

	applog.FromContext(r.Context()).DebugContext(r.Context(), "Read spreadsheet lines",
		applog.FieldOperation, applog.OpRead, applog.FieldSource, "sheets", "lines", len(lines))

	req.Text = ""
	req.Lines = lines
	resp, err := s.search.Search(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCombinationsResponse(resp))
}

// handleCreateJob validates the request and queues it for the worker.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		s.respondError(w, r, errAsyncDisabled)
		return
	}
	req, _, err := ParseSearchRequest(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.Lines != nil {
		req.Text = strings.Join(req.Lines, "\n")
		req.Lines = nil
	}
	if err := s.search.Validate(req); err != nil {
		s.respondError(w, r, err)
		return
	}

	msg := amqp.NewSearchRequestMessage(req.Text, req.Target, req.MaxCount)
	if err := s.jobs.PublishSearchRequest(r.Context(), msg); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %w", errQueueFailed, err))
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Search queued",
		applog.FieldOperation, applog.OpPublish, applog.FieldSearchID, msg.ID)
	writeJSON(w, http.StatusAccepted, jobResponse{ID: msg.ID, Status: "queued"})
}

func (s *Server) parseEntries(req services.SearchRequest) ([]core.Entry, error) {
	if req.Lines != nil {
		return s.search.ParseEntries(strings.Join(req.Lines, "\n"))
	}
	return s.search.ParseEntries(req.Text)
}

// renderPartial executes a template into a buffer first so a failed render
// does not leave a half-written fragment.
func (s *Server) renderPartial(w http.ResponseWriter, r *http.Request, name string, data interface{}, b *HTMXResponseBuilder) {
	if s.templates == nil {
		s.respondError(w, r, errors.New("templates not loaded"))
		return
	}
	var buf strings.Builder
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.respondError(w, r, fmt.Errorf("render %s: %w", name, err))
		return
	}
	b.BodyHTML(buf.String()).Write(w)
}
