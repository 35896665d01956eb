package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"combos/internal/core"
	"combos/internal/services"
)

// maxBodyBytes bounds every POST body.
const maxBodyBytes = 1 << 20

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// comboHue spreads highlight colours around the wheel, one step per combination.
func comboHue(i int) int {
	return (i * 47) % 360
}

// entriesStatus is the status line after a parse.
func entriesStatus(n int) string {
	if n == 1 {
		return "Parsed 1 entry."
	}
	return "Parsed " + strconv.Itoa(n) + " entries."
}

type (
	entryView struct {
		Index  int
		Amount string
		Text   string
	}

	chipView struct {
		Index  int
		Amount string
	}

	comboView struct {
		Number int
		Sum    string
		Hue    int
		Chips  []chipView
	}
)

func entryViews(entries []core.Entry) []entryView {
	out := make([]entryView, len(entries))
	for i, e := range entries {
		out[i] = entryView{Index: e.Index, Amount: core.FormatCents(e.Cents), Text: e.Text}
	}
	return out
}

func comboViews(res core.SearchResult) []comboView {
	out := make([]comboView, len(res.Combinations))
	for i, c := range res.Combinations {
		v := comboView{
			Number: i + 1,
			Sum:    core.FormatCents(c.Sum),
			Hue:    comboHue(i),
			Chips:  make([]chipView, len(c.Items)),
		}
		for j, e := range c.Items {
			v.Chips[j] = chipView{Index: e.Index, Amount: core.FormatCents(e.Cents)}
		}
		out[i] = v
	}
	return out
}

// JSON payloads of the /api routes.
type (
	entryJSON struct {
		Index  int    `json:"index"`
		Cents  int64  `json:"cents"`
		Amount string `json:"amount"`
		Text   string `json:"text"`
	}

	combinationJSON struct {
		Indices []int    `json:"indices"`
		Amounts []string `json:"amounts"`
		Sum     string   `json:"sum"`
	}

	entriesResponse struct {
		Count   int         `json:"count"`
		Entries []entryJSON `json:"entries"`
		Status  string      `json:"status"`
	}

	combinationsResponse struct {
		Entries      []entryJSON       `json:"entries"`
		TargetCents  int64             `json:"target_cents"`
		Target       string            `json:"target"`
		MaxCount     int               `json:"max_count"`
		Combinations []combinationJSON `json:"combinations"`
		Truncated    bool              `json:"truncated"`
		Status       string            `json:"status"`
		Cached       bool              `json:"cached"`
		DurationMs   int64             `json:"duration_ms"`
	}

	jobResponse struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
)

func entriesJSON(entries []core.Entry) []entryJSON {
	out := make([]entryJSON, len(entries))
	for i, e := range entries {
		out[i] = entryJSON{Index: e.Index, Cents: e.Cents, Amount: core.FormatPlain(e.Cents), Text: e.Text}
	}
	return out
}

func newCombinationsResponse(resp services.SearchResponse) combinationsResponse {
	out := combinationsResponse{
		Entries:      entriesJSON(resp.Entries),
		TargetCents:  resp.TargetCents,
		Target:       core.FormatPlain(resp.TargetCents),
		MaxCount:     resp.MaxCount,
		Combinations: make([]combinationJSON, len(resp.Result.Combinations)),
		Truncated:    resp.Result.Truncated,
		Status:       resp.Status,
		Cached:       resp.Cached,
		DurationMs:   resp.Duration.Milliseconds(),
	}
	for i, c := range resp.Result.Combinations {
		cj := combinationJSON{
			Indices: c.Indices(),
			Amounts: make([]string, len(c.Items)),
			Sum:     core.FormatPlain(c.Sum),
		}
		for j, e := range c.Items {
			cj.Amounts[j] = core.FormatPlain(e.Cents)
		}
		out.Combinations[i] = cj
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// limitBody caps request bodies at maxBodyBytes.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next.ServeHTTP(w, r)
	})
}
