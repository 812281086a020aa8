package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/encore/internal/httpserver/deps"
	"github.com/MrSnakeDoc/encore/internal/library"
	"github.com/MrSnakeDoc/encore/internal/media"
)

type refreshResponse struct {
	Count int `json:"count"`
}

type cleanupResponse struct {
	Removed int `json:"removed"`
}

type recordResponse struct {
	Record media.Record `json:"record"`
}

type insertRequest struct {
	ID      string `json:"id"`
	Pointer string `json:"pointer"`
}

// Browse renders one page of the media browser for the query string
// filter, sort, q, page, brokenPage and brokenOpen.
func Browse(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, ok := parseQuery(r)
		if !ok {
			writeMessage(w, http.StatusBadRequest, "Invalid filter or sort")
			return
		}
		writeJSON(w, http.StatusOK, library.Browse(d.Media.Catalog().Records(), q))
	}
}

func parseQuery(r *http.Request) (library.Query, bool) {
	v := r.URL.Query()
	var q library.Query

	if s := v.Get("filter"); s != "" {
		f, ok := library.ParseFilter(s)
		if !ok {
			return q, false
		}
		q.Filter = f
	}
	if s := v.Get("sort"); s != "" {
		so, ok := library.ParseSort(s)
		if !ok {
			return q, false
		}
		q.Sort = so
	}
	q.Search = v.Get("q")
	q.Page, _ = strconv.Atoi(v.Get("page"))
	q.BrokenPage, _ = strconv.Atoi(v.Get("brokenPage"))
	q.BrokenOpen, _ = strconv.ParseBool(v.Get("brokenOpen"))
	return q, true
}

func MediaRefresh(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := d.Media.Refresh(r.Context())
		if err != nil {
			writeError(d, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, refreshResponse{Count: n})
	}
}

func MediaRepair(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := d.Media.Repair(r.Context())
		if err != nil {
			writeError(d, w, r, err)
			return
		}
		writeMessage(w, http.StatusOK, summary)
	}
}

func MediaCleanup(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := d.Media.Cleanup(r.Context())
		if err != nil {
			writeError(d, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, cleanupResponse{Removed: n})
	}
}

func MediaRetry(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := d.Media.Retry(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(d, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, recordResponse{Record: rec})
	}
}

func MediaInsert(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req insertRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil || req.ID == "" || req.Pointer == "" {
			writeMessage(w, http.StatusBadRequest, "id and pointer are required")
			return
		}
		rec, err := d.Media.Insert(r.Context(), req.ID, req.Pointer)
		if err != nil {
			writeError(d, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, recordResponse{Record: rec})
	}
}
