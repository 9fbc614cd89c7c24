package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/revops/internal/contracts"
	"github.com/wonny/revops/internal/fiscal"
)

// Helper functions shared by all handlers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondDomainError maps domain errors to HTTP status codes.
// 빈 결과는 에러가 아님: ErrNotFound만 404
func respondDomainError(w http.ResponseWriter, err error) {
	var ambiguous *contracts.AmbiguousMatchError
	var integrity *contracts.DataIntegrityError

	switch {
	case errors.Is(err, contracts.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &ambiguous):
		respondError(w, http.StatusConflict, err.Error())
	case errors.As(err, &integrity):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// parseAsOf reads the optional as_of query parameter (YYYY-MM-DD).
// Absent means "anchor to the dataset's own latest date", never the
// wall clock.
func parseAsOf(r *http.Request) (*time.Time, error) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return nil, nil
	}
	d, err := fiscal.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// resolvePeriod turns the period/start/end query parameters into a
// range. Explicit bounds win over the token; the token defaults to
// fy-to-date and resolves against ref (the request's anchor date).
func resolvePeriod(r *http.Request, ref time.Time) (fiscal.Range, error) {
	q := r.URL.Query()
	if q.Get("start") != "" || q.Get("end") != "" {
		start, err := fiscal.ParseDate(q.Get("start"))
		if err != nil {
			return fiscal.Range{}, err
		}
		end, err := fiscal.ParseDate(q.Get("end"))
		if err != nil {
			return fiscal.Range{}, err
		}
		return fiscal.NewRange(start, end)
	}

	token := q.Get("period")
	if token == "" {
		token = "fy-to-date"
	}
	return fiscal.Resolve(token, ref)
}

// parseFilter builds the explicit filter object from query parameters.
// 전역 필터 상태 없음: 필터는 요청마다 여기서 조립되어 전달된다
func parseFilter(r *http.Request) (contracts.SnapshotFilter, error) {
	q := r.URL.Query()
	f := contracts.SnapshotFilter{
		Owner:  q.Get("owner"),
		Client: q.Get("client"),
		Search: q.Get("q"),
	}
	if raw := q.Get("stages"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				f.Stages = append(f.Stages, s)
			}
		}
	}
	if raw := q.Get("min_value"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return f, err
		}
		f.MinValue = &v
	}
	if raw := q.Get("max_value"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return f, err
		}
		f.MaxValue = &v
	}
	return f, nil
}
