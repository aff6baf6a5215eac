package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"agenda/internal/export"
	"agenda/internal/models"
	"agenda/internal/schedule"
	"agenda/internal/service"
	"agenda/internal/share"
)

// money accepts both a JSON number and a pt-BR string such as "1.500,00".
type money float64

func (m *money) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = money(share.ParseBRL(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*m = money(f)
	return nil
}

type showRequest struct {
	Location  string            `json:"location"`
	Date      string            `json:"date"`
	StartTime string            `json:"startTime"`
	EndTime   string            `json:"endTime"`
	Duration  int               `json:"duration"`
	Fee       money             `json:"fee"`
	Advance   money             `json:"advance"`
	Status    models.ShowStatus `json:"status"`
	Notes     string            `json:"notes"`
}

func (req showRequest) show(id int64) models.Show {
	return models.Show{
		ID:        id,
		Location:  req.Location,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Duration:  req.Duration,
		Fee:       float64(req.Fee),
		Advance:   float64(req.Advance),
		Status:    req.Status,
		Notes:     req.Notes,
	}
}

type showResponse struct {
	models.Show
	BalanceDue float64           `json:"balanceDue"`
	StatusInfo models.StatusInfo `json:"statusInfo"`
}

func (s *HTTPServer) present(show models.Show) showResponse {
	return showResponse{
		Show:       show,
		BalanceDue: show.BalanceDue(),
		StatusInfo: s.svc.Shows.Status(show),
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id", service.ErrInvalidInput)
	}
	return id, nil
}

func filterFromQuery(r *http.Request) schedule.Filter {
	q := r.URL.Query()
	return schedule.Filter{
		Period:   schedule.Period(strings.ToLower(q.Get("period"))),
		Location: q.Get("location"),
		Label:    q.Get("status"),
	}
}

func (s *HTTPServer) handleListShows(w http.ResponseWriter, r *http.Request) {
	shows, err := s.svc.Shows.ListShows(r.Context(), filterFromQuery(r))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	out := make([]showResponse, 0, len(shows))
	for _, show := range shows {
		out = append(out, s.present(show))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) handleCreateShow(w http.ResponseWriter, r *http.Request) {
	var req showRequest
	if err := decodeJSON(r, &req); err != nil {
		s.serviceError(w, err)
		return
	}
	show := req.show(0)
	if err := s.svc.Shows.SaveShow(r.Context(), &show); err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.present(show))
}

func (s *HTTPServer) handleGetShow(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	show, err := s.svc.Shows.GetShow(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.present(*show))
}

func (s *HTTPServer) handleUpdateShow(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	var req showRequest
	if err := decodeJSON(r, &req); err != nil {
		s.serviceError(w, err)
		return
	}
	show := req.show(id)
	if err := s.svc.Shows.SaveShow(r.Context(), &show); err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.present(show))
}

func (s *HTTPServer) handleDeleteShow(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	if err := s.svc.Shows.DeleteShow(r.Context(), id); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleShowStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	info, err := s.svc.Shows.StatusByID(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleCheckConflict answers whether a candidate would collide without saving it.
func (s *HTTPServer) handleCheckConflict(w http.ResponseWriter, r *http.Request) {
	var req struct {
		showRequest
		ID int64 `json:"id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.serviceError(w, err)
		return
	}
	with, err := s.svc.Shows.CheckConflict(r.Context(), req.show(req.ID))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	resp := map[string]any{"conflict": with != nil}
	if with != nil {
		resp["with"] = with
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) handleMonths(w http.ResponseWriter, r *http.Request) {
	groups, err := s.svc.Shows.MonthGroups(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	type monthResponse struct {
		Title string `json:"title"`
		schedule.MonthGroup
	}
	out := make([]monthResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, monthResponse{
			Title:      fmt.Sprintf("%s de %d", share.MonthName(g.Month), g.Year),
			MonthGroup: g,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	year := 0
	if raw := r.URL.Query().Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = y
	}
	stats, err := s.svc.Shows.Stats(r.Context(), year)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) agenda(r *http.Request) (models.ArtistInfo, []models.Show, error) {
	artist, err := s.svc.Artist.Get(r.Context())
	if err != nil {
		return models.ArtistInfo{}, nil, err
	}
	shows, err := s.svc.Shows.ListShows(r.Context(), filterFromQuery(r))
	if err != nil {
		return models.ArtistInfo{}, nil, err
	}
	return artist, shows, nil
}

func (s *HTTPServer) handleShare(w http.ResponseWriter, r *http.Request) {
	artist, shows, err := s.agenda(r)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(share.AgendaText(artist, shows)))
}

func (s *HTTPServer) handleShareTelegram(w http.ResponseWriter, r *http.Request) {
	if s.svc.Notifier == nil {
		writeError(w, http.StatusServiceUnavailable, "telegram is not configured")
		return
	}
	artist, shows, err := s.agenda(r)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	if err := s.svc.Notifier.SendAgenda(artist, shows); err != nil {
		s.log.Error().Err(err).Msg("telegram share failed")
		writeError(w, http.StatusBadGateway, "telegram send failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"shows": len(shows)})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	artist, shows, err := s.agenda(r)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	now := s.svc.Clock.Now()
	var buf bytes.Buffer
	if err := export.Write(&buf, artist, shows, now); err != nil {
		s.serviceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(now)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *HTTPServer) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	if s.svc.Sheets == nil {
		writeError(w, http.StatusServiceUnavailable, "google sheets is not configured")
		return
	}
	shows, err := s.svc.Shows.ListShows(r.Context(), schedule.Filter{})
	if err != nil {
		s.serviceError(w, err)
		return
	}
	if err := s.svc.Sheets.ReplaceShows(r.Context(), shows); err != nil {
		s.log.Error().Err(err).Msg("sheets export failed")
		writeError(w, http.StatusBadGateway, "google sheets export failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"shows": len(shows)})
}

func (s *HTTPServer) handleListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := s.svc.Locations.List(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, locations)
}

type locationRequest struct {
	Name string `json:"name"`
}

func (s *HTTPServer) handleCreateLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.serviceError(w, err)
		return
	}
	loc, err := s.svc.Locations.Add(r.Context(), req.Name)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loc)
}

func (s *HTTPServer) handleRenameLocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.serviceError(w, err)
		return
	}
	if err := s.svc.Locations.Rename(r.Context(), id, req.Name); err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.Location{ID: id, Name: strings.TrimSpace(req.Name)})
}

func (s *HTTPServer) handleDeleteLocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	if err := s.svc.Locations.Delete(r.Context(), id); err != nil {
		s.serviceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleGetArtist(w http.ResponseWriter, r *http.Request) {
	info, err := s.svc.Artist.Get(r.Context())
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *HTTPServer) handleUpdateArtist(w http.ResponseWriter, r *http.Request) {
	var info models.ArtistInfo
	if err := decodeJSON(r, &info); err != nil {
		s.serviceError(w, err)
		return
	}
	saved, err := s.svc.Artist.Update(r.Context(), info)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
