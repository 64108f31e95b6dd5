package dashboard

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/phillip-england/clockboard/internal/connecteam"
	"github.com/phillip-england/clockboard/internal/logging"
	"github.com/phillip-england/clockboard/internal/storeconfig"
	"github.com/phillip-england/clockboard/internal/timemetrics"
)

const exportSuffix = "export.xlsx"

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Clockboard running. Use /store/<store_id>?pin=xxxx\n"))
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) storeRoutes(w http.ResponseWriter, r *http.Request) {
	storeID, rest, ok := storePathParts(r.URL.EscapedPath())
	if !ok {
		http.NotFound(w, r)
		return
	}
	switch rest {
	case "":
		s.storePage(w, r, storeID)
	case exportSuffix:
		s.storeExport(w, r, storeID)
	default:
		http.NotFound(w, r)
	}
}

// storePathParts splits an escaped /store/<id>[/<rest>] path and unescapes
// each segment once, so an id may carry "%" or an encoded "/".
func storePathParts(escapedPath string) (string, string, bool) {
	trimmed := strings.Trim(strings.TrimPrefix(escapedPath, "/store/"), "/")
	if trimmed == "" {
		return "", "", false
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) > 2 {
		return "", "", false
	}
	storeID, err := url.PathUnescape(parts[0])
	if err != nil || strings.TrimSpace(storeID) == "" {
		return "", "", false
	}
	if len(parts) == 2 {
		rest, err := url.PathUnescape(parts[1])
		if err != nil {
			return "", "", false
		}
		return storeID, rest, true
	}
	return storeID, "", true
}

func (s *Server) storePage(w http.ResponseWriter, r *http.Request, storeID string) {
	store, ok := s.authorize(w, r, storeID)
	if !ok {
		return
	}

	data := pageData{
		StoreID:        store.ID,
		StoreName:      store.DisplayName(),
		RefreshSeconds: int(s.cfg.RefreshInterval.Seconds()),
		ExportURL:      exportURL(store.ID, r.URL.Query().Get("pin")),
	}

	rows, now, err := s.loadRows(r.Context(), store)
	data.GeneratedAt = now.In(s.cfg.Location).Format("Mon Jan 2, 3:04 PM")
	switch {
	case errors.Is(err, connecteam.ErrOutsideBusinessHours):
		data.Closed = true
		s.metrics.EmployeesRendered(store.ID, 0)
	case err != nil:
		logging.FromContext(r.Context()).Warn("timeclock fetch failed", "store", store.ID, "error", err)
		data.Error = upstreamErrorMessage(err)
	default:
		data.Employees = buildEmployeeViews(rows, s.cfg.Location)
		s.metrics.EmployeesRendered(store.ID, len(data.Employees))
	}

	if err := renderHTMLTemplate(w, http.StatusOK, s.storeTmpl, data); err != nil {
		http.Error(w, "template render failed", http.StatusInternalServerError)
		logging.FromContext(r.Context()).Error("store template render failed", "store", store.ID, "error", err)
	}
}

func (s *Server) storeExport(w http.ResponseWriter, r *http.Request, storeID string) {
	store, ok := s.authorize(w, r, storeID)
	if !ok {
		return
	}

	rows, now, err := s.loadRows(r.Context(), store)
	if err != nil && !errors.Is(err, connecteam.ErrOutsideBusinessHours) {
		logging.FromContext(r.Context()).Warn("timeclock fetch failed", "store", store.ID, "error", err)
		http.Error(w, upstreamErrorMessage(err), http.StatusBadGateway)
		return
	}

	buf, err := buildWorkbook(store, rows, now, s.cfg.Location)
	if err != nil {
		logging.FromContext(r.Context()).Error("export workbook failed", "store", store.ID, "error", err)
		http.Error(w, "unable to build export", http.StatusInternalServerError)
		return
	}

	filename := "clockboard-" + safeFilePart(store.ID) + "-" + now.In(s.cfg.Location).Format("2006-01-02") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(buf.Bytes())
}

// authorize writes the rejection page and returns false when the store or
// PIN does not check out.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, storeID string) (storeconfig.Store, bool) {
	store, err := s.stores.Authorize(storeID, r.URL.Query().Get("pin"))
	if err == nil {
		return store, true
	}

	label := storeID
	reason := "pin_mismatch"
	if errors.Is(err, storeconfig.ErrUnknownStore) {
		label = "unknown"
		reason = "unknown_store"
	}
	s.metrics.PINRejected(label)
	logging.FromContext(r.Context()).Warn("store access denied", "store", label, "reason", reason)

	if renderErr := renderHTMLTemplate(w, http.StatusForbidden, s.deniedTmpl, pageData{StoreID: storeID}); renderErr != nil {
		http.Error(w, "access denied", http.StatusForbidden)
	}
	return storeconfig.Store{}, false
}

// loadRows fetches entries under the upstream timeout and evaluates them
// against a single instant.
func (s *Server) loadRows(ctx context.Context, store storeconfig.Store) ([]timemetrics.Row, time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()

	entries, err := s.source.Entries(ctx, store)
	now := s.now()
	if err != nil {
		return nil, now, err
	}
	return timemetrics.Evaluate(entries, now), now, nil
}

func upstreamErrorMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "The timeclock service took too long to respond. Showing no employees until the next refresh."
	}
	return "Unable to load timeclock data right now. Showing no employees until the next refresh."
}

func exportURL(storeID, pin string) string {
	q := url.Values{}
	q.Set("pin", pin)
	return "/store/" + url.PathEscape(storeID) + "/" + exportSuffix + "?" + q.Encode()
}

func safeFilePart(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

func renderHTMLTemplate(w http.ResponseWriter, status int, tmpl *template.Template, data pageData) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	body, err := sonic.Marshal(payload)
	if err != nil {
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
