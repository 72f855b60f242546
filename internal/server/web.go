package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cardmeta/bindex/internal/auth"
	"github.com/cardmeta/bindex/internal/model"
	"github.com/cardmeta/bindex/internal/storage"
)

// recordField is one labelled attribute for template rendering.
type recordField struct {
	Label string
	Name  string
	Value string
}

// recordFields lists every editable attribute of a record in display order.
// The Name values double as form field names and match the JSON keys.
func recordFields(rec model.BinRecord) []recordField {
	maxBalance := ""
	if rec.MaxBalance != nil {
		maxBalance = strconv.FormatInt(*rec.MaxBalance, 10)
	}
	return []recordField{
		{"Company", "company", rec.Company},
		{"Country", "country", rec.Country},
		{"Category", "category", rec.Category},
		{"Card type", "card_type", rec.CardType},
		{"Issuer", "issuer", rec.Issuer},
		{"Distributor", "distributor", rec.Distributor},
		{"Reloadable", "reloadable", rec.Reloadable},
		{"International", "international", rec.International},
		{"Max balance", "max_balance", maxBalance},
		{"Customer service", "customer_service", rec.CustomerService},
		{"Website", "website_url", rec.WebsiteURL},
	}
}

// formRecord builds a record from submitted form fields. Max balance input
// is parsed tolerantly; everything else is taken verbatim.
func formRecord(r *http.Request, code string) model.BinRecord {
	return model.BinRecord{
		Code:            code,
		Category:        r.FormValue("category"),
		Reloadable:      r.FormValue("reloadable"),
		International:   r.FormValue("international"),
		MaxBalance:      model.ParseMaxBalance(r.FormValue("max_balance")),
		Company:         r.FormValue("company"),
		Country:         r.FormValue("country"),
		CustomerService: r.FormValue("customer_service"),
		Distributor:     r.FormValue("distributor"),
		Issuer:          r.FormValue("issuer"),
		CardType:        r.FormValue("card_type"),
		WebsiteURL:      r.FormValue("website_url"),
	}
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.Render(w, name, data); err != nil {
		h.logger.Error("render page", "error", err, "page", name,
			"request_id", RequestIDFromContext(r.Context()))
	}
}

type indexData struct {
	Code     string
	Record   *model.BinRecord
	Fields   []recordField
	NotFound bool
	Error    string
}

// HandleIndex serves the public lookup page. A POST carries the code to
// look up; the result (or a not-found notice) renders on the same page.
func (h *Handlers) HandleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{}
	if r.Method == http.MethodPost {
		data.Code = r.FormValue("code")
		rec, err := h.dir.Lookup(r.Context(), data.Code)
		switch {
		case err == nil:
			data.Record = &rec
			data.Fields = recordFields(rec)
		case errors.Is(err, storage.ErrNotFound):
			data.NotFound = true
		default:
			data.Error = "Enter a six-digit BIN."
		}
	}
	h.render(w, r, "index.html", data)
}

type reportData struct {
	Code         string
	Fields       []recordField
	Submitted    bool
	SubmissionID int64
	Error        string
}

// HandleReportForm serves the correction form for one code, pre-filled with
// whatever is currently on file.
func (h *Handlers) HandleReportForm(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if model.ValidateCode(code) != nil {
		http.NotFound(w, r)
		return
	}

	rec, err := h.dir.Lookup(r.Context(), code)
	if err != nil {
		rec = model.BinRecord{Code: code}
	}
	h.render(w, r, "report.html", reportData{Code: code, Fields: recordFields(rec)})
}

// HandleReportSubmit queues a correction from the web form.
func (h *Handlers) HandleReportSubmit(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	rec := formRecord(r, code)
	sub, err := h.dir.Submit(r.Context(), model.Submission{
		Code:            rec.Code,
		Category:        rec.Category,
		Reloadable:      rec.Reloadable,
		International:   rec.International,
		MaxBalance:      rec.MaxBalance,
		Company:         rec.Company,
		Country:         rec.Country,
		CustomerService: rec.CustomerService,
		Distributor:     rec.Distributor,
		Issuer:          rec.Issuer,
		CardType:        rec.CardType,
		WebsiteURL:      rec.WebsiteURL,
	})
	if err != nil {
		h.render(w, r, "report.html", reportData{
			Code:   code,
			Fields: recordFields(rec),
			Error:  "Could not queue the report; check the BIN and try again.",
		})
		return
	}
	h.render(w, r, "report.html", reportData{Code: code, Submitted: true, SubmissionID: sub.ID})
}

// adminConfigured reports whether admin credentials are set. Without them
// the whole admin UI is disabled.
func (h *Handlers) adminConfigured() bool {
	return h.adminUser != "" && h.adminHash != ""
}

// sessionMiddleware gates the admin pages behind a valid session cookie.
func (h *Handlers) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.adminConfigured() {
			http.NotFound(w, r)
			return
		}
		cookie, err := r.Cookie(auth.SessionCookie)
		if err != nil {
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		if _, err := h.sessions.Validate(cookie.Value); err != nil {
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginData struct {
	Error string
}

// HandleLoginForm serves the admin login page.
func (h *Handlers) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	if !h.adminConfigured() {
		http.NotFound(w, r)
		return
	}
	h.render(w, r, "login.html", loginData{})
}

// HandleLogin checks the admin credentials and issues a session cookie.
// An unknown username still burns a hash verification so the two failure
// modes are not distinguishable by timing.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.adminConfigured() {
		http.NotFound(w, r)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	if username != h.adminUser {
		auth.DummyVerify()
		h.render(w, r, "login.html", loginData{Error: "Wrong username or password."})
		return
	}
	ok, err := auth.VerifyPassword(password, h.adminHash)
	if err != nil || !ok {
		h.render(w, r, "login.html", loginData{Error: "Wrong username or password."})
		return
	}

	token, expires, err := h.sessions.Issue(username)
	if err != nil {
		h.logger.Error("issue session", "error", err)
		h.render(w, r, "login.html", loginData{Error: "Login failed, try again."})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	h.logger.Info("admin logged in", "username", username)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// HandleLogout clears the session cookie.
func (h *Handlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

type adminData struct {
	Code    string
	Fields  []recordField
	Pending int
	Error   string
	Notice  string
}

// HandleAdmin serves the record editor. POST actions: load, save, delete.
func (h *Handlers) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	data := adminData{}
	if subs, err := h.dir.Submissions(r.Context()); err == nil {
		data.Pending = len(subs)
	}

	if r.Method == http.MethodPost {
		code := r.FormValue("code")
		switch r.FormValue("action") {
		case "load":
			rec, err := h.dir.Lookup(r.Context(), code)
			switch {
			case err == nil:
				data.Code = code
				data.Fields = recordFields(rec)
			case errors.Is(err, storage.ErrNotFound):
				data.Code = code
				data.Fields = recordFields(model.BinRecord{Code: code})
				data.Notice = "No record yet; saving creates one."
			default:
				data.Error = "Enter a six-digit BIN."
			}
		case "save":
			rec := formRecord(r, code)
			if err := h.dir.Save(r.Context(), rec); err != nil {
				data.Error = "Save failed."
			} else {
				data.Code = code
				data.Fields = recordFields(rec)
				data.Notice = "Saved."
			}
		case "delete":
			if err := h.dir.Delete(r.Context(), code); err != nil {
				data.Error = "Delete failed."
			} else {
				data.Notice = "Record " + code + " deleted."
			}
		}
	}
	h.render(w, r, "admin.html", data)
}

type submissionsData struct {
	Submissions []model.Submission
}

// HandleSubmissions lists the pending queue.
func (h *Handlers) HandleSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.dir.Submissions(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.render(w, r, "submissions.html", submissionsData{Submissions: subs})
}

type diffField struct {
	Label    string
	Proposed string
	Current  string
}

type submissionData struct {
	Submission model.Submission
	Fields     []diffField
	HasRecord  bool
	Error      string
}

// HandleSubmission shows one submission next to the record on file.
func (h *Handlers) HandleSubmission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	sub, err := h.dir.Submission(r.Context(), id)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	current := model.BinRecord{Code: sub.Code}
	hasRecord := false
	if rec, err := h.dir.Lookup(r.Context(), sub.Code); err == nil {
		current = rec
		hasRecord = true
	}

	proposed := recordFields(sub.Record())
	existing := recordFields(current)
	fields := make([]diffField, len(proposed))
	for i := range proposed {
		fields[i] = diffField{
			Label:    proposed[i].Label,
			Proposed: proposed[i].Value,
			Current:  existing[i].Value,
		}
	}

	h.render(w, r, "submission.html", submissionData{
		Submission: sub,
		Fields:     fields,
		HasRecord:  hasRecord,
	})
}

// HandleSubmissionAction approves or rejects one submission.
func (h *Handlers) HandleSubmissionAction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	switch r.FormValue("action") {
	case "approve":
		_, err = h.dir.Approve(r.Context(), id)
	case "reject":
		err = h.dir.Reject(r.Context(), id)
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.writeServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, "/admin/submissions", http.StatusSeeOther)
}
