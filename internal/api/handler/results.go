package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kiranshivaraju/eveview/internal/api/response"
	"github.com/kiranshivaraju/eveview/internal/query"
	"github.com/kiranshivaraju/eveview/internal/results"
	"github.com/kiranshivaraju/eveview/pkg/models"
)

// ResultsController is the part of results.Controller the handlers drive.
type ResultsController interface {
	Status() results.Status
	Draft() query.Filters
	Applied() query.State
	SetFilters(f query.Filters) error
	Search() (bool, error)
	ChangePage(page, limit int) error
	ClearFilters() (bool, error)
	Refresh() error
}

// Session reports and replaces the credential used for the results service.
type Session interface {
	Present() bool
	Set(token string)
}

type resultsView struct {
	Status        results.Phase            `json:"status"`
	Applied       query.State              `json:"applied"`
	Draft         query.Filters            `json:"draft"`
	Items         []models.ResultRecord    `json:"items"`
	TotalCount    int                      `json:"total_count"`
	Error         *results.ClassifiedError `json:"error,omitempty"`
	LoginRequired bool                     `json:"login_required"`
	LoginURL      string                   `json:"login_url,omitempty"`
}

type issuedResponse struct {
	Issued bool          `json:"issued"`
	Status results.Phase `json:"status"`
	State  query.State   `json:"state"`
}

// NewGetResultsHandler returns an http.HandlerFunc for GET /api/v1/results.
func NewGetResultsHandler(ctrl ResultsController, session Session, loginURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := ctrl.Status()
		view := resultsView{
			Status:  st.Phase,
			Applied: ctrl.Applied(),
			Draft:   ctrl.Draft(),
			Items:   []models.ResultRecord{},
			Error:   st.Err,
		}
		if st.Page != nil {
			view.Items = st.Page.Items
			view.TotalCount = st.Page.TotalCount
		}
		if st.Err != nil && st.Err.Kind == results.KindUnauthorized && !session.Present() {
			view.LoginRequired = true
			view.LoginURL = loginURL
		}

		response.Collection(w, view, response.NewPaginationMeta(st.State.Page, st.State.Limit, view.TotalCount))
	}
}

// NewPatchFiltersHandler returns an http.HandlerFunc for PATCH /api/v1/results/filters.
// Fields absent from the body keep their draft value. No request is issued.
func NewPatchFiltersHandler(ctrl ResultsController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draft := ctrl.Draft()
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if err := ctrl.SetFilters(draft); err != nil {
			writeControllerError(w, err)
			return
		}

		response.JSON(w, ctrl.Draft())
	}
}

// NewSearchHandler returns an http.HandlerFunc for POST /api/v1/results/search.
func NewSearchHandler(ctrl ResultsController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		issued, err := ctrl.Search()
		if err != nil {
			writeControllerError(w, err)
			return
		}
		writeIssued(w, ctrl, issued)
	}
}

// NewChangePageHandler returns an http.HandlerFunc for PUT /api/v1/results/page.
func NewChangePageHandler(ctrl ResultsController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Page  int `json:"page"`
			Limit int `json:"limit"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		limit := req.Limit
		if limit == 0 {
			limit = ctrl.Applied().Limit
		}

		if err := ctrl.ChangePage(req.Page, limit); err != nil {
			writeControllerError(w, err)
			return
		}
		writeIssued(w, ctrl, true)
	}
}

// NewClearFiltersHandler returns an http.HandlerFunc for POST /api/v1/results/clear.
func NewClearFiltersHandler(ctrl ResultsController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		issued, err := ctrl.ClearFilters()
		if err != nil {
			writeControllerError(w, err)
			return
		}
		writeIssued(w, ctrl, issued)
	}
}

// NewRefreshHandler returns an http.HandlerFunc for POST /api/v1/results/refresh.
func NewRefreshHandler(ctrl ResultsController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ctrl.Refresh(); err != nil {
			writeControllerError(w, err)
			return
		}
		writeIssued(w, ctrl, true)
	}
}

// NewSetSessionHandler returns an http.HandlerFunc for PUT /api/v1/session.
// It stores the token obtained from a fresh login.
func NewSetSessionHandler(session Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Token == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "token is required", nil)
			return
		}

		session.Set(req.Token)
		response.JSON(w, map[string]bool{"login_required": false})
	}
}

func writeIssued(w http.ResponseWriter, ctrl ResultsController, issued bool) {
	st := ctrl.Status()
	response.Accepted(w, issuedResponse{
		Issued: issued,
		Status: st.Phase,
		State:  ctrl.Applied(),
	})
}

func writeControllerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, query.ErrInvalidState):
		response.Error(w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), nil)
	case errors.Is(err, results.ErrClosed):
		response.Error(w, http.StatusServiceUnavailable, "SHUTTING_DOWN",
			"The server is shutting down", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
