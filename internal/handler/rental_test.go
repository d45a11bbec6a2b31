package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-rentals/internal/handler"
	"github.com/iliyamo/movie-rentals/internal/middleware"
	"github.com/iliyamo/movie-rentals/internal/model"
	"github.com/iliyamo/movie-rentals/internal/projection"
	"github.com/iliyamo/movie-rentals/internal/repository"
	"github.com/iliyamo/movie-rentals/internal/session"
)

type catalogFake struct {
	mu      sync.Mutex
	snap    model.Snapshot
	nextID  uint64
	err     error
	added   []model.RentalInput
	updated []model.Rental
	deleted []uint64
}

func (f *catalogFake) Snapshot() model.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.snap
	s.Rentals = append([]model.Rental(nil), f.snap.Rentals...)
	return s
}

func (f *catalogFake) Rental(id uint64) (model.Rental, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.snap.Rentals {
		if r.ID == id {
			return r, true
		}
	}
	return model.Rental{}, false
}

func (f *catalogFake) AddRental(_ context.Context, in model.RentalInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.nextID++
	f.added = append(f.added, in)
	f.snap.Rentals = append(f.snap.Rentals, model.Rental{ID: f.nextID, UserID: in.UserID, MovieID: in.MovieID, DueDate: in.DueDate})
	return nil
}

func (f *catalogFake) UpdateRental(_ context.Context, r model.Rental) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.updated = append(f.updated, r)
	for i := range f.snap.Rentals {
		if f.snap.Rentals[i].ID == r.ID {
			f.snap.Rentals[i] = r
		}
	}
	return nil
}

func (f *catalogFake) DeleteRental(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	for i := range f.snap.Rentals {
		if f.snap.Rentals[i].ID == id {
			f.snap.Rentals = append(f.snap.Rentals[:i], f.snap.Rentals[i+1:]...)
			break
		}
	}
	return nil
}

func fixture() *catalogFake {
	return &catalogFake{
		nextID: 100,
		snap: model.Snapshot{
			Users:  []model.User{{ID: 2, Name: "Bea"}, {ID: 1, Name: "Al"}},
			Movies: []model.Movie{{ID: 10, Title: "Zed"}, {ID: 11, Title: "Ace"}},
			Rentals: []model.Rental{
				{ID: 1, UserID: 1, MovieID: 10, DueDate: "2030-01-05"},
				{ID: 2, UserID: 1, MovieID: 11, DueDate: "2030-01-09"},
			},
		},
	}
}

type client struct {
	t       *testing.T
	e       *echo.Echo
	session string
}

func newClient(t *testing.T, cat *catalogFake) *client {
	t.Helper()
	now := func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) }
	h := handler.NewRentalHandler(cat, session.NewMemoryStore(time.Hour), projection.NewProjector("en"), session.NewSchema(now))

	e := echo.New()
	e.Validator = handler.NewRequestValidator()
	e.Use(middleware.SessionID())
	e.GET("/healthz", handler.Health(cat))
	e.GET("/v1/users", h.ListUsers)
	e.GET("/v1/movies", h.ListMovies)
	e.GET("/v1/rentals/view", h.View)
	e.PUT("/v1/rentals/view/sort", h.ChangeSort)
	e.POST("/v1/rentals/:id/edit", h.StartEdit)
	e.DELETE("/v1/rentals/:id", h.Delete)
	e.PATCH("/v1/rentals/form", h.FieldChange)
	e.POST("/v1/rentals/form", h.Submit)
	e.DELETE("/v1/rentals/form", h.Reset)
	return &client{t: t, e: e, session: uuid.NewString()}
}

func (cl *client) do(method, path, body string) *httptest.ResponseRecorder {
	cl.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set(middleware.SessionHeader, cl.session)
	rec := httptest.NewRecorder()
	cl.e.ServeHTTP(rec, req)
	return rec
}

func (cl *client) view(method, path, body string, wantStatus int) handler.RentalView {
	cl.t.Helper()
	rec := cl.do(method, path, body)
	require.Equal(cl.t, wantStatus, rec.Code, rec.Body.String())
	var v handler.RentalView
	require.NoError(cl.t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func (cl *client) field(name, value string) handler.RentalView {
	cl.t.Helper()
	return cl.view(http.MethodPatch, "/v1/rentals/form", fmt.Sprintf(`{"field":%q,"value":%q}`, name, value), http.StatusOK)
}

func rowIDs(g handler.GroupView) []uint64 {
	var ids []uint64
	for _, r := range g.Rentals {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestView_Loading(t *testing.T) {
	cl := newClient(t, &catalogFake{snap: model.Snapshot{Loading: true}})

	v := cl.view(http.MethodGet, "/v1/rentals/view", "", http.StatusOK)

	assert.True(t, v.Loading)
	assert.Equal(t, handler.LoadingText, v.Placeholder)
	assert.Empty(t, v.Groups)
}

func TestView_NoUsers(t *testing.T) {
	cl := newClient(t, &catalogFake{})

	v := cl.view(http.MethodGet, "/v1/rentals/view", "", http.StatusOK)

	assert.False(t, v.Loading)
	assert.Equal(t, handler.NoUsersText, v.Placeholder)
}

func TestView_GroupsAndSortPersistPerSession(t *testing.T) {
	cat := fixture()
	cl := newClient(t, cat)

	v := cl.view(http.MethodGet, "/v1/rentals/view", "", http.StatusOK)
	require.Len(t, v.Groups, 2)
	assert.Equal(t, "Al's Rentals", v.Groups[0].Heading)
	assert.Equal(t, []uint64{1, 2}, rowIDs(v.Groups[0]))
	assert.Equal(t, "Zed", v.Groups[0].Rentals[0].MovieTitle)
	assert.Equal(t, "Bea", v.Groups[1].User.Name)
	assert.Empty(t, v.Groups[1].Rentals)
	assert.Equal(t, "No rentals found for Bea.", v.Groups[1].Empty)
	assert.Len(t, v.SortOptions, 3)
	assert.Equal(t, session.Creating, v.Form.Mode)
	assert.Equal(t, "Add Rental", v.Form.Title)
	assert.Equal(t, []handler.Option{{Value: "2", Label: "Bea"}, {Value: "1", Label: "Al"}}, v.Form.Users)

	v = cl.view(http.MethodPut, "/v1/rentals/view/sort", `{"sort":"movie"}`, http.StatusOK)
	assert.Equal(t, projection.SortMovie, v.Sort)
	assert.Equal(t, []uint64{2, 1}, rowIDs(v.Groups[0]))

	v = cl.view(http.MethodGet, "/v1/rentals/view", "", http.StatusOK)
	assert.Equal(t, projection.SortMovie, v.Sort, "sort key kept in the session")

	other := newClient(t, cat)
	other.e = cl.e
	v = other.view(http.MethodGet, "/v1/rentals/view", "", http.StatusOK)
	assert.Equal(t, projection.SortNone, v.Sort, "another session has its own state")
}

func TestChangeSort_RejectsUnofferedKeys(t *testing.T) {
	cl := newClient(t, fixture())

	for _, body := range []string{`{"sort":"user"}`, `{"sort":"rating"}`, `{"sort":`} {
		rec := cl.do(http.MethodPut, "/v1/rentals/view/sort", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestFieldChange_ShowsOnlyTouchedErrors(t *testing.T) {
	cl := newClient(t, fixture())

	v := cl.field("due_date", "2020-01-01")
	assert.Equal(t, map[session.Field]string{session.FieldDueDate: "Due date must be in the future"}, v.Form.Errors)
	assert.Equal(t, "2020-01-01", v.Form.Draft.DueDate)

	v = cl.field("due_date", "2030-01-01")
	assert.Empty(t, v.Form.Errors)

	rec := cl.do(http.MethodPatch, "/v1/rentals/form", `{"field":"rating","value":"5"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmit_CreateFlow(t *testing.T) {
	cat := fixture()
	cl := newClient(t, cat)

	v := cl.view(http.MethodPost, "/v1/rentals/form", "", http.StatusUnprocessableEntity)
	assert.Equal(t, map[session.Field]string{
		session.FieldUserID:  "User is required",
		session.FieldMovieID: "Movie is required",
		session.FieldDueDate: "Due date is required",
	}, v.Form.Errors)
	assert.NotEmpty(t, v.Error)
	assert.Empty(t, cat.added)

	cl.field("user_id", "2")
	cl.field("movie_id", "11")
	cl.field("due_date", "2030-03-01")
	v = cl.view(http.MethodPost, "/v1/rentals/form", "", http.StatusOK)

	assert.Equal(t, []model.RentalInput{{UserID: 2, MovieID: 11, DueDate: "2030-03-01"}}, cat.added)
	assert.Equal(t, session.Creating, v.Form.Mode)
	assert.Equal(t, session.Draft{}, v.Form.Draft)
	assert.Equal(t, []uint64{101}, rowIDs(v.Groups[1]), "new rental listed under Bea")
}

func TestSubmit_EditFlow(t *testing.T) {
	cat := fixture()
	cl := newClient(t, cat)

	v := cl.view(http.MethodPost, "/v1/rentals/2/edit", "", http.StatusOK)
	assert.True(t, v.ScrollToForm)
	assert.Equal(t, session.Editing, v.Form.Mode)
	assert.Equal(t, "Edit Rental", v.Form.Title)
	assert.Equal(t, "Update Rental", v.Form.SubmitLabel)
	assert.True(t, v.Form.UserSelectDisabled)
	assert.Equal(t, session.Draft{UserID: "1", MovieID: "11", DueDate: "2030-01-09"}, v.Form.Draft)

	rec := cl.do(http.MethodPatch, "/v1/rentals/form", `{"field":"user_id","value":"2"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	cl.field("due_date", "2030-02-02")
	v = cl.view(http.MethodPost, "/v1/rentals/form", "", http.StatusOK)

	assert.Equal(t, []model.Rental{{ID: 2, UserID: 1, MovieID: 11, DueDate: "2030-02-02"}}, cat.updated)
	assert.Empty(t, cat.added)
	assert.Equal(t, session.Creating, v.Form.Mode)
}

func TestStartEdit_UnknownRental(t *testing.T) {
	cl := newClient(t, fixture())

	assert.Equal(t, http.StatusNotFound, cl.do(http.MethodPost, "/v1/rentals/99/edit", "").Code)
	assert.Equal(t, http.StatusBadRequest, cl.do(http.MethodPost, "/v1/rentals/abc/edit", "").Code)
	assert.Equal(t, http.StatusNotFound, cl.do(http.MethodDelete, "/v1/rentals/99", "").Code)
}

func TestSubmit_MutationFailureKeepsDraft(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "broker or database down", err: errors.New("connection refused"), status: http.StatusBadGateway},
		{name: "unknown movie", err: fmt.Errorf("create rental: %w", repository.ErrConflict), status: http.StatusConflict},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cat := fixture()
			cl := newClient(t, cat)
			cl.field("user_id", "1")
			cl.field("movie_id", "10")
			cl.field("due_date", "2030-03-01")
			cat.err = tc.err

			v := cl.view(http.MethodPost, "/v1/rentals/form", "", tc.status)

			assert.Equal(t, session.NoticeSaveFailed, v.Form.Notice)
			assert.Equal(t, session.Draft{UserID: "1", MovieID: "10", DueDate: "2030-03-01"}, v.Form.Draft)

			cat.err = nil
			v = cl.view(http.MethodPost, "/v1/rentals/form", "", http.StatusOK)
			assert.Len(t, cat.added, 1, "retry after the failure succeeds")
			assert.Empty(t, v.Form.Notice)
		})
	}
}

func TestDelete_EditTargetResetsForm(t *testing.T) {
	cat := fixture()
	cl := newClient(t, cat)
	cl.view(http.MethodPost, "/v1/rentals/1/edit", "", http.StatusOK)

	v := cl.view(http.MethodDelete, "/v1/rentals/1", "", http.StatusOK)

	assert.Equal(t, []uint64{1}, cat.deleted)
	assert.Equal(t, session.Creating, v.Form.Mode)
	assert.Nil(t, v.Form.Target)
	assert.Equal(t, []uint64{2}, rowIDs(v.Groups[0]))
}

func TestDelete_OtherRentalKeepsEdit(t *testing.T) {
	cat := fixture()
	cl := newClient(t, cat)
	cl.view(http.MethodPost, "/v1/rentals/1/edit", "", http.StatusOK)

	v := cl.view(http.MethodDelete, "/v1/rentals/2", "", http.StatusOK)

	assert.Equal(t, session.Editing, v.Form.Mode)
	require.NotNil(t, v.Form.Target)
	assert.Equal(t, uint64(1), v.Form.Target.ID)
}

func TestDelete_FailureSetsNotice(t *testing.T) {
	cat := fixture()
	cl := newClient(t, cat)
	cat.err = errors.New("timeout")

	v := cl.view(http.MethodDelete, "/v1/rentals/1", "", http.StatusBadGateway)

	assert.Equal(t, session.NoticeDeleteFailed, v.Form.Notice)
	assert.Len(t, v.Groups[0].Rentals, 2)
}

func TestReset_KeepsSort(t *testing.T) {
	cl := newClient(t, fixture())
	cl.view(http.MethodPut, "/v1/rentals/view/sort", `{"sort":"due_date"}`, http.StatusOK)
	cl.view(http.MethodPost, "/v1/rentals/1/edit", "", http.StatusOK)

	v := cl.view(http.MethodDelete, "/v1/rentals/form", "", http.StatusOK)

	assert.Equal(t, session.Creating, v.Form.Mode)
	assert.Equal(t, projection.SortDueDate, v.Sort)
}

func TestReferenceLists(t *testing.T) {
	cl := newClient(t, fixture())

	rec := cl.do(http.MethodGet, "/v1/movies", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Items []handler.Option `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []handler.Option{{Value: "10", Label: "Zed"}, {Value: "11", Label: "Ace"}}, body.Items)

	loading := newClient(t, &catalogFake{snap: model.Snapshot{Loading: true}})
	assert.Equal(t, http.StatusServiceUnavailable, loading.do(http.MethodGet, "/v1/users", "").Code)
}

func TestHealth(t *testing.T) {
	cat := &catalogFake{snap: model.Snapshot{Loading: true}}
	cl := newClient(t, cat)

	rec := cl.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","catalog":"loading"}`, rec.Body.String())

	cat.snap.Loading = false
	rec = cl.do(http.MethodGet, "/healthz", "")
	assert.JSONEq(t, `{"status":"ok","catalog":"ready"}`, rec.Body.String())
}
