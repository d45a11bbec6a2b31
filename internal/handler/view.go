package handler

import (
	"strconv"

	"github.com/iliyamo/movie-rentals/internal/model"
	"github.com/iliyamo/movie-rentals/internal/projection"
	"github.com/iliyamo/movie-rentals/internal/session"
)

// Texts shown by the rental view.
const (
	LoadingText  = "Loading rentals..."
	NoUsersText  = "No rentals found."
	titleAdd     = "Add Rental"
	titleEdit    = "Edit Rental"
	submitAdd    = "Add Rental"
	submitUpdate = "Update Rental"
)

// Option is one entry of a select input.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// GroupView is one user's section of the rental list.
type GroupView struct {
	User    model.User       `json:"user"`
	Heading string           `json:"heading"`
	Rentals []projection.Row `json:"rentals"`
	Empty   string           `json:"empty,omitempty"` // placeholder when Rentals is empty
}

// FormView is the add/edit form as it should be rendered.
type FormView struct {
	Mode               session.Mode             `json:"mode"`
	Title              string                   `json:"title"`
	SubmitLabel        string                   `json:"submit_label"`
	Target             *model.Rental            `json:"target,omitempty"`
	Draft              session.Draft            `json:"draft"`
	Errors             map[session.Field]string `json:"errors"`
	Notice             string                   `json:"notice,omitempty"`
	UserSelectDisabled bool                     `json:"user_select_disabled"`
	Users              []Option                 `json:"users"`
	Movies             []Option                 `json:"movies"`
}

// RentalView is the render-ready model returned by every rental endpoint.
type RentalView struct {
	Loading      bool                    `json:"loading"`
	Placeholder  string                  `json:"placeholder,omitempty"`
	Sort         projection.SortKey      `json:"sort"`
	SortOptions  []projection.SortOption `json:"sort_options"`
	Groups       []GroupView             `json:"groups"`
	Form         FormView                `json:"form"`
	ScrollToForm bool                    `json:"scroll_to_form,omitempty"`
	Error        string                  `json:"error,omitempty"`
}

// buildView combines a catalog snapshot with a session state.
func buildView(p projection.Projector, snap model.Snapshot, st session.State) RentalView {
	v := RentalView{
		Loading:     snap.Loading,
		Sort:        st.SortKey,
		SortOptions: projection.SortOptions(),
		Groups:      []GroupView{},
		Form:        buildForm(snap, st),
	}
	switch {
	case snap.Loading:
		v.Placeholder = LoadingText
		return v
	case len(snap.Users) == 0:
		v.Placeholder = NoUsersText
		return v
	}
	for _, g := range p.Project(snap.Rentals, snap.Users, snap.Movies, st.SortKey) {
		gv := GroupView{User: g.User, Heading: g.User.Name + "'s Rentals", Rentals: g.Rows}
		if len(g.Rows) == 0 {
			gv.Empty = "No rentals found for " + g.User.Name + "."
		}
		v.Groups = append(v.Groups, gv)
	}
	return v
}

func buildForm(snap model.Snapshot, st session.State) FormView {
	f := FormView{
		Mode:        st.Mode,
		Title:       titleAdd,
		SubmitLabel: submitAdd,
		Target:      st.Target,
		Draft:       st.Draft,
		Errors:      st.Visible(),
		Notice:      st.Notice,
		Users:       userOptions(snap.Users),
		Movies:      movieOptions(snap.Movies),
	}
	if st.Mode == session.Editing {
		f.Title = titleEdit
		f.SubmitLabel = submitUpdate
		f.UserSelectDisabled = true
	}
	return f
}

func userOptions(users []model.User) []Option {
	out := make([]Option, 0, len(users))
	for _, u := range users {
		out = append(out, Option{Value: strconv.FormatUint(u.ID, 10), Label: u.Name})
	}
	return out
}

func movieOptions(movies []model.Movie) []Option {
	out := make([]Option, 0, len(movies))
	for _, m := range movies {
		out = append(out, Option{Value: strconv.FormatUint(m.ID, 10), Label: m.Title})
	}
	return out
}
