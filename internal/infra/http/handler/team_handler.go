package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openctemio/teams/internal/app"
	"github.com/openctemio/teams/internal/infra/http/middleware"
	"github.com/openctemio/teams/pkg/apierror"
	"github.com/openctemio/teams/pkg/domain/shared"
	"github.com/openctemio/teams/pkg/domain/team"
	"github.com/openctemio/teams/pkg/domain/user"
	"github.com/openctemio/teams/pkg/logger"
	"github.com/openctemio/teams/pkg/validator"
)

// TeamHandler handles team and membership endpoints.
type TeamHandler struct {
	teams     *app.TeamService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewTeamHandler creates a TeamHandler.
func NewTeamHandler(teams *app.TeamService, v *validator.Validator, log *logger.Logger) *TeamHandler {
	return &TeamHandler{
		teams:     teams,
		validator: v,
		logger:    log.With("handler", "team"),
	}
}

// TeamResponse is the wire representation of a team.
type TeamResponse struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	ParentID              *string   `json:"parent_id,omitempty"`
	Ancestors             []string  `json:"ancestors,omitempty"`
	ImplicitMembers       bool      `json:"implicit_members"`
	RequiredExternalRoles []string  `json:"required_external_roles,omitempty"`
	RequiredExternalTeams []string  `json:"required_external_teams,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func toTeamResponse(t *team.Team) TeamResponse {
	resp := TeamResponse{
		ID:                    t.ID().String(),
		Name:                  t.Name(),
		ImplicitMembers:       t.HasImplicitMembers(),
		RequiredExternalRoles: t.RequiresExternalRoles(),
		RequiredExternalTeams: t.RequiresExternalTeams(),
		CreatedAt:             t.CreatedAt(),
		UpdatedAt:             t.UpdatedAt(),
	}
	if pid := t.ParentID(); pid != nil {
		s := pid.String()
		resp.ParentID = &s
	}
	for _, a := range t.Ancestors() {
		resp.Ancestors = append(resp.Ancestors, a.String())
	}
	return resp
}

// MemberResponse is the wire representation of a team member.
type MemberResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
	Type  string `json:"type"`
}

func toMemberResponse(u *user.User, teamID shared.ID) MemberResponse {
	resp := MemberResponse{
		ID:    u.ID().String(),
		Email: u.Email(),
		Name:  u.Name(),
	}
	if role, ok := u.Principal().ExplicitRole(teamID); ok {
		resp.Role = role.String()
		resp.Type = string(team.MemberTypeExplicit)
	} else {
		resp.Role = team.RoleMember.String()
		resp.Type = string(team.MemberTypeImplicit)
	}
	return resp
}

// Create handles POST /api/v1/teams.
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	var input app.CreateTeamInput
	if err := decodeJSON(r, &input); err != nil {
		writeBadRequest(w, r, "invalid request body")
		return
	}
	if err := h.validator.Validate(input); err != nil {
		writeError(w, r, err)
		return
	}

	t, err := h.teams.CreateTeam(r.Context(), input, principal)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTeamResponse(t))
}

// List handles GET /api/v1/teams.
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	teams, err := h.teams.ListTeams(r.Context(), principal)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items := make([]TeamResponse, 0, len(teams))
	for _, t := range teams {
		items = append(items, toTeamResponse(t))
	}
	writeJSON(w, http.StatusOK, ListResponse[TeamResponse]{
		Items:      items,
		TotalCount: len(items),
	})
}

// Get handles GET /api/v1/teams/{teamID}.
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	t, err := h.teams.GetTeam(r.Context(), chi.URLParam(r, "teamID"), principal)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTeamResponse(t))
}

// Update handles PATCH /api/v1/teams/{teamID}.
func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	var input app.UpdateTeamInput
	if err := decodeJSON(r, &input); err != nil {
		writeBadRequest(w, r, "invalid request body")
		return
	}
	if err := h.validator.Validate(input); err != nil {
		writeError(w, r, err)
		return
	}

	t, err := h.teams.UpdateTeam(r.Context(), chi.URLParam(r, "teamID"), input, principal)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toTeamResponse(t))
}

// Delete handles DELETE /api/v1/teams/{teamID}.
func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	if err := h.teams.DeleteTeam(r.Context(), chi.URLParam(r, "teamID"), principal); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// AddMember handles POST /api/v1/teams/{teamID}/members.
func (h *TeamHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	var input app.AddMemberInput
	if err := decodeJSON(r, &input); err != nil {
		writeBadRequest(w, r, "invalid request body")
		return
	}
	input.TeamID = chi.URLParam(r, "teamID")
	if err := h.validator.Validate(input); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.teams.AddMember(r.Context(), input, principal); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

// UpdateMemberRole handles PUT /api/v1/teams/{teamID}/members/{userID}.
func (h *TeamHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	var input app.UpdateMemberRoleInput
	if err := decodeJSON(r, &input); err != nil {
		writeBadRequest(w, r, "invalid request body")
		return
	}
	input.TeamID = chi.URLParam(r, "teamID")
	input.UserID = chi.URLParam(r, "userID")
	if err := h.validator.Validate(input); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.teams.UpdateMemberRole(r.Context(), input, principal); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// RemoveMember handles DELETE /api/v1/teams/{teamID}/members/{userID}.
func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	teamID := chi.URLParam(r, "teamID")
	userID := chi.URLParam(r, "userID")

	if err := h.teams.RemoveMember(r.Context(), teamID, userID, principal); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// SearchMembers handles GET /api/v1/teams/{teamID}/members.
func (h *TeamHandler) SearchMembers(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())

	input := app.SearchMembersInput{
		TeamID: chi.URLParam(r, "teamID"),
		Types:  queryStrings(r, "type"),
		Roles:  queryStrings(r, "role"),
		Limit:  queryInt(r, "limit", 0),
		Offset: queryInt(r, "offset", 0),
	}
	if err := h.validator.Validate(input); err != nil {
		writeError(w, r, err)
		return
	}

	teamID, err := shared.IDFromString(input.TeamID)
	if err != nil {
		writeError(w, r, apierror.BadRequest("invalid team id"))
		return
	}

	out, err := h.teams.SearchMembers(r.Context(), input, principal)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items := make([]MemberResponse, 0, len(out.Users))
	for _, u := range out.Users {
		items = append(items, toMemberResponse(u, teamID))
	}
	writeJSON(w, http.StatusOK, ListResponse[MemberResponse]{
		Items:      items,
		TotalCount: out.TotalCount,
		Limit:      input.Limit,
		Offset:     input.Offset,
	})
}
