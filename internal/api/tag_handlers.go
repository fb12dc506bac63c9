package api

import (
	"net/http"
	"sort"

	"encoding/json/v2"

	"github.com/go-chi/chi/v5"

	"github.com/sambooru/sambooru-server/internal/dto"
	"github.com/sambooru/sambooru-server/internal/http/response"
)

// handleListTags returns the full tag catalog, sorted by name.
func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.catalog.All(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })

	out := make([]*dto.Tag, 0, len(tags))
	for _, tag := range tags {
		out = append(out, dto.NewTag(tag))
	}
	response.Success(w, out, s.logger)
}

// updateTagRequest is the body for PATCH /tags/{id}.
type updateTagRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Category string `json:"category" validate:"omitempty,oneof=general artist character copyright meta"`
}

// handleUpdateTag renames a tag or changes its category. Moderators and
// admins only; the change is visible on every post carrying the tag.
func (s *Server) handleUpdateTag(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if !user.IsModerator() {
		response.Forbidden(w, "moderator access required", s.logger)
		return
	}

	var req updateTagRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}
	if err := s.validator.Validate(req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	tag, err := s.catalog.Rename(r.Context(), chi.URLParam(r, "id"), req.Name, req.Category)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, dto.NewTag(tag), s.logger)
}

// handleDeleteTag removes a tag from the catalog and from every post
// carrying it. Admin only.
func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	if _, err := requireAdmin(r.Context()); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if err := s.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}
