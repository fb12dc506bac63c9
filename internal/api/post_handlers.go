package api

import (
	"net/http"
	"strconv"

	"encoding/json/v2"

	"github.com/go-chi/chi/v5"

	"github.com/sambooru/sambooru-server/internal/domain"
	"github.com/sambooru/sambooru-server/internal/dto"
	"github.com/sambooru/sambooru-server/internal/http/response"
	"github.com/sambooru/sambooru-server/internal/query"
)

// handleSearchPosts evaluates a tag query and returns one page of posts,
// newest first. Authenticated users get their blacklist applied;
// anonymous searches see everything.
func (s *Server) handleSearchPosts(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.BadRequest(w, "page must be a positive integer", s.logger)
			return
		}
		page = parsed
	}

	var blacklist []string
	if user, err := currentUser(r.Context()); err == nil {
		blacklist = user.Blacklist
	}

	result, err := s.engine.Search(r.Context(), query.Options{
		RawQuery:  r.URL.Query().Get("tags"),
		Page:      page,
		Blacklist: blacklist,
	})
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	tags, err := s.postService.ResolveTags(r.Context(), result.Posts)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	posts := make([]*dto.Post, 0, len(result.Posts))
	for _, post := range result.Posts {
		posts = append(posts, dto.NewPost(post, tags))
	}

	response.Success(w, dto.SearchResult{
		Posts:       posts,
		CurrentPage: result.CurrentPage,
		TotalPages:  result.TotalPages,
		Total:       result.Total,
	}, s.logger)
}

// handleGetPost returns a single post with its tags resolved.
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.postService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	tags, err := s.postService.ResolveTags(r.Context(), []*domain.Post{post})
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, dto.NewPost(post, tags), s.logger)
}

// editTagsRequest is the body for PUT /posts/{id}/tags.
type editTagsRequest struct {
	Tags string `json:"tags" validate:"required"`
}

// handleEditPostTags replaces a post's tag list.
func (s *Server) handleEditPostTags(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	var req editTagsRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body", s.logger)
		return
	}
	if err := s.validator.Validate(req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	post, err := s.postService.EditTags(r.Context(), user, chi.URLParam(r, "id"), req.Tags)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	tags, err := s.postService.ResolveTags(r.Context(), []*domain.Post{post})
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, dto.NewPost(post, tags), s.logger)
}

// handleDeletePost removes a post and its stored files.
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if err := s.postService.Delete(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}
