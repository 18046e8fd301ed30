package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/divakaivan/my-reddit-server/internal/middleware"
	"github.com/divakaivan/my-reddit-server/internal/model"
	"github.com/divakaivan/my-reddit-server/internal/service"
)

type VoteHandler struct {
	svc   *service.VoteService
	posts *service.PostService
}

func NewVoteHandler(svc *service.VoteService, posts *service.PostService) *VoteHandler {
	return &VoteHandler{svc: svc, posts: posts}
}

// Cast handles POST /api/posts/:id/vote and returns the updated post.
func (h *VoteHandler) Cast(c fiber.Ctx) error {
	postID, errMsg := middleware.ValidatePostID(c.Params("id"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	var req model.VoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}
	dir, errMsg := middleware.ValidateVote(req)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	rc := middleware.Request(c)
	if err := h.svc.Cast(c.Context(), rc, postID, dir); err != nil {
		return middleware.AppError(c, err)
	}

	view, err := h.posts.Get(c.Context(), rc, postID)
	if err != nil {
		return middleware.AppError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "post": view})
}
