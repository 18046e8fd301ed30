package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/divakaivan/my-reddit-server/internal/middleware"
	"github.com/divakaivan/my-reddit-server/internal/model"
	"github.com/divakaivan/my-reddit-server/internal/service"
)

type PostHandler struct {
	feed  *service.FeedService
	posts *service.PostService
}

func NewPostHandler(feed *service.FeedService, posts *service.PostService) *PostHandler {
	return &PostHandler{feed: feed, posts: posts}
}

// List handles GET /api/posts?limit=&cursor=
func (h *PostHandler) List(c fiber.Ctx) error {
	limit, errMsg := middleware.ValidateLimit(c.Query("limit"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	page, err := h.feed.List(c.Context(), limit, c.Query("cursor"))
	if err != nil {
		return middleware.AppError(c, err)
	}
	resp, err := service.PresentPage(c.Context(), middleware.Request(c), page)
	if err != nil {
		return middleware.AppError(c, err)
	}
	return c.JSON(resp)
}

// Get handles GET /api/posts/:id
func (h *PostHandler) Get(c fiber.Ctx) error {
	postID, errMsg := middleware.ValidatePostID(c.Params("id"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	view, err := h.posts.Get(c.Context(), middleware.Request(c), postID)
	if err != nil {
		return middleware.AppError(c, err)
	}
	return c.JSON(view)
}

// Create handles POST /api/posts
func (h *PostHandler) Create(c fiber.Ctx) error {
	in, ok, err := bindPostInput(c)
	if !ok {
		return err
	}

	view, err := h.posts.Create(c.Context(), middleware.Request(c), in.Title, in.Text)
	if err != nil {
		return middleware.AppError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

// Update handles PATCH /api/posts/:id
func (h *PostHandler) Update(c fiber.Ctx) error {
	postID, errMsg := middleware.ValidatePostID(c.Params("id"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	in, ok, err := bindPostInput(c)
	if !ok {
		return err
	}

	view, err := h.posts.Update(c.Context(), middleware.Request(c), postID, in.Title, in.Text)
	if err != nil {
		return middleware.AppError(c, err)
	}
	return c.JSON(view)
}

// Delete handles DELETE /api/posts/:id
func (h *PostHandler) Delete(c fiber.Ctx) error {
	postID, errMsg := middleware.ValidatePostID(c.Params("id"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	if err := h.posts.Delete(c.Context(), middleware.Request(c), postID); err != nil {
		return middleware.AppError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// bindPostInput parses and validates a post body. When ok is false the error
// response has already been written and err is its result.
func bindPostInput(c fiber.Ctx) (model.PostInput, bool, error) {
	var in model.PostInput
	if err := c.Bind().JSON(&in); err != nil {
		return in, false, middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	title, errMsg := middleware.ValidateTitle(in.Title)
	if errMsg != "" {
		return in, false, middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	text, errMsg := middleware.ValidateBody(in.Text)
	if errMsg != "" {
		return in, false, middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	in.Title, in.Text = title, text
	return in, true, nil
}
