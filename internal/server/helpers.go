package server

import (
	"net/url"
	"strings"

	"pinboard/internal/middleware"
	"pinboard/internal/models"
	"pinboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > service.MaxPageSize {
		limit = service.MaxPageSize
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parseID extracts a route parameter as a positive uint.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("Invalid post ID")
	}
	return uint(id), nil
}

// renderForm re-renders a form page with an inline error. The status comes
// from err; internal failures are logged and shown as a generic message.
func renderForm(c *fiber.Ctx, view string, err error, data fiber.Map) error {
	status := models.StatusCode(err)
	message := models.PublicMessage(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "form submission failed",
			"view", view, "error", err.Error())
		message = "Something went wrong, please try again"
	}
	if data == nil {
		data = fiber.Map{}
	}
	data["error"] = message
	return c.Status(status).Render(view, data)
}

// redirectBack returns to the Referer when it is a path on this site and
// to fallback otherwise.
func redirectBack(c *fiber.Ctx, fallback string) error {
	if target := localReferer(c); target != "" {
		return c.Redirect(target)
	}
	return c.Redirect(fallback)
}

// localReferer reduces the Referer to path and query, or "" when it points
// at another host or is not an absolute path.
func localReferer(c *fiber.Ctx) string {
	ref := c.Get(fiber.HeaderReferer)
	if ref == "" || strings.Contains(ref, "\\") {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host != "" && !strings.EqualFold(u.Host, string(c.Request().Host())) {
		return ""
	}
	if !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return ""
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}

// redirectHome sends non-owners back to the landing page.
func redirectHome(c *fiber.Ctx) error {
	return c.Redirect("/")
}

func isForbidden(err error) bool {
	return models.HasCode(err, models.CodeForbidden)
}
