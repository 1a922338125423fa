package server

import (
	"pinboard/internal/middleware"
	"pinboard/internal/models"
	"pinboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

var errUserNotFound = &models.AppError{Code: models.CodeNotFound, Message: "User not found"}

// ShowProfile renders the acting user with their posts.
func (s *Server) ShowProfile(c *fiber.Ctx) error {
	p := principalFrom(c)
	user, err := s.userService.GetProfile(c.UserContext(), p.UserID)
	if err != nil {
		return err
	}
	return c.Render("profile", fiber.Map{"title": user.Username, "nav": true, "user": user})
}

// ShowEditProfile renders the username/name form.
func (s *Server) ShowEditProfile(c *fiber.Ctx) error {
	p := principalFrom(c)
	user, err := s.userService.GetUser(c.UserContext(), p.UserID)
	if err != nil {
		return err
	}
	return c.Render("edit", fiber.Map{"title": "Edit profile", "user": user})
}

// ChangeDetail updates username and name. The replacement session is signed
// before the write and only handed out after it succeeds.
func (s *Server) ChangeDetail(c *fiber.Ctx) error {
	ctx := c.UserContext()
	p := principalFrom(c)

	current, err := s.userService.GetUser(ctx, p.UserID)
	if err != nil {
		return err
	}
	formData := fiber.Map{"title": "Edit profile", "user": current}

	updated, err := s.userService.MergeDetails(ctx, service.UpdateDetailsInput{
		UserID:   p.UserID,
		Username: c.FormValue("username"),
		Name:     c.FormValue("name"),
	})
	if err != nil {
		return renderForm(c, "edit", err, formData)
	}

	token, next, err := s.sessions.Issue(updated.ID, updated.Username)
	if err != nil {
		return renderForm(c, "edit", models.NewInternalError(err), formData)
	}

	if err := s.userService.SaveDetails(ctx, updated); err != nil {
		return renderForm(c, "edit", err, formData)
	}

	s.sessions.SetCookie(c, token, next)
	if err := s.sessions.Revoke(ctx, p); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to revoke replaced session", "error", err.Error())
	}
	return c.Redirect("/profile")
}

// ShowChangePassword renders the password form.
func (s *Server) ShowChangePassword(c *fiber.Ctx) error {
	return c.Render("change-password", fiber.Map{"title": "Change password"})
}

// ChangePassword checks the confirmation before touching the credential store.
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	ctx := c.UserContext()
	p := principalFrom(c)
	data := fiber.Map{"title": "Change password"}

	user, err := s.userService.GetUser(ctx, p.UserID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return renderForm(c, "change-password", errUserNotFound, data)
		}
		return err
	}

	if c.FormValue("newPassword") != c.FormValue("confirmPassword") {
		return renderForm(c, "change-password", models.NewValidationError("New passwords do not match"), data)
	}

	if err := s.userService.ChangePassword(ctx, user.ID, c.FormValue("oldPassword"), c.FormValue("newPassword")); err != nil {
		middleware.Logger.WarnContext(ctx, "change password failed", "error", err.Error())
		status := models.StatusCode(err)
		data["error"] = "Error changing password"
		return c.Status(status).Render("change-password", data)
	}
	return c.Redirect("/profile")
}

// UploadProfileImage replaces the acting user's profile image.
func (s *Server) UploadProfileImage(c *fiber.Ctx) error {
	ctx := c.UserContext()
	p := principalFrom(c)

	name, err := uploadedFile(c)
	if err != nil {
		return err
	}
	if name == "" {
		return models.NewValidationError("An image is required")
	}

	previous, err := s.userService.SetProfileImage(ctx, p.UserID, name)
	if err != nil {
		s.removeUpload(c, name)
		return err
	}
	if previous != "" && previous != name {
		s.removeUpload(c, previous)
	}
	return c.Redirect("/profile")
}

func (s *Server) removeUpload(c *fiber.Ctx, name string) {
	if err := s.uploads.Remove(name); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "failed to remove upload", "file", name, "error", err.Error())
	}
}
