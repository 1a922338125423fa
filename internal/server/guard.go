package server

import (
	"pinboard/internal/middleware"
	"pinboard/internal/models"
	"pinboard/internal/session"

	"github.com/gofiber/fiber/v2"
)

const (
	principalKey   = "principal"
	uploadKey      = "uploadedFile"
	uploadErrorKey = "uploadError"
)

// RequireSession passes only requests carrying a valid, unrevoked session.
// Anything else has its cookie cleared and is sent to the landing page.
func (s *Server) RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := s.sessions.FromRequest(c)
		if err != nil {
			s.sessions.ClearCookie(c)
			return c.Redirect("/", fiber.StatusSeeOther)
		}

		c.Locals(principalKey, p)
		c.SetUserContext(middleware.WithUserID(c.UserContext(), p.UserID))
		return c.Next()
	}
}

func principalFrom(c *fiber.Ctx) *session.Principal {
	p, _ := c.Locals(principalKey).(*session.Principal)
	return p
}

// AcceptUpload stores the single file in field and exposes its name to the
// handler. A missing file is not an error here; a rejected file is recorded
// for the handler to report. It must run after RequireSession.
func (s *Server) AcceptUpload(field string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile(field)
		if err != nil {
			middleware.UploadsTotal.WithLabelValues(field, "missing").Inc()
			return c.Next()
		}

		name, err := s.uploads.Save(fh)
		if err != nil {
			if !models.HasCode(err, models.CodeValidation) {
				middleware.UploadsTotal.WithLabelValues(field, "error").Inc()
				return err
			}
			middleware.UploadsTotal.WithLabelValues(field, "rejected").Inc()
			c.Locals(uploadErrorKey, err)
			return c.Next()
		}

		middleware.UploadsTotal.WithLabelValues(field, "stored").Inc()
		c.Locals(uploadKey, name)
		return c.Next()
	}
}

// uploadedFile returns the stored filename, or the reason the upload was
// rejected. ("", nil) means no file was sent.
func uploadedFile(c *fiber.Ctx) (string, error) {
	if err, ok := c.Locals(uploadErrorKey).(error); ok {
		return "", err
	}
	name, _ := c.Locals(uploadKey).(string)
	return name, nil
}
