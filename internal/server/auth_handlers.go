package server

import (
	"pinboard/internal/middleware"
	"pinboard/internal/models"
	"pinboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ShowLanding renders the login page.
func (s *Server) ShowLanding(c *fiber.Ctx) error {
	return c.Render("index", fiber.Map{"title": "Log in"})
}

// ShowRegister renders the registration form.
func (s *Server) ShowRegister(c *fiber.Ctx) error {
	return c.Render("register", fiber.Map{"title": "Sign up"})
}

// Register creates the account, signs the user in and sends them to their profile.
func (s *Server) Register(c *fiber.Ctx) error {
	in := service.RegisterInput{
		Username: c.FormValue("username"),
		Email:    c.FormValue("email"),
		Contact:  c.FormValue("contact"),
		Name:     c.FormValue("fullname"),
		Password: c.FormValue("password"),
	}
	form := map[string]string{
		"username": in.Username,
		"email":    in.Email,
		"contact":  in.Contact,
		"fullname": in.Name,
	}

	user, err := s.userService.Register(c.UserContext(), in)
	if err != nil {
		middleware.AuthAttempts.WithLabelValues("register", "failure").Inc()
		return renderForm(c, "register", err, fiber.Map{"title": "Sign up", "form": form})
	}
	middleware.AuthAttempts.WithLabelValues("register", "success").Inc()

	if err := s.signIn(c, user); err != nil {
		return err
	}
	return c.Redirect("/profile")
}

// Login authenticates the form credentials. Bad credentials go back to the landing page.
func (s *Server) Login(c *fiber.Ctx) error {
	user, err := s.userService.Authenticate(c.UserContext(), c.FormValue("username"), c.FormValue("password"))
	if err != nil {
		if models.HasCode(err, models.CodeUnauthorized) {
			middleware.AuthAttempts.WithLabelValues("login", "failure").Inc()
			return c.Redirect("/")
		}
		return err
	}
	middleware.AuthAttempts.WithLabelValues("login", "success").Inc()

	if err := s.signIn(c, user); err != nil {
		return err
	}
	return c.Redirect("/profile")
}

// Logout revokes the current session, if any, and clears the cookie.
func (s *Server) Logout(c *fiber.Ctx) error {
	if p, err := s.sessions.FromRequest(c); err == nil {
		if err := s.sessions.Revoke(c.UserContext(), p); err != nil {
			return err
		}
	}
	s.sessions.ClearCookie(c)
	return c.Redirect("/")
}

func (s *Server) signIn(c *fiber.Ctx, user *models.User) error {
	token, p, err := s.sessions.Issue(user.ID, user.Username)
	if err != nil {
		return models.NewInternalError(err)
	}
	s.sessions.SetCookie(c, token, p)
	return nil
}
