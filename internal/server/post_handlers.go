package server

import (
	"pinboard/internal/models"
	"pinboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ShowFeed renders every post, newest first, one page at a time.
func (s *Server) ShowFeed(c *fiber.Ctx) error {
	ctx := c.UserContext()
	p := principalFrom(c)

	user, err := s.userService.GetUser(ctx, p.UserID)
	if err != nil {
		return err
	}

	page := parsePagination(c, service.DefaultPageSize)
	posts, err := s.postService.ListPosts(ctx, page.Limit, page.Offset)
	if err != nil {
		return err
	}

	prev := page.Offset - page.Limit
	if prev < 0 {
		prev = 0
	}
	return c.Render("feed", fiber.Map{
		"title":      "Feed",
		"nav":        true,
		"user":       user,
		"posts":      posts,
		"limit":      page.Limit,
		"hasPrev":    page.Offset > 0,
		"prevOffset": prev,
		"hasNext":    len(posts) == page.Limit,
		"nextOffset": page.Offset + page.Limit,
	})
}

// ShowPosts renders the acting user's posts alongside everyone's.
func (s *Server) ShowPosts(c *fiber.Ctx) error {
	ctx := c.UserContext()
	p := principalFrom(c)

	user, err := s.userService.GetProfile(ctx, p.UserID)
	if err != nil {
		return err
	}
	posts, err := s.postService.ListAllPosts(ctx)
	if err != nil {
		return err
	}
	return c.Render("show", fiber.Map{"title": "Posts", "nav": true, "user": user, "posts": posts})
}

// ShowPost renders a single post with its owner.
func (s *Server) ShowPost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	p := principalFrom(c)

	id, err := parseID(c, "cardId")
	if err != nil {
		return err
	}
	user, err := s.userService.GetUser(ctx, p.UserID)
	if err != nil {
		return err
	}
	post, err := s.postService.GetPost(ctx, id)
	if err != nil {
		return err
	}
	return c.Render("image", fiber.Map{
		"title": post.Title,
		"nav":   true,
		"user":  user,
		"post":  post,
		"owner": user.OwnsPost(post),
	})
}

// ShowAddPost renders the new-post form.
func (s *Server) ShowAddPost(c *fiber.Ctx) error {
	p := principalFrom(c)
	user, err := s.userService.GetUser(c.UserContext(), p.UserID)
	if err != nil {
		return err
	}
	return c.Render("add", fiber.Map{"title": "New post", "nav": true, "user": user})
}

// CreatePost stores a post for the acting user. The upload is removed again
// if the post cannot be written.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	p := principalFrom(c)
	data := fiber.Map{
		"title": "New post",
		"nav":   true,
		"form": map[string]string{
			"title":       c.FormValue("title"),
			"description": c.FormValue("description"),
		},
	}

	name, err := uploadedFile(c)
	if err != nil {
		return renderForm(c, "add", err, data)
	}

	_, err = s.postService.CreatePost(ctx, service.CreatePostInput{
		UserID:      p.UserID,
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Image:       name,
	})
	if err != nil {
		if name != "" {
			s.removeUpload(c, name)
		}
		return renderForm(c, "add", err, data)
	}
	return c.Redirect("/profile")
}

// ShowEditPost renders the edit form for a post the acting user owns.
func (s *Server) ShowEditPost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	p := principalFrom(c)

	id, err := parseID(c, "cardId")
	if err != nil {
		return err
	}
	post, err := s.postService.GetOwnedPost(ctx, p.UserID, id)
	if err != nil {
		if isForbidden(err) {
			return redirectHome(c)
		}
		return err
	}
	user, err := s.userService.GetProfile(ctx, p.UserID)
	if err != nil {
		return err
	}
	return c.Render("edituserpost", fiber.Map{"title": "Edit post", "nav": true, "user": user, "post": post})
}

// ChangePostDetail updates title and description, then returns to the
// page the form was opened from.
func (s *Server) ChangePostDetail(c *fiber.Ctx) error {
	ctx := c.UserContext()
	p := principalFrom(c)

	id, err := parseID(c, "cardId")
	if err != nil {
		return err
	}
	_, err = s.postService.UpdatePost(ctx, service.UpdatePostInput{
		UserID:      p.UserID,
		PostID:      id,
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
	})
	if err != nil {
		switch {
		case isForbidden(err):
			return redirectHome(c)
		case models.HasCode(err, models.CodeValidation):
			current, getErr := s.postService.GetPost(ctx, id)
			if getErr != nil {
				return getErr
			}
			return renderForm(c, "edituserpost", err, fiber.Map{"title": "Edit post", "nav": true, "post": current})
		}
		return err
	}
	return redirectBack(c, "/profile")
}

// DeletePost removes a post the acting user owns, along with its image.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	p := principalFrom(c)

	id, err := parseID(c, "cardid")
	if err != nil {
		return err
	}
	post, err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{UserID: p.UserID, PostID: id})
	if err != nil {
		if isForbidden(err) {
			return redirectHome(c)
		}
		return err
	}
	s.removeUpload(c, post.Image)
	return c.Redirect("/show/posts")
}
