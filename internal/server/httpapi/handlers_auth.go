package httpapi

import (
	"docvault/internal/common"
	"docvault/internal/server/services"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return common.E(common.KindInvalidInput, "malformed request body")
	}

	user, err := s.users.Register(c.UserContext(), services.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	tokenResponse
	User userResponse `json:"user"`
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return common.E(common.KindInvalidInput, "malformed request body")
	}

	user, pair, err := s.users.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(loginResponse{
		tokenResponse: toTokenResponse(pair),
		User:          toUserResponse(user),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleRefresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return common.E(common.KindInvalidInput, "malformed request body")
	}
	if req.RefreshToken == "" {
		return common.E(common.KindInvalidInput, "refresh_token is required")
	}

	pair, err := s.users.RefreshToken(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}

	return c.JSON(toTokenResponse(pair))
}

// handleLogout revokes the presented refresh token. The token itself is the
// credential here, so the route does not require a Bearer header.
func (s *Server) handleLogout(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return common.E(common.KindInvalidInput, "malformed request body")
	}
	if req.RefreshToken == "" {
		return common.E(common.KindInvalidInput, "refresh_token is required")
	}

	if err := s.users.Logout(c.UserContext(), req.RefreshToken); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleMe(c *fiber.Ctx) error {
	user, err := s.users.GetByID(c.UserContext(), actorID(c))
	if err != nil {
		return err
	}
	return c.JSON(toUserResponse(user))
}
