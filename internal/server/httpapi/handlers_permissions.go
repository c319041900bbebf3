package httpapi

import (
	"docvault/internal/common"
	"docvault/internal/server/models"

	"github.com/gofiber/fiber/v2"
)

type grantRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (s *Server) handleGrantPermission(c *fiber.Ctx) error {
	var req grantRequest
	if err := c.BodyParser(&req); err != nil {
		return common.E(common.KindInvalidInput, "malformed request body")
	}
	if req.UserID == "" {
		return common.E(common.KindInvalidInput, "user_id is required")
	}

	perm, err := s.permissions.Grant(c.UserContext(), c.Params("id"), actorID(c),
		req.UserID, models.Role(req.Role))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(permissionResponse{
		UserID:    perm.UserID,
		Role:      string(perm.Role),
		GrantedBy: perm.GrantedBy,
	})
}

func (s *Server) handleListPermissions(c *fiber.Ctx) error {
	entries, err := s.permissions.List(c.UserContext(), c.Params("id"), actorID(c))
	if err != nil {
		return err
	}

	resp := make([]permissionResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, permissionResponse{
			UserID:    e.UserID,
			Role:      string(e.Role),
			GrantedBy: e.GrantedBy,
			Implicit:  e.Implicit,
		})
	}
	return c.JSON(fiber.Map{"permissions": resp})
}

type updatePermissionRequest struct {
	Role string `json:"role"`
}

func (s *Server) handleUpdatePermission(c *fiber.Ctx) error {
	var req updatePermissionRequest
	if err := c.BodyParser(&req); err != nil {
		return common.E(common.KindInvalidInput, "malformed request body")
	}

	err := s.permissions.UpdateRole(c.UserContext(), c.Params("id"), actorID(c),
		c.Params("userID"), models.Role(req.Role))
	if err != nil {
		return err
	}

	return c.JSON(permissionResponse{
		UserID: c.Params("userID"),
		Role:   req.Role,
	})
}

func (s *Server) handleRevokePermission(c *fiber.Ctx) error {
	err := s.permissions.Revoke(c.UserContext(), c.Params("id"), actorID(c), c.Params("userID"))
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
