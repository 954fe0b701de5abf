package httpapi

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/server/models"
	"github.com/gofiber/fiber/v2"
)

const maxRecentActivities = 10

// --- request DTOs ---

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (r createUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 64)),
		validation.Field(&r.Password, validation.Length(0, 128)),
		validation.Field(&r.Role, validation.In("", models.RoleAdmin, models.RoleUser)),
	)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type passwordResetRequest struct {
	Username    string `json:"username"`
	NewPassword string `json:"new_password"`
}

func (r passwordResetRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(1, 128)),
	)
}

type uploadDocumentRequest struct {
	Title   string `json:"title"`
	OCRText string `json:"ocr_text"`
}

func (r uploadDocumentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 256)),
	)
}

// --- handlers ---

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleInitAdmin creates the bootstrap admin. No token is required, but the
// operation only works once, while the store is still empty.
func (s *Server) handleInitAdmin(c *fiber.Ctx) error {
	var req createUserRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return s.respondError(c, err)
	}

	user, err := s.users.InitAdmin(c.UserContext(), req.Username, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return s.fail(c, fiber.StatusConflict, "Admin already initialized")
		}
		if errors.Is(err, common.ErrorInvalidRole) {
			return s.fail(c, fiber.StatusBadRequest, "First account must be admin")
		}
		return s.respondError(c, err)
	}

	s.logger.Info(c.UserContext(), "Initial admin created", "username", user.Username)
	return c.JSON(fiber.Map{"msg": fmt.Sprintf("Initial admin '%s' created successfully", user.Username)})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return s.respondError(c, err)
	}

	token, err := s.users.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return s.fail(c, fiber.StatusUnauthorized, "Invalid username or password")
		}
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{"access_token": token, "token_type": "bearer"})
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	var req createUserRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return s.respondError(c, err)
	}

	user, err := s.users.Register(c.UserContext(), req.Username, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return s.fail(c, fiber.StatusConflict, "Username already exists")
		}
		return s.respondError(c, err)
	}

	admin := currentUser(c)
	s.logger.Info(c.UserContext(), "User registered", "username", user.Username, "by", admin.Username)
	return c.JSON(fiber.Map{"msg": fmt.Sprintf("User '%s' created successfully by admin %s", user.Username, admin.Username)})
}

func (s *Server) handleResetPassword(c *fiber.Ctx) error {
	var req passwordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return s.respondError(c, err)
	}

	if err := s.users.ResetPassword(c.UserContext(), req.Username, req.NewPassword); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return s.fail(c, fiber.StatusNotFound, "User not found")
		}
		return s.respondError(c, err)
	}

	s.logger.Info(c.UserContext(), "Password reset", "username", req.Username)
	return c.JSON(fiber.Map{"msg": fmt.Sprintf("Password for '%s' reset successfully", req.Username)})
}

func (s *Server) handleMe(c *fiber.Ctx) error {
	user := currentUser(c)
	return c.JSON(fiber.Map{"username": user.Username, "role": user.Role})
}

func (s *Server) handleUsersList(c *fiber.Ctx) error {
	users, err := s.users.ListUsers(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}

func (s *Server) handleUsersCount(c *fiber.Ctx) error {
	count, err := s.users.CountUsers(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}

func (s *Server) handleRecentActivities(c *fiber.Ctx) error {
	activities, err := s.users.RecentActivities(c.UserContext(), maxRecentActivities)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"activities": activities})
}

func (s *Server) handleDocumentUpload(c *fiber.Ctx) error {
	var req uploadDocumentRequest
	if err := c.BodyParser(&req); err != nil {
		return s.fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := req.Validate(); err != nil {
		return s.respondError(c, err)
	}

	doc, uploadURL, err := s.documents.Upload(c.UserContext(), req.Title, req.OCRText)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "document": doc, "upload_url": uploadURL})
}

func (s *Server) handleDocumentsCount(c *fiber.Ctx) error {
	count, err := s.documents.Count(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(fiber.Map{"count": count})
}

func (s *Server) handleDocumentsList(c *fiber.Ctx) error {
	docs, err := s.documents.List(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(docs)
}

func (s *Server) handleDocumentGet(c *fiber.Ctx) error {
	doc, fileURL, err := s.documents.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return s.fail(c, fiber.StatusNotFound, "Document not found")
		}
		return s.respondError(c, err)
	}

	return c.JSON(fiber.Map{"document": doc, "file_url": fileURL})
}
