package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/file-hosting-api/internal/constants"
	"github.com/yukikurage/file-hosting-api/internal/dto"
	"github.com/yukikurage/file-hosting-api/internal/identity"
	"github.com/yukikurage/file-hosting-api/internal/models"
)

type AdminHandlerTestSuite struct {
	suite.Suite
	env     *handlerEnv
	handler *AdminHandler
	admin   *models.Profile
}

func (suite *AdminHandlerTestSuite) SetupTest() {
	suite.env = newHandlerEnv(suite.T())
	suite.handler = NewAdminHandler(suite.env.adminService)
	suite.admin = suite.env.createUser(suite.T(), "admin@example.com", "admin", models.RoleAdmin)
}

// adminContext simulates RequireAuth followed by RequireAdmin.
func (suite *AdminHandlerTestSuite) adminContext(method, url string, body any) (*gin.Context, *httptest.ResponseRecorder) {
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		suite.Require().NoError(err)
	}
	c, w := createAuthContext(method, url, raw, suite.admin.AuthUserID)
	c.Set(constants.ContextKeyProfile, suite.admin)
	return c, w
}

func (suite *AdminHandlerTestSuite) TestListUsers() {
	suite.env.createUser(suite.T(), "user@example.com", "user", models.RoleUser)

	c, w := suite.adminContext(http.MethodGet, "/admin/", nil)
	suite.handler.ListUsers(c)

	suite.Require().Equal(http.StatusOK, w.Code)
	var profiles []models.Profile
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &profiles))
	suite.Len(profiles, 2)
}

func (suite *AdminHandlerTestSuite) TestCreateUser_WithAdminRole() {
	c, w := suite.adminContext(http.MethodPost, "/admin/create_user", map[string]string{
		"email":    "second-admin@example.com",
		"password": "password123",
		"username": "second",
		"role":     "admin",
	})
	suite.handler.CreateUser(c)

	suite.Require().Equal(http.StatusCreated, w.Code)
	var response struct {
		Message string      `json:"message"`
		User    dto.UserDTO `json:"user"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	suite.Equal("User created successfully", response.Message)
	suite.Equal(models.RoleAdmin, response.User.Role)
	suite.Equal("second-admin@example.com", response.User.Email)
}

func (suite *AdminHandlerTestSuite) TestCreateUser_Validation() {
	tests := []struct {
		name    string
		body    map[string]string
		message string
	}{
		{"missing username", map[string]string{"email": "x@example.com", "password": "password123"}, "Email, password, and username are required"},
		{"short password", map[string]string{"email": "x@example.com", "password": "123", "username": "x"}, "Password must be at least 6 characters"},
		{"unknown role", map[string]string{"email": "x@example.com", "password": "password123", "username": "x", "role": "root"}, "Role must be user or admin"},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			c, w := suite.adminContext(http.MethodPost, "/admin/create_user", tt.body)
			suite.handler.CreateUser(c)

			suite.Equal(http.StatusBadRequest, w.Code)
			var response map[string]string
			suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
			suite.Equal(tt.message, response["error"])
		})
	}
}

func (suite *AdminHandlerTestSuite) TestDeleteUser_Success() {
	target := suite.env.createUser(suite.T(), "target@example.com", "target", models.RoleUser)
	id := strconv.FormatUint(target.UserID, 10)

	c, w := suite.adminContext(http.MethodDelete, "/admin/delete_user/"+id, nil)
	setID(c, id)
	suite.handler.DeleteUser(c)

	suite.Require().Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"message":"User deleted successfully"}`, w.Body.String())

	_, err := suite.env.profiles.FindByID(context.Background(), target.UserID)
	suite.Error(err)
	_, err = suite.env.provider.SignIn(context.Background(), "target@example.com", "password123")
	suite.ErrorIs(err, identity.ErrInvalidCredentials)
}

func (suite *AdminHandlerTestSuite) TestDeleteUser_Errors() {
	tests := []struct {
		name    string
		id      string
		status  int
		message string
	}{
		{"invalid id", "abc", http.StatusBadRequest, "Invalid user ID"},
		{"not found", "9999", http.StatusNotFound, "User not found"},
		{"self", strconv.FormatUint(suite.admin.UserID, 10), http.StatusBadRequest, "Cannot delete your own account"},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			c, w := suite.adminContext(http.MethodDelete, "/admin/delete_user/"+tt.id, nil)
			setID(c, tt.id)
			suite.handler.DeleteUser(c)

			suite.Equal(tt.status, w.Code)
			var response map[string]string
			suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
			suite.Equal(tt.message, response["error"])
		})
	}
}

func TestAdminHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(AdminHandlerTestSuite))
}
