package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/file-hosting-api/internal/constants"
	"github.com/yukikurage/file-hosting-api/internal/identity/local"
	"github.com/yukikurage/file-hosting-api/internal/models"
	"github.com/yukikurage/file-hosting-api/internal/repository"
	"github.com/yukikurage/file-hosting-api/internal/services"
	"github.com/yukikurage/file-hosting-api/internal/storage"
	"github.com/yukikurage/file-hosting-api/internal/testutil"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// handlerEnv wires the real services over sqlite, the local provider and a
// temporary disk store.
type handlerEnv struct {
	db           *gorm.DB
	provider     *local.Provider
	profiles     repository.ProfileRepository
	files        repository.FileRepository
	store        *storage.DiskStore
	authService  *services.AuthService
	fileService  *services.FileService
	adminService *services.AdminService
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	db := testutil.NewSQLiteDB(t)
	provider := local.New(db, local.Config{
		Secret:     []byte("handler-test-secret"),
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, provider.Migrate())

	store, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	profiles := repository.NewProfileRepository(db)
	files := repository.NewFileRepository(db)
	authService := services.NewAuthService(provider, profiles)

	return &handlerEnv{
		db:           db,
		provider:     provider,
		profiles:     profiles,
		files:        files,
		store:        store,
		authService:  authService,
		fileService:  services.NewFileService(files, store, nil),
		adminService: services.NewAdminService(authService, profiles, provider),
	}
}

func (env *handlerEnv) createUser(t *testing.T, email, username string, role models.Role) *models.Profile {
	t.Helper()
	profile, err := env.authService.Register(context.Background(), services.RegisterInput{
		Email:    email,
		Password: "password123",
		Username: username,
		Role:     role,
	})
	require.NoError(t, err)
	return profile
}

func (env *handlerEnv) storeObject(t *testing.T, filename, content string) *storage.Object {
	t.Helper()
	path, err := env.store.Save(context.Background(), filename, strings.NewReader(content), int64(len(content)), "text/plain")
	require.NoError(t, err)
	return &storage.Object{
		Filename:     filename,
		OriginalName: "report.txt",
		Path:         path,
		Size:         int64(len(content)),
		MimeType:     "text/plain",
	}
}

func (env *handlerEnv) createFile(t *testing.T, owner *models.Profile, filename, content string) *models.File {
	t.Helper()
	file, err := env.fileService.RecordUpload(context.Background(), owner.UserID, env.storeObject(t, filename, content))
	require.NoError(t, err)
	return file
}

// createAuthContext builds a context as RequireAuth leaves it.
func createAuthContext(method, url string, body []byte, subjectID string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	if subjectID != "" {
		c.Set(constants.ContextKeySubjectID, subjectID)
	}
	return c, w
}

func setID(c *gin.Context, id string) {
	c.Params = gin.Params{{Key: "id", Value: id}}
}
