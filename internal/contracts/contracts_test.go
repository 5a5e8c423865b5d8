package contracts

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GFB-Team3/backend/internal/apperr"
	"github.com/GFB-Team3/backend/internal/models"
)

func bindJSON(t *testing.T, body string, target any) error {
	t.Helper()
	gin.SetMode(gin.TestMode)
	RegisterValidation()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c.ShouldBindJSON(target)
}

func TestSignUpRequestReportsJSONFieldName(t *testing.T) {
	var req SignUpRequest
	err := bindJSON(t, `{"email":"a@example.com","password":"pw"}`, &req)
	require.Error(t, err)

	appErr := BindingError(err)
	assert.Equal(t, apperr.KindBadRequest, appErr.Kind)
	assert.Equal(t, "username", appErr.Field)
	assert.Equal(t, "username is required", appErr.Message)
}

func TestSignUpRequestRejectsInvalidEmail(t *testing.T) {
	var req SignUpRequest
	err := bindJSON(t, `{"email":"nope","username":"a","password":"pw"}`, &req)
	require.Error(t, err)

	appErr := BindingError(err)
	assert.Equal(t, "email", appErr.Field)
}

func TestUserUpdateRequestAllowsAbsentUsername(t *testing.T) {
	var req UserUpdateRequest
	require.NoError(t, bindJSON(t, `{}`, &req))
	assert.Nil(t, req.Username)

	err := bindJSON(t, `{"username":""}`, &req)
	require.Error(t, err)
	assert.Equal(t, "username", BindingError(err).Field)
}

func TestBindingErrorOnMalformedBody(t *testing.T) {
	var req UserIDRequest
	err := bindJSON(t, `{"user_id":`, &req)
	require.Error(t, err)

	appErr := BindingError(err)
	assert.Equal(t, apperr.KindBadRequest, appErr.Kind)
	assert.Equal(t, "Malformed request body", appErr.Message)

	err = bindJSON(t, `{"user_id":"seven"}`, &req)
	require.Error(t, err)
	assert.Equal(t, "user_id", BindingError(err).Field)
}

func TestPinResponseKeepsNullFields(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	resp := NewPinResponse(models.Pin{ID: 3, OwnerID: 1, Title: "t", LikeCount: 2, CreatedAt: now, UpdatedAt: now})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Contains(t, out, "content")
	assert.Nil(t, out["content"])
	assert.Nil(t, out["image"])
	assert.EqualValues(t, 3, out["pin_id"])
	assert.EqualValues(t, 1, out["user_id"])
	assert.EqualValues(t, 2, out["like_count"])
}

func TestUserResponseOmitsDigest(t *testing.T) {
	raw, err := json.Marshal(NewUserResponse(models.User{ID: 1, Email: "a@example.com", Username: "a", PasswordHash: "secret"}))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
	assert.NotContains(t, string(raw), "password")
}

func TestListResponsesAreNeverNil(t *testing.T) {
	assert.NotNil(t, NewPinResponses(nil))
	assert.NotNil(t, NewLikeResponses(nil))
	assert.NotNil(t, NewCommentResponses(nil))
}
