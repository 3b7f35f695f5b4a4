package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iyedlimem/Flenci-server-side/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUserRepo is an in-memory repository.UserRepository.
type fakeUserRepo struct {
	users []*model.User
}

func (f *fakeUserRepo) CreateUser(user *model.User) (int64, error) {
	f.users = append(f.users, user)
	return int64(len(f.users)), nil
}

func (f *fakeUserRepo) GetUserByID(id int64) (*model.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetUserByUsername(username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetUserByEmail(email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetAllUsersExcept(userID int64) ([]*model.User, error) {
	var out []*model.User
	for _, u := range f.users {
		if u.ID != userID {
			out = append(out, u)
		}
	}
	return out, nil
}

func authedRequest(method, target string, userID int64, username string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ctx := context.WithValue(req.Context(), "userID", userID)
	ctx = context.WithValue(ctx, "username", username)
	return req.WithContext(ctx)
}

func TestGetUsersExcludesCaller(t *testing.T) {
	h := &APIHandler{userRepo: &fakeUserRepo{users: []*model.User{
		{ID: 1, Username: "caller", Email: "caller@example.com"},
		{ID: 2, Username: "other", Email: "other@example.com"},
		{ID: 3, Username: "third", Email: "third@example.com"},
	}}}

	rec := httptest.NewRecorder()
	h.GetUsersHandler(rec, authedRequest(http.MethodGet, "/api/users", 1, "caller"))

	require.Equal(t, http.StatusOK, rec.Code)

	var users []*model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 2)
	for _, u := range users {
		assert.NotEqual(t, int64(1), u.ID, "the caller must not appear in the users listing")
	}
}

func TestGetUsersRequiresAuth(t *testing.T) {
	h := &APIHandler{userRepo: &fakeUserRepo{}}

	rec := httptest.NewRecorder()
	h.GetUsersHandler(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
