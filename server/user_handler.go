package server

import (
	"net/http"

	"github.com/iyedlimem/Flenci-server-side/logger"
	"github.com/iyedlimem/Flenci-server-side/model"
)

// GetUsersHandler lists every registered user except the caller.
func (h *APIHandler) GetUsersHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	users, err := h.userRepo.GetAllUsersExcept(userID)
	if err != nil {
		logger.Error("Failed to list users", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}
	if users == nil {
		users = []*model.User{}
	}
	respondJSON(w, http.StatusOK, users)
}

// GetUserHandler returns one user's profile with their releases and liked
// tracks, the shape the artist page renders.
func (h *APIHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDVar(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	h.respondUserProfile(w, id)
}

// MeHandler returns the authenticated user's own profile.
func (h *APIHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	h.respondUserProfile(w, userID)
}

func (h *APIHandler) respondUserProfile(w http.ResponseWriter, id int64) {
	user, err := h.userRepo.GetUserByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get user")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}

	releases, err := h.trackRepo.GetTracksByUserID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get releases")
		return
	}
	liked, err := h.trackRepo.GetLikedTracks(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get liked tracks")
		return
	}
	if releases == nil {
		releases = []*model.Track{}
	}
	if liked == nil {
		liked = []*model.Track{}
	}

	respondJSON(w, http.StatusOK, &model.UserProfile{
		User:        *user,
		Releases:    releases,
		LikedTracks: liked,
	})
}
