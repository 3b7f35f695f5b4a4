package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/iyedlimem/Flenci-server-side/logger"
	"github.com/iyedlimem/Flenci-server-side/model"
)

type playlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreatePlaylistHandler creates a playlist owned by the authenticated user.
func (h *APIHandler) CreatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "Playlist name is required")
		return
	}

	playlist := &model.Playlist{
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   userID,
		Tracks:      []*model.Track{},
	}
	id, err := h.playlistRepo.CreatePlaylist(playlist)
	if err != nil {
		logger.Error("Failed to create playlist", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to create playlist")
		return
	}
	playlist.ID = id

	respondJSON(w, http.StatusCreated, playlist)
}

// GetPlaylistsHandler lists the authenticated user's playlists.
func (h *APIHandler) GetPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	playlists, err := h.playlistRepo.GetPlaylistsByUserID(userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list playlists")
		return
	}
	if playlists == nil {
		playlists = []*model.Playlist{}
	}
	respondJSON(w, http.StatusOK, playlists)
}

// GetPlaylistHandler returns one playlist with its tracks and comments.
func (h *APIHandler) GetPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDVar(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid playlist ID")
		return
	}

	playlist, err := h.playlistRepo.GetPlaylistByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get playlist")
		return
	}
	if playlist == nil {
		respondError(w, http.StatusNotFound, "Playlist not found")
		return
	}

	comments, err := h.commentRepo.GetCommentsByPlaylistID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get comments")
		return
	}
	playlist.Comments = comments

	respondJSON(w, http.StatusOK, playlist)
}

// UpdatePlaylistHandler renames a playlist. Only the creator may update it.
func (h *APIHandler) UpdatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlist, ok := h.playlistForOwner(w, r)
	if !ok {
		return
	}

	var req playlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) != "" {
		playlist.Name = req.Name
	}
	playlist.Description = req.Description

	if err := h.playlistRepo.UpdatePlaylist(playlist); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update playlist")
		return
	}
	respondJSON(w, http.StatusOK, playlist)
}

// DeletePlaylistHandler removes a playlist with its memberships and comments.
func (h *APIHandler) DeletePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlist, ok := h.playlistForOwner(w, r)
	if !ok {
		return
	}

	if err := h.commentRepo.DeleteCommentsByPlaylistID(playlist.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete playlist comments")
		return
	}
	if err := h.playlistRepo.DeletePlaylist(playlist.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete playlist")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": playlist.ID})
}

// AddTrackToPlaylistHandler appends a track to a playlist.
func (h *APIHandler) AddTrackToPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlist, ok := h.playlistForOwner(w, r)
	if !ok {
		return
	}
	trackID, err := parseIDVar(r, "trackId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid track ID")
		return
	}

	track, err := h.trackRepo.GetTrackByID(trackID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get track")
		return
	}
	if track == nil {
		respondError(w, http.StatusNotFound, "Track not found")
		return
	}

	if err := h.playlistRepo.AddTrackToPlaylist(playlist.ID, trackID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to add track to playlist")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"playlistId": playlist.ID,
		"trackId":    trackID,
	})
}

// RemoveTrackFromPlaylistHandler removes a track from a playlist.
func (h *APIHandler) RemoveTrackFromPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlist, ok := h.playlistForOwner(w, r)
	if !ok {
		return
	}
	trackID, err := parseIDVar(r, "trackId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid track ID")
		return
	}

	if err := h.playlistRepo.RemoveTrackFromPlaylist(playlist.ID, trackID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to remove track from playlist")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"playlistId": playlist.ID,
		"removed":    trackID,
	})
}

type commentRequest struct {
	Content string `json:"content"`
}

// AddCommentHandler attaches a comment to a playlist.
func (h *APIHandler) AddCommentHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	playlistID, err := parseIDVar(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid playlist ID")
		return
	}

	playlist, err := h.playlistRepo.GetPlaylistByID(playlistID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get playlist")
		return
	}
	if playlist == nil {
		respondError(w, http.StatusNotFound, "Playlist not found")
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		respondError(w, http.StatusBadRequest, "Comment content is required")
		return
	}

	comment := &model.Comment{
		PlaylistID: playlistID,
		UserID:     userID,
		Content:    req.Content,
	}
	if err := h.commentRepo.CreateComment(comment); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create comment")
		return
	}
	respondJSON(w, http.StatusCreated, comment)
}

// DeleteCommentHandler removes a comment. The author or the playlist creator
// may delete it.
func (h *APIHandler) DeleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	commentID, err := parseIDVar(r, "commentId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid comment ID")
		return
	}

	comment, err := h.commentRepo.GetCommentByID(commentID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get comment")
		return
	}
	if comment == nil {
		respondError(w, http.StatusNotFound, "Comment not found")
		return
	}

	if comment.UserID != userID {
		playlist, err := h.playlistRepo.GetPlaylistByID(comment.PlaylistID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to get playlist")
			return
		}
		if playlist == nil || playlist.CreatedBy != userID {
			respondError(w, http.StatusForbidden, "Not allowed to delete this comment")
			return
		}
	}

	if err := h.commentRepo.DeleteComment(commentID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete comment")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": commentID})
}

// playlistForOwner loads the playlist from the route and verifies the caller
// created it. Writes the error response itself when the check fails.
func (h *APIHandler) playlistForOwner(w http.ResponseWriter, r *http.Request) (*model.Playlist, bool) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	id, err := parseIDVar(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid playlist ID")
		return nil, false
	}

	playlist, err := h.playlistRepo.GetPlaylistByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get playlist")
		return nil, false
	}
	if playlist == nil {
		respondError(w, http.StatusNotFound, "Playlist not found")
		return nil, false
	}
	if playlist.CreatedBy != userID {
		respondError(w, http.StatusForbidden, "Only the creator can modify a playlist")
		return nil, false
	}
	return playlist, true
}
