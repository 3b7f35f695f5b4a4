package server

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/iyedlimem/Flenci-server-side/core/audio"
	"github.com/iyedlimem/Flenci-server-side/core/pipeline"
	"github.com/iyedlimem/Flenci-server-side/logger"
	"github.com/iyedlimem/Flenci-server-side/model"

	"github.com/gorilla/mux"
)

const maxUploadMemory = 64 << 20 // 64MB

// assembleTrackResponse builds the response shape the web client consumes
// from a pipeline result. Missing tag fields fall back to "Unknown", a
// missing artist falls back to the uploader's username, and a missing or
// failed cover falls back to the default cover URL.
func (h *APIHandler) assembleTrackResponse(res *pipeline.Result, username string) map[string]interface{} {
	artist := res.Meta.Artist
	if artist == "" {
		artist = username
	}
	if artist == "" {
		artist = "Unknown"
	}

	name := res.Meta.Title
	if name == "" {
		name = "Unknown"
	}
	album := res.Meta.Album
	if album == "" {
		album = "Unknown"
	}
	genre := res.Meta.Genre
	if genre == "" {
		genre = "Unknown"
	}

	length := "Unknown"
	if res.Meta.Duration > 0 {
		// Whole seconds; the client renders this verbatim.
		length = strconv.FormatInt(int64(math.Round(res.Meta.Duration)), 10)
	}

	image := res.CoverURL
	if image == "" {
		image = h.cfg.DefaultCoverURL
	}

	return map[string]interface{}{
		"file":   res.File,
		"artist": artist,
		"name":   name,
		"length": length,
		"Image":  image,
		"album":  album,
		"genre":  genre,
		"mp3":    res.MP3URL,
	}
}

// UploadTrackHandler accepts a multipart audio upload, runs it through the
// ingestion pipeline, and returns the stored asset with its metadata.
// Expected form field: "track" holding the audio file.
func (h *APIHandler) UploadTrackHandler(w http.ResponseWriter, r *http.Request) {
	username, err := GetUsernameFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondError(w, http.StatusBadRequest, "Failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("track")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing 'track' in form")
		return
	}
	defer file.Close()

	res, err := h.orchestrator.ProcessUpload(r.Context(), file, header.Filename)
	if err != nil {
		logger.Error("Upload pipeline failed",
			logger.String("filename", header.Filename),
			logger.ErrorField(err))
		respondPipelineError(w, err)
		return
	}
	if res.CoverErr != nil {
		logger.Warn("Cover emit failed, falling back to default cover",
			logger.String("jobId", res.JobID),
			logger.ErrorField(res.CoverErr))
	}

	respondJSON(w, http.StatusOK, h.assembleTrackResponse(res, username))
}

type mergeRequest struct {
	FirstTrack  string  `json:"firstTrack"`
	SecondTrack string  `json:"secondTrack"`
	Fade        float64 `json:"fade"`
	Tempo       float64 `json:"tempo"`
	Pitch       float64 `json:"pitch"`
	Volume      float64 `json:"volume"`
}

// MergeTracksHandler composes two stored tracks through the mix filter chain.
func (h *APIHandler) MergeTracksHandler(w http.ResponseWriter, r *http.Request) {
	username, err := GetUsernameFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.FirstTrack) == "" || strings.TrimSpace(req.SecondTrack) == "" {
		respondError(w, http.StatusBadRequest, "firstTrack and secondTrack are required")
		return
	}

	params := audio.MixParams{
		FadeIn: req.Fade,
		Tempo:  req.Tempo,
		Pitch:  req.Pitch,
		Gain:   req.Volume,
	}
	params.ApplyDefaults()

	res, err := h.orchestrator.Mix(r.Context(), pipeline.MixRequest{
		Sources: []string{req.FirstTrack, req.SecondTrack},
		Params:  params,
	})
	if err != nil {
		logger.Error("Merge pipeline failed", logger.ErrorField(err))
		respondPipelineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.assembleTrackResponse(res, username))
}

type trimRequest struct {
	Track     string  `json:"track"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
}

// TrimTrackHandler extracts a range from a stored track. The endTime field
// carries the length of the extracted range in seconds, counted from
// startTime, and the client depends on that reading.
func (h *APIHandler) TrimTrackHandler(w http.ResponseWriter, r *http.Request) {
	username, err := GetUsernameFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req trimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Track) == "" {
		respondError(w, http.StatusBadRequest, "track is required")
		return
	}

	res, err := h.orchestrator.Trim(r.Context(), pipeline.TrimRequest{
		Source: req.Track,
		Start:  req.StartTime,
		Span:   req.EndTime,
	})
	if err != nil {
		logger.Error("Trim pipeline failed", logger.ErrorField(err))
		respondPipelineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.assembleTrackResponse(res, username))
}

type createTrackRequest struct {
	Artist string  `json:"artist"`
	Name   string  `json:"name"`
	Length float64 `json:"length"`
	Image  string  `json:"Image"`
	Album  string  `json:"album"`
	Genre  string  `json:"genre"`
	MP3    string  `json:"mp3"`
	File   string  `json:"file"`
}

// CreateTrackHandler publishes a track record referencing an already-stored
// asset.
func (h *APIHandler) CreateTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	username, _ := GetUsernameFromContext(r.Context())

	var req createTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.File) == "" || strings.TrimSpace(req.MP3) == "" {
		respondError(w, http.StatusBadRequest, "name, file and mp3 are required")
		return
	}
	if strings.TrimSpace(req.Genre) == "" {
		respondError(w, http.StatusBadRequest, "genre is required")
		return
	}

	track := &model.Track{
		UserID: userID,
		Artist: req.Artist,
		Name:   req.Name,
		Length: req.Length,
		Image:  req.Image,
		Album:  req.Album,
		Genre:  req.Genre,
		MP3:    req.MP3,
		File:   req.File,
	}
	if track.Artist == "" {
		track.Artist = username
	}
	if track.Image == "" {
		track.Image = h.cfg.DefaultCoverURL
	}

	id, err := h.trackRepo.CreateTrack(track)
	if err != nil {
		logger.Error("Failed to create track", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to create track")
		return
	}
	track.ID = id

	respondJSON(w, http.StatusCreated, track)
}

// GetTracksHandler lists every published track.
func (h *APIHandler) GetTracksHandler(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.trackRepo.GetAllTracks()
	if err != nil {
		logger.Error("Failed to list tracks", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to list tracks")
		return
	}
	if tracks == nil {
		tracks = []*model.Track{}
	}
	respondJSON(w, http.StatusOK, tracks)
}

// GetTrackHandler returns one track by ID.
func (h *APIHandler) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDVar(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid track ID")
		return
	}

	track, err := h.trackRepo.GetTrackByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get track")
		return
	}
	if track == nil {
		respondError(w, http.StatusNotFound, "Track not found")
		return
	}
	respondJSON(w, http.StatusOK, track)
}

// DeleteTrackHandler removes a track. Only the publisher may delete it.
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, err := parseIDVar(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid track ID")
		return
	}

	track, err := h.trackRepo.GetTrackByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get track")
		return
	}
	if track == nil {
		respondError(w, http.StatusNotFound, "Track not found")
		return
	}
	if track.UserID != userID {
		respondError(w, http.StatusForbidden, "Only the publisher can delete a track")
		return
	}

	if err := h.trackRepo.DeleteTrack(id); err != nil {
		logger.Error("Failed to delete track", logger.Int64("trackId", id), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to delete track")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

// GetReleasesHandler lists the authenticated user's published tracks.
func (h *APIHandler) GetReleasesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	tracks, err := h.trackRepo.GetTracksByUserID(userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list releases")
		return
	}
	if tracks == nil {
		tracks = []*model.Track{}
	}
	respondJSON(w, http.StatusOK, tracks)
}

// LikeTrackHandler toggles the authenticated user's like on a track and
// reports the resulting state.
func (h *APIHandler) LikeTrackHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, err := parseIDVar(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid track ID")
		return
	}

	track, err := h.trackRepo.GetTrackByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get track")
		return
	}
	if track == nil {
		respondError(w, http.StatusNotFound, "Track not found")
		return
	}

	liked, err := h.trackRepo.IsTrackLiked(userID, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to check like state")
		return
	}

	if liked {
		err = h.trackRepo.UnlikeTrack(userID, id)
	} else {
		err = h.trackRepo.LikeTrack(userID, id)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update like state")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"trackId": id,
		"isLiked": !liked,
	})
}

// GetLikedTracksHandler lists the tracks the authenticated user has liked.
func (h *APIHandler) GetLikedTracksHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	tracks, err := h.trackRepo.GetLikedTracks(userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list liked tracks")
		return
	}
	if tracks == nil {
		tracks = []*model.Track{}
	}
	respondJSON(w, http.StatusOK, tracks)
}

func parseIDVar(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}
