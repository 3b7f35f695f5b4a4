package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/iyedlimem/Flenci-server-side/logger"
	"github.com/iyedlimem/Flenci-server-side/model"
)

type eventRequest struct {
	Title   string    `json:"title"`
	Address string    `json:"address"`
	About   string    `json:"about"`
	Image   string    `json:"image"`
	Date    time.Time `json:"date"`
}

func (req *eventRequest) validate() string {
	if strings.TrimSpace(req.Title) == "" {
		return "Event title is required"
	}
	if strings.TrimSpace(req.Address) == "" {
		return "Event address is required"
	}
	if strings.TrimSpace(req.About) == "" {
		return "Event description is required"
	}
	if req.Date.IsZero() {
		return "Event date is required"
	}
	return ""
}

// CreateEventHandler publishes a new event.
func (h *APIHandler) CreateEventHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := GetUserIDFromContext(r.Context()); err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	event := &model.Event{
		Title:   req.Title,
		Address: req.Address,
		About:   req.About,
		Image:   req.Image,
		Date:    req.Date,
	}
	if err := h.eventRepo.CreateEvent(event); err != nil {
		logger.Error("Failed to create event", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "Failed to create event")
		return
	}
	respondJSON(w, http.StatusCreated, event)
}

// GetEventsHandler lists every event.
func (h *APIHandler) GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	events, err := h.eventRepo.GetAllEvents()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	if events == nil {
		events = []*model.Event{}
	}
	respondJSON(w, http.StatusOK, events)
}

// GetEventHandler returns one event by ID.
func (h *APIHandler) GetEventHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDVar(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid event ID")
		return
	}

	event, err := h.eventRepo.GetEventByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get event")
		return
	}
	if event == nil {
		respondError(w, http.StatusNotFound, "Event not found")
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// UpdateEventHandler updates an event's fields.
func (h *APIHandler) UpdateEventHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := GetUserIDFromContext(r.Context()); err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, err := parseIDVar(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid event ID")
		return
	}

	event, err := h.eventRepo.GetEventByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get event")
		return
	}
	if event == nil {
		respondError(w, http.StatusNotFound, "Event not found")
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	event.Title = req.Title
	event.Address = req.Address
	event.About = req.About
	event.Image = req.Image
	event.Date = req.Date

	if err := h.eventRepo.UpdateEvent(event); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update event")
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// DeleteEventHandler removes an event.
func (h *APIHandler) DeleteEventHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := GetUserIDFromContext(r.Context()); err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, err := parseIDVar(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid event ID")
		return
	}

	if err := h.eventRepo.DeleteEvent(id); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete event")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

// SaveEventHandler toggles the authenticated user's save on an event.
func (h *APIHandler) SaveEventHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id, err := parseIDVar(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid event ID")
		return
	}

	event, err := h.eventRepo.GetEventByID(id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get event")
		return
	}
	if event == nil {
		respondError(w, http.StatusNotFound, "Event not found")
		return
	}

	saved, err := h.eventRepo.IsEventSaved(userID, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to check save state")
		return
	}

	if saved {
		err = h.eventRepo.UnsaveEvent(userID, id)
	} else {
		err = h.eventRepo.SaveEvent(userID, id)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to update save state")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"eventId": id,
		"isSaved": !saved,
	})
}

// GetSavedEventsHandler lists the events the authenticated user has saved.
func (h *APIHandler) GetSavedEventsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	events, err := h.eventRepo.GetSavedEvents(userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list saved events")
		return
	}
	if events == nil {
		events = []*model.Event{}
	}
	respondJSON(w, http.StatusOK, events)
}
