package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iyedlimem/Flenci-server-side/config"
	"github.com/iyedlimem/Flenci-server-side/core/id3"
	"github.com/iyedlimem/Flenci-server-side/core/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondPipelineErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", pipeline.NewError(pipeline.KindValidation, "graph", "bad input"), http.StatusBadRequest},
		{"range", pipeline.NewError(pipeline.KindRange, "graph", "start beyond end"), http.StatusBadRequest},
		{"not found", pipeline.NewError(pipeline.KindNotFound, "stage", "no such asset"), http.StatusNotFound},
		{"malformed", pipeline.NewError(pipeline.KindMalformedInput, "metadata", "truncated tag"), http.StatusUnprocessableEntity},
		{"timeout", pipeline.NewError(pipeline.KindTimeout, "normalize", "engine too slow"), http.StatusGatewayTimeout},
		{"transcode", pipeline.NewError(pipeline.KindTranscode, "normalize", "encoder failed"), http.StatusInternalServerError},
		{"filter graph", pipeline.NewError(pipeline.KindFilterGraph, "graph", "bad chain"), http.StatusInternalServerError},
		{"unclassified", errors.New("plain failure"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondPipelineError(rec, tc.err)

			assert.Equal(t, tc.status, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.EqualValues(t, tc.status, body["statusCode"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestRespondPipelineErrorHidesUnderlyingCause(t *testing.T) {
	err := &pipeline.Error{
		Kind:  pipeline.KindIO,
		Stage: "stage",
		Err:   errors.New("open /tmp/flenci-staging/3f2c.mp3: no such file or directory"),
	}

	rec := httptest.NewRecorder()
	respondPipelineError(rec, err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "/tmp/", "response bodies must not leak filesystem paths")
}

func newAssemblyHandler() *APIHandler {
	return &APIHandler{cfg: &config.Config{
		DefaultCoverURL: "http://localhost:8080/static/covers/cover.svg",
	}}
}

func TestAssembleTrackResponseFullTag(t *testing.T) {
	h := newAssemblyHandler()
	res := &pipeline.Result{
		File:     "audio/abc.mp3",
		MP3URL:   "http://localhost:8080/static/audio/abc.mp3",
		CoverURL: "http://localhost:8080/static/covers/abc.png",
		Meta: &id3.Metadata{
			Artist:   "Ada",
			Title:    "Loop",
			Album:    "Tapes",
			Genre:    "Electronic",
			Duration: 183,
		},
	}

	body := h.assembleTrackResponse(res, "uploader")

	assert.Equal(t, "audio/abc.mp3", body["file"])
	assert.Equal(t, "Ada", body["artist"])
	assert.Equal(t, "Loop", body["name"])
	assert.Equal(t, "183", body["length"])
	assert.Equal(t, "Tapes", body["album"])
	assert.Equal(t, "Electronic", body["genre"])
	assert.Equal(t, res.CoverURL, body["Image"])
	assert.Equal(t, res.MP3URL, body["mp3"])
}

func TestAssembleTrackResponseWholeSecondLength(t *testing.T) {
	h := newAssemblyHandler()
	res := &pipeline.Result{Meta: &id3.Metadata{Duration: 183.5}}

	body := h.assembleTrackResponse(res, "uploader")
	assert.Equal(t, "184", body["length"], "length is reported in whole seconds")
}

func TestAssembleTrackResponsePlaceholders(t *testing.T) {
	h := newAssemblyHandler()
	res := &pipeline.Result{
		File:   "audio/abc.mp3",
		MP3URL: "http://localhost:8080/static/audio/abc.mp3",
		Meta:   &id3.Metadata{},
	}

	body := h.assembleTrackResponse(res, "uploader")

	assert.Equal(t, "uploader", body["artist"], "missing artist falls back to the uploader's username")
	assert.Equal(t, "Unknown", body["name"])
	assert.Equal(t, "Unknown", body["length"])
	assert.Equal(t, "Unknown", body["album"])
	assert.Equal(t, "Unknown", body["genre"])
	assert.Equal(t, h.cfg.DefaultCoverURL, body["Image"], "missing cover falls back to the default cover URL")
}

func TestAssembleTrackResponseAnonymousArtist(t *testing.T) {
	h := newAssemblyHandler()
	res := &pipeline.Result{Meta: &id3.Metadata{}}

	body := h.assembleTrackResponse(res, "")
	assert.Equal(t, "Unknown", body["artist"])
}
