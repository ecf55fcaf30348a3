// Package videoapi exposes the video catalog over HTTP: listing with
// pagination and search, publishing, detail updates, publish toggling and
// deletion. Mutations are owner-only.
package videoapi

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	authapi "github.com/Myash21/vidtube/internal/auth/api"
	"github.com/Myash21/vidtube/internal/media"
	"github.com/Myash21/vidtube/internal/video"
)

// Config bounds request and upload sizes for the video routes.
type Config struct {
	MaxBodyBytes   int64
	MaxUploadBytes int64
}

// Handler wires the /api/v1/videos endpoints to the catalog and object
// stores. Authentication is delegated to the shared gate.
type Handler struct {
	log  *slog.Logger
	cfg  Config
	gate *authapi.Gate

	videos  video.Store
	objects media.Store
}

// NewHandler constructs a video Handler.
func NewHandler(log *slog.Logger, cfg Config, gate *authapi.Gate, videos video.Store, objects media.Store) (*Handler, error) {
	if gate == nil || videos == nil || objects == nil {
		return nil, errors.New("videoapi: nil dependency")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 200 << 20
	}
	return &Handler{log: log, cfg: cfg, gate: gate, videos: videos, objects: objects}, nil
}

// Register wires the video routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("GET /api/v1/videos", h.gate.Optional(http.HandlerFunc(h.handleList)))
	mux.Handle("POST /api/v1/videos", h.gate.Require(http.HandlerFunc(h.handlePublish)))
	mux.Handle("GET /api/v1/videos/{id}", h.gate.Optional(http.HandlerFunc(h.handleGet)))
	mux.Handle("PATCH /api/v1/videos/{id}", h.gate.Require(http.HandlerFunc(h.handleUpdate)))
	mux.Handle("DELETE /api/v1/videos/{id}", h.gate.Require(http.HandlerFunc(h.handleDelete)))
	mux.Handle("PATCH /api/v1/videos/{id}/toggle-publish", h.gate.Require(http.HandlerFunc(h.handleTogglePublish)))
}

// ---- handlers ----

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := video.ListParams{
		Page:     atoiDefault(q.Get("page"), 1),
		Limit:    atoiDefault(q.Get("limit"), 0),
		Query:    strings.TrimSpace(q.Get("query")),
		SortBy:   strings.TrimSpace(q.Get("sortBy")),
		SortType: strings.TrimSpace(q.Get("sortType")),
		OwnerID:  strings.TrimSpace(q.Get("owner")),
	}
	if acct, ok := authapi.AccountFrom(r.Context()); ok {
		params.ViewerID = acct.ID
	}

	page, err := h.videos.List(r.Context(), params)
	if err != nil {
		h.log.Error("video.list.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeData(w, http.StatusOK, page, "videos fetched successfully")
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	acct, _ := authapi.AccountFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	duration, _ := strconv.ParseFloat(strings.TrimSpace(r.FormValue("duration")), 64)

	ctx := r.Context()

	videoObj, ok := h.uploadFormFile(ctx, w, r, "videoFile")
	if !ok {
		return
	}
	thumbObj, ok := h.uploadFormFile(ctx, w, r, "thumbnail")
	if !ok {
		h.deleteObject(ctx, videoObj.ID)
		return
	}

	created, err := h.videos.Create(ctx, video.CreateInput{
		OwnerID:           acct.ID,
		Title:             title,
		Description:       r.FormValue("description"),
		VideoURL:          videoObj.URL,
		VideoObjectID:     videoObj.ID,
		ThumbnailURL:      thumbObj.URL,
		ThumbnailObjectID: thumbObj.ID,
		Duration:          duration,
		Now:               time.Now().UTC(),
	})
	if err != nil {
		h.deleteObject(ctx, videoObj.ID)
		h.deleteObject(ctx, thumbObj.ID)
		if errors.Is(err, video.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "invalid input")
			return
		}
		h.log.Error("video.publish.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.log.Info("video.publish.ok", "video_id", created.ID, "owner_id", acct.ID)
	writeData(w, http.StatusCreated, created, "video published successfully")
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	v, err := h.videos.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondLookupError(w, "video.get", err)
		return
	}

	viewerID := ""
	if acct, ok := authapi.AccountFrom(r.Context()); ok {
		viewerID = acct.ID
	}
	if !v.IsPublished && v.OwnerID != viewerID {
		// Unpublished videos are indistinguishable from missing ones.
		writeError(w, http.StatusNotFound, "video not found")
		return
	}

	if err := h.videos.IncrementViews(r.Context(), v.ID); err != nil {
		h.log.Error("video.views.fail", "video_id", v.ID, "err", err)
	} else {
		v.Views++
	}

	writeData(w, http.StatusOK, v, "video fetched successfully")
}

type updateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	v, ok := h.ownedVideo(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	in := video.UpdateInput{}
	var newThumb media.Object

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		if _, ok := r.MultipartForm.Value["title"]; ok {
			t := r.FormValue("title")
			in.Title = &t
		}
		if _, ok := r.MultipartForm.Value["description"]; ok {
			d := r.FormValue("description")
			in.Description = &d
		}
		if file, header, err := r.FormFile("thumbnail"); err == nil {
			obj, uerr := h.objects.Upload(ctx, header.Filename, header.Header.Get("Content-Type"), file)
			_ = file.Close()
			if uerr != nil {
				h.log.Error("video.update.upload.fail", "err", uerr)
				writeError(w, http.StatusInternalServerError, "file upload failed")
				return
			}
			newThumb = obj
			in.ThumbnailURL = &newThumb.URL
			in.ThumbnailObjectID = &newThumb.ID
		}
	} else {
		var req updateRequest
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		in.Title = req.Title
		in.Description = req.Description
	}

	if in.Title == nil && in.Description == nil && in.ThumbnailURL == nil {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	updated, err := h.videos.UpdateDetails(ctx, v.ID, in)
	if err != nil {
		h.deleteObject(ctx, newThumb.ID)
		switch {
		case errors.Is(err, video.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid input")
		case errors.Is(err, video.ErrNotFound):
			writeError(w, http.StatusNotFound, "video not found")
		default:
			h.log.Error("video.update.fail", "video_id", v.ID, "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	if newThumb.ID != "" && v.ThumbnailObjectID != "" && v.ThumbnailObjectID != newThumb.ID {
		h.deleteObject(ctx, v.ThumbnailObjectID)
	}

	writeData(w, http.StatusOK, updated, "video updated successfully")
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	v, ok := h.ownedVideo(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	deleted, err := h.videos.Delete(ctx, v.ID)
	if err != nil {
		h.respondLookupError(w, "video.delete", err)
		return
	}

	h.deleteObject(ctx, deleted.VideoObjectID)
	h.deleteObject(ctx, deleted.ThumbnailObjectID)

	writeData(w, http.StatusOK, struct{}{}, "video deleted successfully")
}

func (h *Handler) handleTogglePublish(w http.ResponseWriter, r *http.Request) {
	v, ok := h.ownedVideo(w, r)
	if !ok {
		return
	}

	toggled, err := h.videos.TogglePublish(r.Context(), v.ID)
	if err != nil {
		h.respondLookupError(w, "video.toggle_publish", err)
		return
	}
	writeData(w, http.StatusOK, toggled, "publish state toggled")
}

// ---- helpers ----

// ownedVideo resolves the path id and enforces that the authenticated account
// owns it. Non-owners get a 403 for videos they can see and a 404 otherwise.
func (h *Handler) ownedVideo(w http.ResponseWriter, r *http.Request) (video.Video, bool) {
	acct, _ := authapi.AccountFrom(r.Context())

	v, err := h.videos.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondLookupError(w, "video.lookup", err)
		return video.Video{}, false
	}
	if v.OwnerID != acct.ID {
		if !v.IsPublished {
			writeError(w, http.StatusNotFound, "video not found")
		} else {
			writeError(w, http.StatusForbidden, "only the owner can modify this video")
		}
		return video.Video{}, false
	}
	return v, true
}

func (h *Handler) respondLookupError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, video.ErrNotFound) {
		writeError(w, http.StatusNotFound, "video not found")
		return
	}
	h.log.Error(op+".fail", "err", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func (h *Handler) uploadFormFile(ctx context.Context, w http.ResponseWriter, r *http.Request, field string) (media.Object, bool) {
	file, header, err := r.FormFile(field)
	if err != nil {
		writeError(w, http.StatusBadRequest, field+" file is required")
		return media.Object{}, false
	}
	defer func() { _ = file.Close() }()

	obj, err := h.objects.Upload(ctx, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.log.Error("video.upload.fail", "field", field, "err", err)
		writeError(w, http.StatusInternalServerError, "file upload failed")
		return media.Object{}, false
	}
	return obj, true
}

func (h *Handler) deleteObject(ctx context.Context, id string) {
	if id == "" {
		return
	}
	if err := h.objects.Delete(ctx, id); err != nil && !errors.Is(err, media.ErrNotFound) {
		h.log.Error("video.object_delete.fail", "object_id", id, "err", err)
	}
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}
