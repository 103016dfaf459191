package ui

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	custommw "finitefield.org/catalog-admin/internal/admin/httpserver/middleware"
	"finitefield.org/catalog-admin/internal/admin/media"
	"finitefield.org/catalog-admin/internal/admin/observability"
	productstpl "finitefield.org/catalog-admin/internal/admin/templates/products"
)

const (
	msgMediaStale     = "The image list is out of date. Reload the page and try again."
	msgMediaTooLarge  = "The selected images are too large."
	msgMediaNotImage  = "Only image files can be uploaded."
	msgMediaBadIndex  = "That image no longer exists."
	sniffLen          = 512
	stagedMediaMaxAge = "private, max-age=300"
)

// ProductMediaAdd stages the picked files and re-renders the image grid. Files beyond the free
// slots are rejected with a warning.
func (h *Handlers) ProductMediaAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	logger := observability.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		logger.Info("media: parse upload failed", zap.Error(err))
		rejectMedia(w, msgMediaTooLarge, http.StatusRequestEntityTooLarge)
		return
	}
	sealed, mgr, ok := h.mediaFromRequest(w, r, user)
	if !ok {
		return
	}

	var headers []*multipart.FileHeader
	if r.MultipartForm != nil {
		headers = r.MultipartForm.File["images"]
	}
	remaining := mgr.Remaining()
	files := make([]media.File, 0, len(headers))
	notImage := 0
	for _, fh := range headers {
		if len(files) >= remaining {
			// Add rejects these; they are never staged.
			files = append(files, media.File{Name: fh.Filename, Size: fh.Size})
			continue
		}
		f, err := h.stageUpload(r, fh)
		if errors.Is(err, errNotImage) {
			notImage++
			continue
		}
		if err != nil {
			logger.Error("media: stage upload failed", zap.String("file", fh.Filename), zap.Error(err))
			custommw.TriggerToast(w, msgImageUploadFailed, custommw.ToneError)
			h.renderMediaGrid(w, r, sealed, mgr, http.StatusBadGateway)
			return
		}
		files = append(files, f)
	}

	res := mgr.Add(files)
	switch {
	case res.Message != "":
		custommw.TriggerToast(w, res.Message, custommw.ToneWarning)
	case notImage > 0:
		custommw.TriggerToast(w, msgMediaNotImage, custommw.ToneWarning)
	}
	h.renderMediaGrid(w, r, sealed, mgr, http.StatusOK)
}

// ProductMediaRemove drops one tile by display index. Stored images are only marked removed
// until the product is saved.
func (h *Handlers) ProductMediaRemove(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse the request.", http.StatusBadRequest)
		return
	}
	sealed, mgr, ok := h.mediaFromRequest(w, r, user)
	if !ok {
		return
	}
	index, err := strconv.Atoi(strings.TrimSpace(r.FormValue("index")))
	if err != nil {
		index = -1
	}
	item, err := mgr.Remove(index)
	if err != nil {
		custommw.TriggerToast(w, msgMediaBadIndex, custommw.ToneWarning)
		h.renderMediaGrid(w, r, sealed, mgr, http.StatusOK)
		return
	}
	if item.Kind == media.KindPending {
		h.releaseStaged(r, []media.File{item.File})
	}
	h.renderMediaGrid(w, r, sealed, mgr, http.StatusOK)
}

// ProductMediaClear removes every tile.
func (h *Handlers) ProductMediaClear(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse the request.", http.StatusBadRequest)
		return
	}
	sealed, mgr, ok := h.mediaFromRequest(w, r, user)
	if !ok {
		return
	}
	h.releaseStaged(r, mgr.RemoveAll())
	h.renderMediaGrid(w, r, sealed, mgr, http.StatusOK)
}

// StagedMedia serves the bytes of a pending upload so the grid can preview it.
func (h *Handlers) StagedMedia(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireUser(w, r); !ok {
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "stagingID"))
	data, err := h.staging.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, media.ErrStagedFileMissing) {
			observability.FromContext(ctx).Warn("media: load staged file failed", zap.String("staging_id", id), zap.Error(err))
		}
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", stagedMediaMaxAge)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = w.Write(data)
}

var errNotImage = errors.New("ui: upload is not an image")

// stageUpload reads one uploaded file, checks it is an image and puts it in staging.
func (h *Handlers) stageUpload(r *http.Request, fh *multipart.FileHeader) (media.File, error) {
	data, contentType, err := readImage(fh)
	if err != nil {
		return media.File{}, err
	}
	id, err := h.staging.Put(r.Context(), data)
	if err != nil {
		return media.File{}, err
	}
	return media.File{StagingID: id, Name: fh.Filename, ContentType: contentType, Size: int64(len(data))}, nil
}

// readImage loads an uploaded file and sniffs its content type, ignoring what the client claimed.
func readImage(fh *multipart.FileHeader) ([]byte, string, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	contentType := http.DetectContentType(data[:min(len(data), sniffLen)])
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", errNotImage
	}
	return data, contentType, nil
}

// mediaFromRequest restores the image manager from the grid's signed snapshot field. Snapshots
// that were altered, expired or issued to another user are rejected.
func (h *Handlers) mediaFromRequest(w http.ResponseWriter, r *http.Request, user *custommw.User) (media.Sealed, *media.Manager, bool) {
	sealed, mgr, err := h.snapshots.Restore(r.FormValue("media"), user.UID)
	if err != nil {
		observability.FromContext(r.Context()).Info("media: invalid snapshot", zap.String("uid", user.UID), zap.Error(err))
		rejectMedia(w, msgMediaStale, http.StatusBadRequest)
		return media.Sealed{}, nil, false
	}
	return sealed, mgr, true
}

// mediaPayload seals the manager state for the editor that owns sealed and builds the grid data.
func (h *Handlers) mediaPayload(r *http.Request, sealed media.Sealed, mgr *media.Manager) productstpl.MediaData {
	basePath := custommw.BasePathFromContext(r.Context())
	sealed.Snapshot = mgr.Snapshot()
	raw, err := h.snapshots.Seal(sealed)
	if err != nil {
		observability.FromContext(r.Context()).Error("media: seal snapshot failed", zap.String("product_id", sealed.ProductID), zap.Error(err))
	}
	return productstpl.MediaPayload(basePath, raw, mgr, stagedPreviewURL(basePath))
}

func (h *Handlers) renderMediaGrid(w http.ResponseWriter, r *http.Request, sealed media.Sealed, mgr *media.Manager, status int) {
	render(w, r, status, productstpl.MediaGrid(h.mediaPayload(r, sealed, mgr)))
}

// rejectMedia answers with a toast and leaves the grid untouched.
func rejectMedia(w http.ResponseWriter, message string, status int) {
	custommw.TriggerToast(w, message, custommw.ToneError)
	w.Header().Set("HX-Reswap", "none")
	w.WriteHeader(status)
}

func stagedPreviewURL(basePath string) func(media.File) string {
	return func(f media.File) string {
		return joinBasePath(basePath, "/media/staged/"+url.PathEscape(f.StagingID))
	}
}
