package ui

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/catalog-admin/internal/admin/catalog"
	custommw "finitefield.org/catalog-admin/internal/admin/httpserver/middleware"
	"finitefield.org/catalog-admin/internal/admin/observability"
	categoriestpl "finitefield.org/catalog-admin/internal/admin/templates/categories"
)

const (
	categoriesList = "categories"

	msgCategorySaveFailed   = "Failed to save category. Please try again."
	msgCategoryDeleteFailed = "Failed to delete category. Please try again."
	msgCategoryLoadFailed   = "Failed to load category. Please try again."
	msgCategoryImageInvalid = "Please select an image file"
)

// CategoriesPage renders the category list with SSR.
func (h *Handlers) CategoriesPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	out := runListPage(h, r, user.Token, categorySource(h.categories))

	basePath := custommw.BasePathFromContext(ctx)
	routes := categoriestpl.NewRoutes(basePath)
	table := categoriestpl.TablePayload(routes, out.State, out.View.Items, errMessage(out.Err))
	page := categoriestpl.BuildPageData(basePath, routes, out.State, table)
	page.Flash = popFlash(r)

	render(w, r, http.StatusOK, categoriestpl.Index(page))
}

// CategoriesTable renders the category table fragment for htmx requests.
func (h *Handlers) CategoriesTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	out := runList(h, r, user.Token, categorySource(h.categories))
	routes := categoriestpl.NewRoutes(custommw.BasePathFromContext(ctx))
	if !finishListFragment(w, routes.Base, out) {
		return
	}
	table := categoriestpl.TablePayload(routes, out.State, out.View.Items, errMessage(out.Err))
	render(w, r, http.StatusOK, categoriestpl.Table(table))
}

// CategoryNew renders an empty category editor.
func (h *Handlers) CategoryNew(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	h.renderCategoryForm(w, r, categoryFormState{form: catalog.CategoryForm{Status: catalog.StatusPublished}}, http.StatusOK, false)
}

// CategoryEdit renders the editor pre-filled with a stored category.
func (h *Handlers) CategoryEdit(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "categoryID"))
	category, ok := h.loadCategory(w, r, user.Token, id)
	if !ok {
		return
	}
	state := categoryFormState{id: id, form: catalog.CategoryFormFromCategory(category), image: category.Thumbnail()}
	h.renderCategoryForm(w, r, state, http.StatusOK, false)
}

// CategoryCreate validates the editor submission, uploads the image and creates the category.
func (h *Handlers) CategoryCreate(w http.ResponseWriter, r *http.Request) {
	h.saveCategory(w, r, "")
}

// CategoryUpdate saves changes to a stored category. An unchanged submission goes straight back
// to the list.
func (h *Handlers) CategoryUpdate(w http.ResponseWriter, r *http.Request) {
	h.saveCategory(w, r, strings.TrimSpace(chi.URLParam(r, "categoryID")))
}

func (h *Handlers) saveCategory(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	logger := observability.FromContext(ctx)
	routes := categoriestpl.NewRoutes(custommw.BasePathFromContext(ctx))

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		logger.Info("categories: parse form failed", zap.Error(err))
		custommw.TriggerToast(w, msgMediaTooLarge, custommw.ToneError)
		w.Header().Set("HX-Reswap", "none")
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}

	state := categoryFormState{id: id, form: catalog.CategoryFormFromValues(r.PostForm)}
	var current catalog.Category
	if id != "" {
		current, ok = h.loadCategory(w, r, user.Token, id)
		if !ok {
			return
		}
		state.image = current.Thumbnail()
	}

	upload := formFile(r, "image")
	if fieldErr := state.form.Validate(); fieldErr != nil {
		state.fieldErr = fieldErr
		h.rejectCategoryForm(w, r, state)
		return
	}
	if fieldErr := state.form.ValidateImage(id == "", upload != nil); fieldErr != nil {
		state.fieldErr = fieldErr
		h.rejectCategoryForm(w, r, state)
		return
	}
	if id != "" && !state.form.ChangedFrom(current, upload != nil) {
		setFlash(r, catalog.MsgCategoryNoChange, custommw.ToneInfo)
		custommw.Redirect(w, r, listReturnURL(r, routes.Base, categoriesList))
		return
	}

	imageURL := ""
	if upload != nil {
		data, contentType, err := readImage(upload)
		if err != nil {
			if !errors.Is(err, errNotImage) {
				logger.Warn("categories: read upload failed", zap.Error(err))
			}
			state.fieldErr = &catalog.FieldError{Field: "image", Message: msgCategoryImageInvalid}
			h.rejectCategoryForm(w, r, state)
			return
		}
		if h.uploader == nil {
			err = errors.New("ui: no image uploader configured")
		} else {
			imageURL, err = h.uploader.Upload(ctx, upload.Filename, contentType, bytes.NewReader(data))
		}
		if err != nil {
			logger.Error("categories: image upload failed", zap.String("file", upload.Filename), zap.Error(err))
			custommw.TriggerToast(w, msgImageUploadFailed, custommw.ToneError)
			h.renderCategoryForm(w, r, state, http.StatusBadGateway, true)
			return
		}
	}

	var err error
	message := catalog.MsgCategoryCreated
	if id == "" {
		_, err = h.categories.Create(ctx, user.Token, state.form.Apply(catalog.Category{}, imageURL))
	} else {
		message = catalog.MsgCategoryUpdated
		_, err = h.categories.Update(ctx, user.Token, id, state.form.Apply(current, imageURL))
	}
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		setFlash(r, catalog.MsgCategoryNotFound, custommw.ToneError)
		custommw.Redirect(w, r, listReturnURL(r, routes.Base, categoriesList))
		return
	case err != nil:
		logger.Error("categories: save failed", zap.String("category_id", id), zap.Error(err))
		custommw.TriggerToast(w, msgCategorySaveFailed, custommw.ToneError)
		h.renderCategoryForm(w, r, state, http.StatusBadGateway, true)
		return
	}

	setFlash(r, message, custommw.ToneSuccess)
	custommw.Redirect(w, r, listReturnURL(r, routes.Base, categoriesList))
}

// CategoryDelete removes a category and answers with the refreshed table.
func (h *Handlers) CategoryDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "categoryID"))

	switch err := h.categories.Delete(ctx, user.Token, id); {
	case errors.Is(err, catalog.ErrNotFound):
		custommw.TriggerToast(w, catalog.MsgCategoryNotFound, custommw.ToneError)
	case err != nil:
		observability.FromContext(ctx).Error("categories: delete failed", zap.String("category_id", id), zap.Error(err))
		custommw.TriggerToast(w, msgCategoryDeleteFailed, custommw.ToneError)
	default:
		custommw.TriggerToast(w, catalog.MsgCategoryDeleted, custommw.ToneSuccess)
	}

	out := runList(h, r, user.Token, categorySource(h.categories))
	routes := categoriestpl.NewRoutes(custommw.BasePathFromContext(ctx))
	if !finishListFragment(w, routes.Base, out) {
		return
	}
	table := categoriestpl.TablePayload(routes, out.State, out.View.Items, errMessage(out.Err))
	render(w, r, http.StatusOK, categoriestpl.Table(table))
}

// categoryFormState is everything the category editor re-renders with.
type categoryFormState struct {
	id       string
	form     catalog.CategoryForm
	image    string
	fieldErr *catalog.FieldError
}

func (h *Handlers) renderCategoryForm(w http.ResponseWriter, r *http.Request, state categoryFormState, status int, fragment bool) {
	basePath := custommw.BasePathFromContext(r.Context())
	routes := categoriestpl.NewRoutes(basePath)
	data := categoriestpl.BuildFormData(basePath, routes, state.id, state.form, state.image, listReturnURL(r, routes.Base, categoriesList))
	data.Error = state.fieldErr
	if fragment {
		render(w, r, status, categoriestpl.FormFragment(data))
		return
	}
	render(w, r, status, categoriestpl.Form(data))
}

func (h *Handlers) rejectCategoryForm(w http.ResponseWriter, r *http.Request, state categoryFormState) {
	custommw.TriggerToast(w, state.fieldErr.Message, custommw.ToneError)
	h.renderCategoryForm(w, r, state, http.StatusUnprocessableEntity, true)
}

// loadCategory fetches a category, answering the request itself when that fails.
func (h *Handlers) loadCategory(w http.ResponseWriter, r *http.Request, token, id string) (catalog.Category, bool) {
	ctx := r.Context()
	category, err := h.categories.Get(ctx, token, id)
	if err == nil {
		return category, true
	}
	if errors.Is(err, catalog.ErrNotFound) {
		setFlash(r, catalog.MsgCategoryNotFound, custommw.ToneError)
		custommw.Redirect(w, r, listReturnURL(r, categoriestpl.NewRoutes(custommw.BasePathFromContext(ctx)).Base, categoriesList))
		return catalog.Category{}, false
	}
	observability.FromContext(ctx).Error("categories: get failed", zap.String("category_id", id), zap.Error(err))
	http.Error(w, msgCategoryLoadFailed, http.StatusBadGateway)
	return catalog.Category{}, false
}

// formFile returns the uploaded file under field, or nil when none was chosen.
func formFile(r *http.Request, field string) *multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 || files[0].Size == 0 {
		return nil
	}
	return files[0]
}
