package ui

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/catalog-admin/internal/admin/catalog"
	custommw "finitefield.org/catalog-admin/internal/admin/httpserver/middleware"
	"finitefield.org/catalog-admin/internal/admin/media"
	"finitefield.org/catalog-admin/internal/admin/observability"
	productstpl "finitefield.org/catalog-admin/internal/admin/templates/products"
)

const (
	productsList = "products"

	msgProductSaveFailed   = "Failed to save product. Please try again."
	msgProductDeleteFailed = "Failed to delete product. Please try again."
	msgProductLoadFailed   = "Failed to load product. Please try again."
	msgImageUploadFailed   = "Image upload failed. Please try again."
	msgMediaChanged        = "The product images were changed elsewhere. Review them and save again."
)

// ProductsPage renders the product list with SSR.
func (h *Handlers) ProductsPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	out := runListPage(h, r, user.Token, productSource(h.products))

	basePath := custommw.BasePathFromContext(ctx)
	routes := productstpl.NewRoutes(basePath)
	table := productstpl.TablePayload(routes, out.State, out.View.Items, errMessage(out.Err))
	page := productstpl.BuildPageData(basePath, routes, out.State, table)
	page.Flash = popFlash(r)

	render(w, r, http.StatusOK, productstpl.Index(page))
}

// ProductsTable renders the product table fragment for htmx requests.
func (h *Handlers) ProductsTable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	out := runList(h, r, user.Token, productSource(h.products))
	routes := productstpl.NewRoutes(custommw.BasePathFromContext(ctx))
	if !finishListFragment(w, routes.Base, out) {
		return
	}
	table := productstpl.TablePayload(routes, out.State, out.View.Items, errMessage(out.Err))
	render(w, r, http.StatusOK, productstpl.Table(table))
}

// ProductNew renders an empty product editor.
func (h *Handlers) ProductNew(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	form := catalog.ProductForm{Status: catalog.StatusDraft}
	h.renderProductForm(w, r, user, productFormState{form: form, media: media.NewManager(media.ModeAdd)}, http.StatusOK, false)
}

// ProductEdit renders the editor pre-filled with a stored product.
func (h *Handlers) ProductEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "productID"))
	routes := productstpl.NewRoutes(custommw.BasePathFromContext(ctx))

	product, err := h.products.Get(ctx, user.Token, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			setFlash(r, catalog.MsgProductNotFound, custommw.ToneError)
			custommw.Redirect(w, r, listReturnURL(r, routes.Base, productsList))
			return
		}
		observability.FromContext(ctx).Error("products: get failed", zap.String("product_id", id), zap.Error(err))
		http.Error(w, msgProductLoadFailed, http.StatusBadGateway)
		return
	}

	mgr := media.NewManager(media.ModeEdit)
	mgr.LoadExisting(product.Images)
	h.renderProductForm(w, r, user, productFormState{id: id, form: catalog.ProductFormFromProduct(product), media: mgr}, http.StatusOK, false)
}

// ProductCreate validates the editor submission, uploads pending images and creates the product.
func (h *Handlers) ProductCreate(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, "")
}

// ProductUpdate saves the editor submission over a stored product unless it changed meanwhile.
func (h *Handlers) ProductUpdate(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, strings.TrimSpace(chi.URLParam(r, "productID")))
}

func (h *Handlers) saveProduct(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	logger := observability.FromContext(ctx)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse the request.", http.StatusBadRequest)
		return
	}
	routes := productstpl.NewRoutes(custommw.BasePathFromContext(ctx))

	state := productFormState{id: id, form: catalog.ProductFormFromValues(r.PostForm)}
	var stored catalog.Product
	if id != "" {
		p, err := h.products.Get(ctx, user.Token, id)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				setFlash(r, catalog.MsgProductNotFound, custommw.ToneError)
				custommw.Redirect(w, r, listReturnURL(r, routes.Base, productsList))
				return
			}
			logger.Error("products: get failed", zap.String("product_id", id), zap.Error(err))
			rejectMedia(w, msgProductLoadFailed, http.StatusBadGateway)
			return
		}
		stored = p
	}

	sealed, mgr, err := h.snapshots.Restore(r.PostForm.Get("media"), user.UID)
	if err == nil && sealed.ProductID != id {
		err = fmt.Errorf("%w: issued for product %q", media.ErrSnapshotForeign, sealed.ProductID)
	}
	if err != nil {
		logger.Warn("products: rejected media snapshot", zap.String("product_id", id), zap.String("uid", user.UID), zap.Error(err))
		rejectMedia(w, msgMediaStale, http.StatusBadRequest)
		return
	}
	state.media = mgr
	if state.form.CategoryID != "" {
		if c, err := h.categories.Get(ctx, user.Token, state.form.CategoryID); err == nil {
			state.form.Category = c.Name
		}
	}

	if id != "" {
		if stored.ChangedSince(state.form.LastModified) {
			custommw.TriggerToast(w, catalog.MsgProductConflict, custommw.ToneWarning)
			h.renderProductForm(w, r, user, state, http.StatusConflict, true)
			return
		}
		if !mgr.MatchesStored(stored.Images) {
			h.releaseStaged(r, mgr.Rebase(stored.Images))
			state.mediaErr = msgMediaChanged
			custommw.TriggerToast(w, msgMediaChanged, custommw.ToneWarning)
			h.renderProductForm(w, r, user, state, http.StatusConflict, true)
			return
		}
	}

	if fieldErr := state.form.Validate(); fieldErr != nil {
		state.fieldErr = fieldErr
		custommw.TriggerToast(w, fieldErr.Message, custommw.ToneError)
		h.renderProductForm(w, r, user, state, http.StatusUnprocessableEntity, true)
		return
	}
	if err := mgr.Validate(); err != nil {
		state.mediaErr = err.Error()
		custommw.TriggerToast(w, err.Error(), custommw.ToneError)
		h.renderProductForm(w, r, user, state, http.StatusUnprocessableEntity, true)
		return
	}

	pending := mgr.PendingFiles()
	urls, err := media.UploadAll(ctx, h.uploader, h.staging, pending)
	if err != nil {
		logger.Error("products: image upload failed", zap.Int("files", len(pending)), zap.Error(err))
		state.mediaErr = msgImageUploadFailed
		custommw.TriggerToast(w, msgImageUploadFailed, custommw.ToneError)
		h.renderProductForm(w, r, user, state, http.StatusBadGateway, true)
		return
	}
	images, err := mgr.Resolve(urls)
	if err != nil {
		state.mediaErr = err.Error()
		custommw.TriggerToast(w, err.Error(), custommw.ToneError)
		h.renderProductForm(w, r, user, state, http.StatusUnprocessableEntity, true)
		return
	}

	product := state.form.Apply(stored, images)
	message := catalog.MsgProductCreated
	if id == "" {
		_, err = h.products.Create(ctx, user.Token, product)
	} else {
		message = catalog.MsgProductUpdated
		_, err = h.products.UpdateIfUnchanged(ctx, user.Token, id, product, state.form.LastModified)
	}
	switch {
	case errors.Is(err, catalog.ErrConcurrencyConflict):
		custommw.TriggerToast(w, catalog.MsgProductConflict, custommw.ToneWarning)
		h.renderProductForm(w, r, user, state, http.StatusConflict, true)
		return
	case errors.Is(err, catalog.ErrNotFound):
		setFlash(r, catalog.MsgProductNotFound, custommw.ToneError)
		custommw.Redirect(w, r, listReturnURL(r, routes.Base, productsList))
		return
	case err != nil:
		logger.Error("products: save failed", zap.String("product_id", id), zap.Error(err))
		custommw.TriggerToast(w, msgProductSaveFailed, custommw.ToneError)
		h.renderProductForm(w, r, user, state, http.StatusBadGateway, true)
		return
	}

	h.releaseStaged(r, pending)
	setFlash(r, message, custommw.ToneSuccess)
	custommw.Redirect(w, r, listReturnURL(r, routes.Base, productsList))
}

// ProductDelete removes a product and answers with the refreshed table.
func (h *Handlers) ProductDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "productID"))

	switch err := h.products.Delete(ctx, user.Token, id); {
	case errors.Is(err, catalog.ErrNotFound):
		custommw.TriggerToast(w, catalog.MsgProductNotFound, custommw.ToneError)
	case err != nil:
		observability.FromContext(ctx).Error("products: delete failed", zap.String("product_id", id), zap.Error(err))
		custommw.TriggerToast(w, msgProductDeleteFailed, custommw.ToneError)
	default:
		custommw.TriggerToast(w, catalog.MsgProductDeleted, custommw.ToneSuccess)
	}

	out := runList(h, r, user.Token, productSource(h.products))
	routes := productstpl.NewRoutes(custommw.BasePathFromContext(ctx))
	if !finishListFragment(w, routes.Base, out) {
		return
	}
	table := productstpl.TablePayload(routes, out.State, out.View.Items, errMessage(out.Err))
	render(w, r, http.StatusOK, productstpl.Table(table))
}

// productFormState is everything the product editor re-renders with.
type productFormState struct {
	id       string
	form     catalog.ProductForm
	media    *media.Manager
	fieldErr *catalog.FieldError
	mediaErr string
}

func (h *Handlers) renderProductForm(w http.ResponseWriter, r *http.Request, user *custommw.User, state productFormState, status int, fragment bool) {
	ctx := r.Context()
	basePath := custommw.BasePathFromContext(ctx)
	routes := productstpl.NewRoutes(basePath)

	var choices []productstpl.CategoryChoice
	categories, err := h.categories.All(ctx, user.Token)
	if err != nil {
		observability.FromContext(ctx).Warn("products: load category choices failed", zap.Error(err))
	}
	for _, c := range categories {
		choices = append(choices, productstpl.CategoryChoice{ID: c.ID.String(), Name: c.Name})
	}

	mediaData := h.mediaPayload(r, media.Sealed{Owner: user.UID, ProductID: state.id}, state.media)
	mediaData.Error = state.mediaErr
	data := productstpl.BuildFormData(basePath, routes, state.id, state.form, choices, mediaData, listReturnURL(r, routes.Base, productsList))
	data.Error = state.fieldErr

	if fragment {
		render(w, r, status, productstpl.FormFragment(data))
		return
	}
	render(w, r, status, productstpl.Form(data))
}

func (h *Handlers) releaseStaged(r *http.Request, files []media.File) {
	if len(files) == 0 {
		return
	}
	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.StagingID)
	}
	if err := h.staging.Delete(r.Context(), ids...); err != nil {
		observability.FromContext(r.Context()).Warn("media: release staged files failed", zap.Strings("ids", ids), zap.Error(err))
	}
}
