package catalog

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Toast messages shared by the form handlers.
const (
	MsgProductCreated   = "Product created successfully!"
	MsgProductUpdated   = "Product updated successfully!"
	MsgProductDeleted   = "Product deleted successfully!"
	MsgProductConflict  = "This product was changed by someone else. Reload it and try again."
	MsgCategoryCreated  = "Category created successfully!"
	MsgCategoryUpdated  = "Category updated successfully!"
	MsgCategoryDeleted  = "Category deleted successfully!"
	MsgCategoryNoChange = "No changes detected. Navigating back to category list."
	MsgCategoryNotFound = "Category not found"
	MsgProductNotFound  = "Product not found"
)

var plainText = bluemonday.StrictPolicy()

// FieldError reports the first failed form field and the message shown to the user.
type FieldError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return e.Message
}

// ProductForm is the raw product editor submission.
type ProductForm struct {
	Name          string
	Description   string
	Quantity      string
	Price         string
	SKU           string
	Barcode       string
	DiscountType  string
	DiscountValue string
	TaxClass      string
	VATAmount     string
	CategoryID    string
	Category      string
	Status        string
	LastModified  string
}

// ProductFormFromValues reads the product editor's fields.
func ProductFormFromValues(v url.Values) ProductForm {
	get := func(key string) string { return strings.TrimSpace(v.Get(key)) }
	return ProductForm{
		Name:          get("productName"),
		Description:   get("description"),
		Quantity:      get("quantity"),
		Price:         get("price"),
		SKU:           get("sku"),
		Barcode:       get("barcode"),
		DiscountType:  get("discountType"),
		DiscountValue: get("discountValue"),
		TaxClass:      get("tax_class"),
		VATAmount:     get("vatAmount"),
		CategoryID:    get("categoryID"),
		Category:      get("category"),
		Status:        get("status"),
		LastModified:  get("lastModified"),
	}
}

// ProductFormFromProduct pre-fills the editor from a stored product.
func ProductFormFromProduct(p Product) ProductForm {
	return ProductForm{
		Name:          p.Name,
		Description:   p.Description,
		Quantity:      strconv.Itoa(p.Quantity),
		Price:         strconv.FormatFloat(p.Price, 'f', -1, 64),
		SKU:           p.SKU,
		Barcode:       p.Barcode,
		DiscountType:  p.DiscountType,
		DiscountValue: formatFloat(p.DiscountValue),
		TaxClass:      p.TaxClass,
		VATAmount:     formatFloat(p.VATAmount),
		CategoryID:    p.CategoryID,
		Category:      p.Category,
		Status:        NormalizeStatus(p.Status),
		LastModified:  p.LastModified,
	}
}

// Validate checks the required fields in display order and reports the first failure.
func (f ProductForm) Validate() *FieldError {
	switch {
	case f.Name == "":
		return &FieldError{Field: "productName", Message: "Product Name is required"}
	case f.Price == "":
		return &FieldError{Field: "price", Message: "Price is required"}
	case f.SKU == "":
		return &FieldError{Field: "sku", Message: "SKU is required"}
	case f.Quantity == "":
		return &FieldError{Field: "quantity", Message: "Stock is required"}
	}
	if _, err := strconv.ParseFloat(f.Price, 64); err != nil {
		return &FieldError{Field: "price", Message: "Price must be a number"}
	}
	if n, err := strconv.Atoi(f.Quantity); err != nil || n < 0 {
		return &FieldError{Field: "quantity", Message: "Stock must be a whole number"}
	}
	return nil
}

// Product converts the form into a new product with the given images. Stock mirrors quantity.
func (f ProductForm) Product(images ProductImages) Product {
	return f.Apply(Product{}, images)
}

// Apply writes the form values and images onto base, keeping fields the form does not edit.
func (f ProductForm) Apply(base Product, images ProductImages) Product {
	qty := parseIntDefault(f.Quantity)
	status := strings.TrimSpace(f.Status)
	if status == "" {
		status = StatusDraft
	}
	base.Name = f.Name
	base.Description = strings.TrimSpace(plainText.Sanitize(f.Description))
	base.Stock = qty
	base.Quantity = qty
	base.Price = parseFloatDefault(f.Price)
	base.SKU = f.SKU
	base.Barcode = f.Barcode
	base.DiscountType = f.DiscountType
	base.DiscountValue = parseFloatDefault(f.DiscountValue)
	base.TaxClass = f.TaxClass
	base.VATAmount = parseFloatDefault(f.VATAmount)
	base.CategoryID = f.CategoryID
	base.Category = f.Category
	base.Status = NormalizeStatus(status)
	base.Images = images
	return base
}

// CategoryForm is the raw category editor submission.
type CategoryForm struct {
	Name        string
	Description string
	Status      string
}

// CategoryFormFromValues reads the category editor's fields.
func CategoryFormFromValues(v url.Values) CategoryForm {
	return CategoryForm{
		Name:        strings.TrimSpace(v.Get("name")),
		Description: strings.TrimSpace(v.Get("description")),
		Status:      strings.TrimSpace(v.Get("status")),
	}
}

// CategoryFormFromCategory pre-fills the editor from a stored category.
func CategoryFormFromCategory(c Category) CategoryForm {
	return CategoryForm{Name: c.Name, Description: c.Description, Status: NormalizeStatus(c.Status)}
}

// Validate checks name then description.
func (f CategoryForm) Validate() *FieldError {
	switch {
	case f.Name == "":
		return &FieldError{Field: "name", Message: "Please enter category name"}
	case f.Description == "":
		return &FieldError{Field: "description", Message: "Please enter category description"}
	}
	return nil
}

// ValidateImage requires an image when creating.
func (f CategoryForm) ValidateImage(creating, hasUpload bool) *FieldError {
	if creating && !hasUpload {
		return &FieldError{Field: "image", Message: "Please select an image"}
	}
	return nil
}

// ChangedFrom reports whether the submission differs from the stored category.
func (f CategoryForm) ChangedFrom(c Category, hasUpload bool) bool {
	if hasUpload {
		return true
	}
	if f.Name != strings.TrimSpace(c.Name) || f.Description != strings.TrimSpace(c.Description) {
		return true
	}
	return f.Status != "" && NormalizeStatus(f.Status) != NormalizeStatus(c.Status)
}

// Apply writes the form values onto base, keeping fields the form does not edit.
func (f CategoryForm) Apply(base Category, image string) Category {
	base.Name = f.Name
	base.Description = strings.TrimSpace(plainText.Sanitize(f.Description))
	if f.Status != "" {
		base.Status = NormalizeStatus(f.Status)
	}
	if strings.TrimSpace(image) != "" {
		base.Image = image
	}
	return base
}

func parseIntDefault(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}

func parseFloatDefault(raw string) float64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return n
}

func formatFloat(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
