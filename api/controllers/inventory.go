package controllers

import (
	"mime/multipart"
	"net/http"

	"github.com/angelmondragon/backoffice-api/api/responses"
	"github.com/angelmondragon/backoffice-api/api/validators"
	"github.com/angelmondragon/backoffice-api/internal/inventory"
	"github.com/angelmondragon/backoffice-api/pkg/logger"
)

const (
	imagesField         = "images"
	multipartMemory     = 32 << 20
	inventoryIDParam    = "id"
	inventoryResource   = "Item"
	inventoryDeletedMsg = "Item removed"
)

func InventoryList(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func InventoryGet(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, inventoryIDParam, inventoryResource)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// InventoryCreate accepts multipart form data with one or more "images" files.
func InventoryCreate(svc inventory.Service, maxBody int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form, err := parseForm(w, r, maxBody)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := inventory.CreateInput{
			Name:        deref(validators.FormString(form, "name")),
			Location:    deref(validators.FormString(form, "location")),
			Description: deref(validators.FormString(form, "description")),
		}
		if input.Quantity, err = validators.FormInt(form, "quantity"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.Price, err = validators.FormFloat(form, "price"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Create(r.Context(), input, fileSources(validators.FormFiles(form, imagesField)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// InventoryUpdate applies only the fields present in the form. A single
// "images" file replaces the stored images.
func InventoryUpdate(svc inventory.Service, maxBody int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, inventoryIDParam, inventoryResource)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		form, err := parseForm(w, r, maxBody)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		patch := inventory.UpdateInput{
			Name:        validators.FormString(form, "name"),
			Location:    validators.FormString(form, "location"),
			Description: validators.FormString(form, "description"),
		}
		if patch.Quantity, err = validators.FormInt(form, "quantity"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if patch.Price, err = validators.FormFloat(form, "price"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var file inventory.FileSource
		if files := validators.FormFiles(form, imagesField); len(files) > 0 {
			file = files[0]
		}

		item, err := svc.Update(r.Context(), id, patch, file)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func InventoryDelete(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, inventoryIDParam, inventoryResource)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"message": inventoryDeletedMsg})
	}
}

func parseForm(w http.ResponseWriter, r *http.Request, maxBody int64) (*multipart.Form, error) {
	if maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	}
	form, err := validators.ParseMultipartForm(r, multipartMemory)
	if err != nil {
		return nil, err
	}
	return form, nil
}

func fileSources(headers []*multipart.FileHeader) []inventory.FileSource {
	out := make([]inventory.FileSource, 0, len(headers))
	for _, h := range headers {
		out = append(out, h)
	}
	return out
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
