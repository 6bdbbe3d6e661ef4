package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"
	"github.com/go-chi/render"

	"github.com/mbolis/quick-forms/app"
	"github.com/mbolis/quick-forms/database"
	"github.com/mbolis/quick-forms/httpx"
	"github.com/mbolis/quick-forms/log"
	"github.com/mbolis/quick-forms/model"
	"github.com/mbolis/quick-forms/richtext"
	"github.com/mbolis/quick-forms/sanitize"
	"github.com/mbolis/quick-forms/storage"
)

func currentUser(r *http.Request) string {
	user, _ := r.Context().Value(oauth.CredentialContext).(string)
	return user
}

// fillFieldIDs gives fresh ids to fields submitted without one.
func fillFieldIDs(form *model.Schema) {
	for i := range form.Fields {
		if form.Fields[i].ID == "" {
			form.Fields[i].ID = model.NewFieldID()
		}
	}
}

func CreateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		form := model.Schema{}
		err := render.DecodeJSON(r.Body, &form)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		fillFieldIDs(&form)
		if err = model.Validate(form); err != nil {
			httpx.LogValidation(w, r, "create_form.validate", err)
			return
		}

		form.AcceptingResponses = true
		form.CreatedBy = currentUser(r)

		stored, err := database.InsertForm(r.Context(), app.DB, form)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_form", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, stored)
	}
}

type formSummary struct {
	ID                  string            `json:"id"`
	Version             int               `json:"version"`
	Title               string            `json:"title"`
	AcceptingResponses  bool              `json:"accepting_responses"`
	EventDate           *time.Time        `json:"event_date,omitempty"`
	CreatedBy           string            `json:"created_by,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	DescriptionPreviews richtext.Previews `json:"description_previews"`
}

func ListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		forms, err := database.ListForms(r.Context(), app.DB)
		if err != nil {
			httpx.LogInternalError(w, "db.get_forms", err)
			return
		}

		summaries := make([]formSummary, len(forms))
		for i, f := range forms {
			summaries[i] = formSummary{
				ID:                  f.ID,
				Version:             f.Version,
				Title:               sanitize.Sanitize(f.Title),
				AcceptingResponses:  f.AcceptingResponses,
				EventDate:           f.EventDate,
				CreatedBy:           f.CreatedBy,
				CreatedAt:           f.CreatedAt,
				DescriptionPreviews: richtext.PreviewImages(f.Description, app.PreviewImages),
			}
		}

		render.JSON(w, r, map[string]any{
			"forms": summaries,
		})
	}
}

// GetFormById returns the stored rich text untouched, for re-editing.
func GetFormById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		form, err := database.GetForm(r.Context(), app.DB, formId)
		if err != nil {
			httpx.LogDBError(w, "db.get_form", formId, err)
			return
		}

		render.JSON(w, r, form)
	}
}

// UpdateForm replaces a whole form. The body must carry the version it was
// read at.
func UpdateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		form := model.Schema{}
		err := render.DecodeJSON(r.Body, &form)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if form.Version <= 0 {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "update_form.version", "missing form version")
			return
		}
		form.ID = formId

		fillFieldIDs(&form)
		if err = model.Validate(form); err != nil {
			httpx.LogValidation(w, r, "update_form.validate", err)
			return
		}

		updated, err := database.UpdateForm(r.Context(), app.DB, form)
		if err != nil {
			httpx.LogDBError(w, "db.update_form", formId, err)
			return
		}

		render.JSON(w, r, updated)
	}
}

func DeleteForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		err := database.DeleteForm(r.Context(), app.DB, formId)
		if err != nil {
			httpx.LogDBError(w, "db.delete_form", formId, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func SetAcceptingResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		body := struct {
			AcceptingResponses *bool `json:"accepting_responses"`
		}{}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil || body.AcceptingResponses == nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = database.SetAcceptingResponses(r.Context(), app.DB, formId, *body.AcceptingResponses)
		if err != nil {
			httpx.LogDBError(w, "db.set_accepting", formId, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func GetFormResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		if _, err := database.GetForm(r.Context(), app.DB, formId); err != nil {
			httpx.LogDBError(w, "db.get_form", formId, err)
			return
		}

		responses, err := database.ListResponses(r.Context(), app.DB, formId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"responses": responses,
		})
	}
}

// UploadFormImage stores an image for use in form content.
func UploadFormImage(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uploadImage(app, w, r, storage.FormImagesPrefix)
	}
}
