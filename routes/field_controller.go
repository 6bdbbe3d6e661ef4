package routes

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/mbolis/quick-forms/app"
	"github.com/mbolis/quick-forms/database"
	"github.com/mbolis/quick-forms/httpx"
	"github.com/mbolis/quick-forms/log"
	"github.com/mbolis/quick-forms/model"
)

var (
	errBadRequest = errors.New("bad request")
	errInvalid    = errors.New("invalid content")
	errNotFound   = errors.New("not found")
)

// schemaEdit derives a new schema from the stored one.
type schemaEdit func(r *http.Request, form model.Schema) (model.Schema, error)

// editForm loads a form, applies edit and stores the result under the
// optimistic lock. A "version" query parameter, when given, must match the
// stored version.
func editForm(app app.App, code string, edit schemaEdit) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		form, err := database.GetForm(r.Context(), app.DB, formId)
		if err != nil {
			httpx.LogDBError(w, "db.get_form", formId, err)
			return
		}

		if v := r.URL.Query().Get("version"); v != "" {
			version, err := strconv.Atoi(v)
			if err != nil {
				httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_query_param.version")
				return
			}
			if version != form.Version {
				httpx.LogStatusMsg(w, http.StatusConflict, log.DebugLevel, code+".version", "form %s is at version %d", formId, form.Version)
				return
			}
		}

		edited, err := edit(r, form)
		switch {
		case errors.Is(err, model.ErrIndexOutOfRange), errors.Is(err, errNotFound):
			httpx.LogNotFound(w, code, err)
			return
		case errors.Is(err, model.ErrUnknownFieldType), errors.Is(err, errBadRequest):
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, code, "%s", err)
			return
		case errors.Is(err, errInvalid):
			httpx.LogValidation(w, r, code, err)
			return
		case err != nil:
			httpx.LogInternalError(w, code, err)
			return
		}

		if err = model.Check(edited); err != nil {
			httpx.LogValidation(w, r, code+".check", err)
			return
		}

		updated, err := database.UpdateForm(r.Context(), app.DB, edited)
		if err != nil {
			httpx.LogDBError(w, "db.update_form", formId, err)
			return
		}

		render.JSON(w, r, updated)
	}
}

func fieldIndex(r *http.Request) (int, error) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, fmt.Errorf("%w: field index", errBadRequest)
	}
	return index, nil
}

func decodeBody(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return fmt.Errorf("%w: %s", errBadRequest, err)
	}
	return nil
}

func AddField(app app.App) http.HandlerFunc {
	return editForm(app, "add_field", func(r *http.Request, form model.Schema) (model.Schema, error) {
		return model.AddField(form), nil
	})
}

func UpdateField(app app.App) http.HandlerFunc {
	return editForm(app, "update_field", func(r *http.Request, form model.Schema) (model.Schema, error) {
		index, err := fieldIndex(r)
		if err != nil {
			return form, err
		}

		var upd model.FieldUpdate
		if err = decodeBody(r, &upd); err != nil {
			return form, err
		}
		if upd.Image != nil && *upd.Image != "" && !model.IsImageRef(*upd.Image) {
			return form, fmt.Errorf("%w: image: must be an http(s) URL or an absolute path", errInvalid)
		}

		return model.UpdateField(form, index, upd)
	})
}

func MoveField(app app.App) http.HandlerFunc {
	return editForm(app, "move_field", func(r *http.Request, form model.Schema) (model.Schema, error) {
		index, err := fieldIndex(r)
		if err != nil {
			return form, err
		}

		body := struct {
			Direction string `json:"direction"`
		}{}
		if err = decodeBody(r, &body); err != nil {
			return form, err
		}
		dir, err := model.ParseDirection(body.Direction)
		if err != nil {
			return form, fmt.Errorf("%w: %s", errBadRequest, err)
		}

		if index < 0 || index >= len(form.Fields) {
			return form, fmt.Errorf("%w: %d", model.ErrIndexOutOfRange, index)
		}
		return model.MoveField(form, index, dir), nil
	})
}

func SetFieldType(app app.App) http.HandlerFunc {
	return editForm(app, "set_field_type", func(r *http.Request, form model.Schema) (model.Schema, error) {
		index, err := fieldIndex(r)
		if err != nil {
			return form, err
		}

		body := struct {
			Type string `json:"type"`
		}{}
		if err = decodeBody(r, &body); err != nil {
			return form, err
		}
		t, err := model.ParseFieldType(body.Type)
		if err != nil {
			return form, err
		}

		return model.SetFieldType(form, index, t)
	})
}

func DeleteField(app app.App) http.HandlerFunc {
	return editForm(app, "delete_field", func(r *http.Request, form model.Schema) (model.Schema, error) {
		index, err := fieldIndex(r)
		if err != nil {
			return form, err
		}
		return model.DeleteField(form, index)
	})
}
