package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
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

type publicField struct {
	ID       string            `json:"id"`
	Type     model.FieldType   `json:"type"`
	Label    string            `json:"label"`
	Required bool              `json:"required"`
	Options  []string          `json:"options,omitempty"`
	Image    string            `json:"image,omitempty"`
	Previews richtext.Previews `json:"previews"`
}

type publicForm struct {
	ID                  string            `json:"id"`
	Title               string            `json:"title"`
	Description         string            `json:"description"`
	DescriptionPreviews richtext.Previews `json:"description_previews"`
	AcceptingResponses  bool              `json:"accepting_responses"`
	EventDate           *time.Time        `json:"event_date,omitempty"`
	EventEndTime        *time.Time        `json:"event_end_time,omitempty"`
	EventLocation       string            `json:"event_location,omitempty"`
	BannerImage         string            `json:"banner_image,omitempty"`
	Fields              []publicField     `json:"fields,omitempty"`
	Submitted           bool              `json:"submitted"`
}

// renderPublic turns a stored form into what respondents see: rich text
// is sanitized and image previews are precomputed.
func renderPublic(form model.Schema, previews int) publicForm {
	out := publicForm{
		ID:                  form.ID,
		Title:               sanitize.Sanitize(form.Title),
		Description:         sanitize.Sanitize(form.Description),
		DescriptionPreviews: richtext.PreviewImages(form.Description, previews),
		AcceptingResponses:  form.AcceptingResponses,
		EventDate:           form.EventDate,
		EventEndTime:        form.EventEndTime,
		EventLocation:       sanitize.PlainText(form.EventLocation),
		BannerImage:         form.BannerImage,
		Fields:              make([]publicField, len(form.Fields)),
	}
	for i, f := range form.Fields {
		out.Fields[i] = publicField{
			ID:       f.ID,
			Type:     f.Type(),
			Label:    sanitize.Sanitize(f.Label),
			Required: f.Required,
			Options:  f.Options(),
			Image:    f.Image,
			Previews: richtext.PreviewImages(f.Label, previews),
		}
	}
	return out
}

func PublicGetFormById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		form, err := database.GetForm(r.Context(), app.DB, formId)
		if err != nil {
			httpx.LogDBError(w, "db.get_form", formId, err)
			return
		}

		out := renderPublic(form, app.PreviewImages)
		if app.OneResponsePerIP {
			out.Submitted, err = database.HasResponseFromIP(r.Context(), app.DB, formId, httpx.ClientIP(r))
			if err != nil {
				httpx.LogInternalError(w, "db.get_form.ip", err)
				return
			}
		}
		if out.Submitted {
			out.Fields = nil
		}

		render.JSON(w, r, out)
	}
}

type submissionCheck struct {
	op     bool
	key    string
	result chan<- bool
}

// submissionGuard marks (form, ip) pairs with a submission in flight. Its
// state is owned by a single goroutine.
func submissionGuard() chan<- submissionCheck {
	checks := make(chan submissionCheck)
	go func() {
		inFlight := make(map[string]bool)

		for req := range checks {
			if req.op {
				req.result <- inFlight[req.key]
				inFlight[req.key] = true
			} else {
				delete(inFlight, req.key)
			}
		}
	}()
	return checks
}

func PublicSubmitForm(app app.App) http.HandlerFunc {
	guard := submissionGuard()

	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		submission := struct {
			Responses map[string]any `json:"responses"`
		}{}
		err := render.DecodeJSON(r.Body, &submission)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		form, err := database.GetForm(r.Context(), app.DB, formId)
		if err != nil {
			httpx.LogDBError(w, "db.get_form", formId, err)
			return
		}
		if !form.AcceptingResponses {
			httpx.LogStatusMsg(w, http.StatusForbidden, log.DebugLevel, "submit.closed", "form %s is not accepting responses", formId)
			return
		}

		if err = model.ValidateAnswers(form, submission.Responses); err != nil {
			httpx.LogValidation(w, r, "submit.validate", err)
			return
		}

		ip := httpx.ClientIP(r)
		if app.OneResponsePerIP {
			key := formId + "|" + ip

			// check ip is not submitting now
			inFlight := make(chan bool)
			guard <- submissionCheck{true, key, inFlight}
			if <-inFlight {
				httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "ip.already_submitting")
				return
			}
			defer func() { guard <- submissionCheck{false, key, nil} }()

			// check ip did not already submit
			alreadySubmitted, err := database.HasResponseFromIP(r.Context(), app.DB, formId, ip)
			if err != nil {
				httpx.LogInternalError(w, "db.get_ip", err)
				return
			}
			if alreadySubmitted {
				httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "ip.already_submitted")
				return
			}
		}

		resp, err := database.InsertResponse(r.Context(), app.DB, model.Response{
			FormID:  formId,
			IP:      ip,
			Answers: submission.Responses,
		})
		if err != nil {
			httpx.LogInternalError(w, "db.insert_response", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": resp.ID,
		})
	}
}

// PublicUploadImage stores a respondent's picture for an image field.
func PublicUploadImage(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId := chi.URLParam(r, "id")

		form, err := database.GetForm(r.Context(), app.DB, formId)
		if err != nil {
			httpx.LogDBError(w, "db.get_form", formId, err)
			return
		}
		if !form.AcceptingResponses {
			httpx.LogStatusMsg(w, http.StatusForbidden, log.DebugLevel, "upload.closed", "form %s is not accepting responses", formId)
			return
		}

		uploadImage(app, w, r, storage.FormResponsesPrefix)
	}
}
