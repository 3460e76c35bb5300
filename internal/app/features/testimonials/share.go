// internal/app/features/testimonials/share.go
package testimonials

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dalemusser/gicesite/internal/app/system/intake"
	"github.com/dalemusser/gicesite/internal/app/system/mailer"
	"github.com/dalemusser/gicesite/internal/app/system/mediaupload"
	"github.com/dalemusser/gicesite/internal/app/system/network"
	"github.com/dalemusser/gicesite/internal/app/system/timeouts"
	"github.com/dalemusser/gicesite/internal/app/system/viewdata"
	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

const (
	maxNameLen = 100
	maxRoleLen = 100
	maxBodyLen = 1000
)

const (
	tooManyMsg     = "Too many submissions from your connection. Please wait a minute and try again."
	chooseFirstMsg = "Choose how to add your photo first."
)

// Draft is the text part of a submission.
type Draft struct {
	Name   string
	Role   string
	Body   string
	Rating int
}

// ShareVM is the view model for the submission page.
type ShareVM struct {
	viewdata.BaseVM
	Draft   Draft
	Errors  map[string]string
	State   string
	Photo   intake.PhotoState
	Picture string
	Avatars []intake.Avatar
	Ratings []int
}

// PhotoStep names the photo-track state for the template.
func (vm ShareVM) PhotoStep() string { return string(vm.Photo) }

func readDraft(r *http.Request) Draft {
	rating, _ := strconv.Atoi(strings.TrimSpace(r.PostFormValue("rating")))
	return Draft{
		Name:   strings.TrimSpace(r.PostFormValue("name")),
		Role:   strings.TrimSpace(r.PostFormValue("role")),
		Body:   strings.TrimSpace(r.PostFormValue("body")),
		Rating: rating,
	}
}

func (d Draft) validate() map[string]string {
	errs := map[string]string{}
	switch {
	case d.Name == "":
		errs["name"] = "Please tell us your name."
	case utf8.RuneCountInString(d.Name) > maxNameLen:
		errs["name"] = "Name is too long."
	}
	if utf8.RuneCountInString(d.Role) > maxRoleLen {
		errs["role"] = "Role is too long."
	}
	switch {
	case d.Body == "":
		errs["body"] = "Please write a few words about your experience."
	case utf8.RuneCountInString(d.Body) > maxBodyLen:
		errs["body"] = "Please keep your message under " + strconv.Itoa(maxBodyLen) + " characters."
	}
	if d.Rating < models.MinRating || d.Rating > models.MaxRating {
		errs["rating"] = "Please choose a rating from 1 to 5."
	}
	return errs
}

func (h *Handler) shareVM(r *http.Request, flow intake.Flow, d Draft) ShareVM {
	vm := ShareVM{
		BaseVM:  viewdata.New(r),
		Draft:   d,
		Errors:  map[string]string{},
		Photo:   flow.Photo,
		Avatars: intake.Avatars(),
		Ratings: []int{5, 4, 3, 2, 1},
	}
	vm.Title = "Share your story"
	vm.Picture, _ = flow.Picture()
	state, err := h.codec.Encode(flow)
	if err != nil {
		h.logger.Error("encode intake state", zap.Error(err))
	}
	vm.State = state
	return vm
}

// ShareForm renders a fresh submission form.
func (h *Handler) ShareForm(w http.ResponseWriter, r *http.Request) {
	vm := h.shareVM(r, intake.New(), Draft{Rating: models.MaxRating})
	templates.Render(w, r, "testimonials/share", vm)
}

// ShareSubmit handles every step of the form. The action button names the
// step: a photo-track event, "icon", "upload" or "submit". The photo track
// travels in the signed state field; the text fields are echoed back so
// nothing typed is lost between steps.
func (h *Handler) ShareSubmit(w http.ResponseWriter, r *http.Request) {
	if err := mediaupload.ParseForm(w, r); err != nil {
		vm := h.shareVM(r, intake.New(), Draft{Rating: models.MaxRating})
		vm.ShowError(mediaupload.Message(err))
		w.WriteHeader(http.StatusBadRequest)
		templates.Render(w, r, "testimonials/share", vm)
		return
	}

	flow, err := h.codec.Decode(r.PostFormValue("state"))
	if err != nil {
		// Expired or tampered state: start the photo over, keep the text.
		h.logger.Info("intake state rejected", zap.Error(err))
		flow = intake.New()
	}
	draft := readDraft(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	var (
		banner string
		status = http.StatusOK
		errs   map[string]string
	)
	switch action := r.PostFormValue("action"); action {
	case "submit":
		var done bool
		if done, banner, status, errs = h.submit(ctx, w, r, &flow, draft); done {
			return
		}
	case "upload":
		if !h.allow(r) {
			banner, status = tooManyMsg, http.StatusTooManyRequests
			break
		}
		banner = h.resolvePhoto(ctx, r, &flow)
	case "icon":
		if err := flow.Apply(intake.Event{Kind: intake.IconPicked, Avatar: intake.Avatar(r.PostFormValue("avatar"))}); err != nil {
			banner = "Please pick one of the pictures."
		}
	default:
		if err := flow.Apply(intake.Event{Kind: intake.EventKind(action)}); err != nil {
			h.logger.Debug("intake step rejected", zap.String("action", action), zap.Error(err))
			banner = "That step is not available right now."
		}
	}

	vm := h.shareVM(r, flow, draft)
	if errs != nil {
		vm.Errors = errs
	}
	if banner != "" {
		vm.ShowError(banner)
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	templates.Render(w, r, "testimonials/share", vm)
}

// submit validates and stores the testimonial. done reports that a redirect
// was written; otherwise the caller re-renders with banner and errs.
func (h *Handler) submit(ctx context.Context, w http.ResponseWriter, r *http.Request, flow *intake.Flow, d Draft) (done bool, banner string, status int, errs map[string]string) {
	errs = d.validate()
	if err := flow.SetComplete(len(errs) == 0); err != nil {
		// Only a flow that was already sent refuses edits.
		http.Redirect(w, r, "/testimonials/thanks", http.StatusSeeOther)
		return true, "", 0, nil
	}
	if len(errs) > 0 {
		return false, "Please fix the highlighted fields.", http.StatusUnprocessableEntity, errs
	}
	if !h.allow(r) {
		return false, tooManyMsg, http.StatusTooManyRequests, nil
	}
	if err := flow.BeginSubmit(); err != nil {
		return false, "Please complete the form first.", http.StatusConflict, nil
	}

	url, kind := flow.Picture()
	t, err := h.store.Create(ctx, models.Testimonial{
		Name:        d.Name,
		Role:        d.Role,
		Body:        d.Body,
		Rating:      d.Rating,
		ImageURL:    url,
		PhotoKind:   kind,
		Pending:     true,
		SubmittedIP: network.GetClientIP(r),
	})
	_ = flow.FinishSubmit(err)
	if err != nil {
		h.errLog.Log(r, "create testimonial", err)
		return false, "We could not save your testimonial. Please try again.", http.StatusInternalServerError, nil
	}

	h.auditLogger.TestimonialSubmitted(ctx, r, t.ID, string(t.PhotoKind))
	h.sendNotice(t)
	http.Redirect(w, r, "/testimonials/thanks", http.StatusSeeOther)
	return true, "", 0, nil
}

// sendNotice mails staff about a new submission. Failures are logged only.
func (h *Handler) sendNotice(t models.Testimonial) {
	if h.mail == nil || h.notify.To == "" {
		return
	}
	text, html := mailer.TestimonialSubmittedEmail(mailer.TestimonialSubmittedEmailData{
		AppName:   h.notify.AppName,
		Name:      t.Name,
		Role:      t.Role,
		Rating:    t.Rating,
		Body:      t.Body,
		ReviewURL: h.notify.ReviewURL,
	})
	err := h.mail.Send(mailer.Email{
		To:       h.notify.To,
		Subject:  "New testimonial from " + t.Name,
		TextBody: text,
		HTMLBody: html,
	})
	if err != nil {
		h.logger.Warn("testimonial notice not sent", zap.Error(err))
	}
}

func (h *Handler) allow(r *http.Request) bool {
	return h.limiter == nil || h.limiter.Allow(network.GetClientIP(r))
}

// resolvePhoto runs the upload step. Nothing is sent to the media host
// unless the flow is at the method choice; anything short of a resolved URL
// keeps it there.
func (h *Handler) resolvePhoto(ctx context.Context, r *http.Request, flow *intake.Flow) string {
	if flow.Photo != intake.UploadMethodChoice {
		return chooseFirstMsg
	}
	src, _ := mediaupload.ParseSource(r.PostFormValue("photo_source"))
	kind := models.PhotoUpload
	if src == mediaupload.SourceLink || (src == mediaupload.SourceAuto && !hasFile(r, "photo_file")) {
		kind = models.PhotoLink
	}

	res, err := h.images.AcquireField(ctx, r, "photo")
	if err != nil || !res.Uploaded {
		_ = flow.Apply(intake.Event{Kind: intake.UploadCancelled})
		if err != nil {
			h.logger.Info("intake photo not acquired", zap.Error(err))
			return mediaupload.Message(err)
		}
		return "No photo was selected."
	}
	if err := flow.Apply(intake.Event{Kind: intake.UploadResolved, URL: res.URL, Source: kind}); err != nil {
		return chooseFirstMsg
	}
	return ""
}

func hasFile(r *http.Request, field string) bool {
	if r.MultipartForm == nil {
		return false
	}
	for _, fh := range r.MultipartForm.File[field] {
		if fh.Size > 0 {
			return true
		}
	}
	return false
}
