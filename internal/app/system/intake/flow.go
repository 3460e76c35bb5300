// Package intake models the public testimonial submission as two independent
// state machines: one for the photo and one for the form itself.
//
// Photo:  NoPhoto -> PhotoPrompt -> {UploadMethodChoice | GenderIconChoice} -> PhotoSet
// Form:   FormIncomplete <-> FormComplete -> Submitting -> Submitted
//
// Every change goes through Apply (photo) or the form methods, which reject
// transitions the diagram does not allow.
package intake

import (
	"errors"
	"fmt"

	"github.com/dalemusser/gicesite/internal/domain/models"
)

// PhotoState is the photo track state.
type PhotoState string

const (
	NoPhoto            PhotoState = "no_photo"
	PhotoPrompt        PhotoState = "photo_prompt"
	UploadMethodChoice PhotoState = "upload_method"
	GenderIconChoice   PhotoState = "gender_icon"
	PhotoSet           PhotoState = "photo_set"
)

// FormState is the form track state.
type FormState string

const (
	FormIncomplete FormState = "incomplete"
	FormComplete   FormState = "complete"
	Submitting     FormState = "submitting"
	Submitted      FormState = "submitted"
)

// EventKind names a photo-track event.
type EventKind string

const (
	AddPhoto        EventKind = "add_photo"       // NoPhoto -> PhotoPrompt
	ChooseUpload    EventKind = "choose_upload"   // PhotoPrompt -> UploadMethodChoice
	SkipRealPhoto   EventKind = "choose_icon"     // PhotoPrompt -> GenderIconChoice
	Back            EventKind = "back"            // choice or PhotoSet -> PhotoPrompt
	UploadResolved  EventKind = "upload_resolved" // UploadMethodChoice -> PhotoSet
	UploadCancelled EventKind = "upload_cancel"   // UploadMethodChoice -> UploadMethodChoice
	IconPicked      EventKind = "icon_picked"     // GenderIconChoice -> PhotoSet
	RemovePhoto     EventKind = "remove_photo"    // any -> NoPhoto
)

// Event is a photo-track event with its payload.
type Event struct {
	Kind EventKind
	// URL and Source accompany UploadResolved.
	URL    string
	Source models.PhotoKind
	// Avatar accompanies IconPicked.
	Avatar Avatar
}

// ErrInvalidTransition is returned when an event does not apply to the
// current state.
var ErrInvalidTransition = errors.New("invalid transition")

// Flow is the full state of one submission in progress.
type Flow struct {
	Photo     PhotoState       `json:"p"`
	Form      FormState        `json:"f"`
	PhotoURL  string           `json:"u,omitempty"`
	PhotoKind models.PhotoKind `json:"k,omitempty"`
}

// New returns a fresh flow.
func New() Flow {
	return Flow{Photo: NoPhoto, Form: FormIncomplete}
}

// Apply advances the photo track.
func (f *Flow) Apply(ev Event) error {
	if f.Form == Submitting || f.Form == Submitted {
		return f.invalid(ev.Kind)
	}

	switch ev.Kind {
	case AddPhoto:
		if f.Photo != NoPhoto {
			return f.invalid(ev.Kind)
		}
		f.Photo = PhotoPrompt

	case ChooseUpload:
		if f.Photo != PhotoPrompt {
			return f.invalid(ev.Kind)
		}
		f.Photo = UploadMethodChoice

	case SkipRealPhoto:
		if f.Photo != PhotoPrompt {
			return f.invalid(ev.Kind)
		}
		f.Photo = GenderIconChoice

	case Back:
		switch f.Photo {
		case UploadMethodChoice, GenderIconChoice, PhotoSet:
			f.Photo = PhotoPrompt
			f.clearPhoto()
		default:
			return f.invalid(ev.Kind)
		}

	case UploadResolved:
		if f.Photo != UploadMethodChoice {
			return f.invalid(ev.Kind)
		}
		if ev.URL == "" {
			return fmt.Errorf("%w: upload resolved without a url", ErrInvalidTransition)
		}
		kind := ev.Source
		if kind != models.PhotoLink {
			kind = models.PhotoUpload
		}
		f.Photo = PhotoSet
		f.PhotoURL = ev.URL
		f.PhotoKind = kind

	case UploadCancelled:
		if f.Photo != UploadMethodChoice {
			return f.invalid(ev.Kind)
		}

	case IconPicked:
		if f.Photo != GenderIconChoice {
			return f.invalid(ev.Kind)
		}
		u, ok := AvatarURL(ev.Avatar)
		if !ok {
			return fmt.Errorf("%w: unknown avatar %q", ErrInvalidTransition, ev.Avatar)
		}
		f.Photo = PhotoSet
		f.PhotoURL = u
		f.PhotoKind = models.PhotoIcon

	case RemovePhoto:
		f.Photo = NoPhoto
		f.clearPhoto()

	default:
		return fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, ev.Kind)
	}
	return nil
}

func (f *Flow) clearPhoto() {
	f.PhotoURL = ""
	f.PhotoKind = ""
}

func (f *Flow) invalid(kind EventKind) error {
	return fmt.Errorf("%w: %s from photo=%s form=%s", ErrInvalidTransition, kind, f.Photo, f.Form)
}

// SetComplete records whether the form fields currently validate.
func (f *Flow) SetComplete(ok bool) error {
	switch f.Form {
	case FormIncomplete, FormComplete:
		if ok {
			f.Form = FormComplete
		} else {
			f.Form = FormIncomplete
		}
		return nil
	default:
		return fmt.Errorf("%w: edit while %s", ErrInvalidTransition, f.Form)
	}
}

// BeginSubmit moves a complete form to Submitting.
func (f *Flow) BeginSubmit() error {
	if f.Form != FormComplete {
		return fmt.Errorf("%w: submit while %s", ErrInvalidTransition, f.Form)
	}
	f.Form = Submitting
	return nil
}

// FinishSubmit ends a submission. A failed write returns the form to
// FormComplete so the visitor can try again.
func (f *Flow) FinishSubmit(err error) error {
	if f.Form != Submitting {
		return fmt.Errorf("%w: finish while %s", ErrInvalidTransition, f.Form)
	}
	if err != nil {
		f.Form = FormComplete
		return nil
	}
	f.Form = Submitted
	return nil
}

// Picture returns the picture the testimonial will carry. Only a PhotoSet flow
// contributes one.
func (f Flow) Picture() (string, models.PhotoKind) {
	if f.Photo != PhotoSet || f.PhotoURL == "" {
		return "", models.PhotoNone
	}
	return f.PhotoURL, f.PhotoKind
}
