package intake

import (
	"errors"
	"testing"

	"github.com/dalemusser/gicesite/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIconPath(t *testing.T) {
	f := New()
	require.NoError(t, f.Apply(Event{Kind: AddPhoto}))
	assert.Equal(t, PhotoPrompt, f.Photo)
	require.NoError(t, f.Apply(Event{Kind: SkipRealPhoto}))
	assert.Equal(t, GenderIconChoice, f.Photo)
	require.NoError(t, f.Apply(Event{Kind: IconPicked, Avatar: AvatarFemale}))
	assert.Equal(t, PhotoSet, f.Photo)

	url, kind := f.Picture()
	assert.Equal(t, "/assets/img/avatar-female.svg", url)
	assert.Equal(t, models.PhotoIcon, kind)
}

func TestUploadPath(t *testing.T) {
	f := New()
	require.NoError(t, f.Apply(Event{Kind: AddPhoto}))
	require.NoError(t, f.Apply(Event{Kind: ChooseUpload}))

	// Closing the picker keeps the visitor on the method choice.
	require.NoError(t, f.Apply(Event{Kind: UploadCancelled}))
	assert.Equal(t, UploadMethodChoice, f.Photo)

	require.NoError(t, f.Apply(Event{Kind: UploadResolved, URL: "https://cdn.example/d/abc", Source: models.PhotoLink}))
	url, kind := f.Picture()
	assert.Equal(t, "https://cdn.example/d/abc", url)
	assert.Equal(t, models.PhotoLink, kind)
}

func TestBackClearsChoice(t *testing.T) {
	f := New()
	require.NoError(t, f.Apply(Event{Kind: AddPhoto}))
	require.NoError(t, f.Apply(Event{Kind: SkipRealPhoto}))
	require.NoError(t, f.Apply(Event{Kind: IconPicked, Avatar: AvatarMale}))
	require.NoError(t, f.Apply(Event{Kind: Back}))

	assert.Equal(t, PhotoPrompt, f.Photo)
	url, kind := f.Picture()
	assert.Empty(t, url)
	assert.Equal(t, models.PhotoNone, kind)
}

func TestInvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		setup []Event
		ev    Event
	}{
		{"choose upload without prompt", nil, Event{Kind: ChooseUpload}},
		{"icon from upload choice", []Event{{Kind: AddPhoto}, {Kind: ChooseUpload}}, Event{Kind: IconPicked, Avatar: AvatarOther}},
		{"resolve from icon choice", []Event{{Kind: AddPhoto}, {Kind: SkipRealPhoto}}, Event{Kind: UploadResolved, URL: "x"}},
		{"resolve without url", []Event{{Kind: AddPhoto}, {Kind: ChooseUpload}}, Event{Kind: UploadResolved}},
		{"unknown avatar", []Event{{Kind: AddPhoto}, {Kind: SkipRealPhoto}}, Event{Kind: IconPicked, Avatar: "robot"}},
		{"add photo twice", []Event{{Kind: AddPhoto}}, Event{Kind: AddPhoto}},
		{"back from start", nil, Event{Kind: Back}},
		{"unknown event", nil, Event{Kind: "dance"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New()
			for _, ev := range tt.setup {
				require.NoError(t, f.Apply(ev))
			}
			before := f
			err := f.Apply(tt.ev)
			assert.True(t, errors.Is(err, ErrInvalidTransition), "got %v", err)
			assert.Equal(t, before, f, "a rejected event must not change state")
		})
	}
}

func TestFormTrackIndependentOfPhoto(t *testing.T) {
	f := New()
	require.NoError(t, f.Apply(Event{Kind: AddPhoto}))

	require.NoError(t, f.SetComplete(true))
	assert.Equal(t, FormComplete, f.Form)
	assert.Equal(t, PhotoPrompt, f.Photo)

	require.NoError(t, f.SetComplete(false))
	assert.Equal(t, FormIncomplete, f.Form)
	assert.ErrorIs(t, f.BeginSubmit(), ErrInvalidTransition)
}

func TestSubmitLifecycle(t *testing.T) {
	f := New()
	require.NoError(t, f.SetComplete(true))
	require.NoError(t, f.BeginSubmit())
	assert.Equal(t, Submitting, f.Form)

	// Photo changes are frozen while submitting.
	assert.ErrorIs(t, f.Apply(Event{Kind: AddPhoto}), ErrInvalidTransition)
	assert.ErrorIs(t, f.SetComplete(true), ErrInvalidTransition)

	// A failed write returns to FormComplete.
	require.NoError(t, f.FinishSubmit(errors.New("db down")))
	assert.Equal(t, FormComplete, f.Form)

	require.NoError(t, f.BeginSubmit())
	require.NoError(t, f.FinishSubmit(nil))
	assert.Equal(t, Submitted, f.Form)
	assert.ErrorIs(t, f.BeginSubmit(), ErrInvalidTransition)
}

func TestAvatarsHaveURLs(t *testing.T) {
	require.Len(t, Avatars(), 3)
	for _, a := range Avatars() {
		u, ok := AvatarURL(a)
		assert.True(t, ok, a)
		assert.Equal(t, u, a.URL())
	}
}
