package funnel

import (
	"fmt"

	"funnelbot/models"
)

// RenderedButton is a button resolved from storage, before per-user
// personalization and link tagging.
type RenderedButton struct {
	Text          string
	URL           string
	MessagesCount int
}

// IsAdvance reports whether pressing the button should deliver pending
// steps instead of opening a link.
func (b RenderedButton) IsAdvance() bool {
	return b.URL == "" && b.MessagesCount >= 1
}

// RenderedStep is a template step flattened into everything the
// dispatcher needs to compose an outgoing message.
type RenderedStep struct {
	Step    int
	Text    string
	Media   []MediaItem
	Buttons []RenderedButton
}

// Resolver loads a step's template, album and buttons into a RenderedStep.
type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve assembles the step. An album supersedes the template's single
// media refs; with no album, a photo ref is attached before a video ref.
func (r *Resolver) Resolve(kind models.Kind, step int) (*RenderedStep, error) {
	tpl, err := r.store.GetTemplate(kind, step)
	if err != nil {
		return nil, err
	}

	rendered := &RenderedStep{
		Step: step,
		Text: tpl.Body,
	}

	album, err := r.store.GetAlbum(kind, step)
	if err != nil {
		return nil, fmt.Errorf("loading album for %s step %d: %w", kind, step, err)
	}
	if len(album) > 0 {
		for _, item := range album {
			rendered.Media = append(rendered.Media, MediaItem{Kind: item.Kind, Ref: item.Ref})
		}
	} else {
		if tpl.PhotoRef != "" {
			rendered.Media = append(rendered.Media, MediaItem{Kind: models.MediaPhoto, Ref: tpl.PhotoRef})
		}
		if tpl.VideoRef != "" {
			rendered.Media = append(rendered.Media, MediaItem{Kind: models.MediaVideo, Ref: tpl.VideoRef})
		}
	}

	buttons, err := r.store.GetButtons(kind, step)
	if err != nil {
		return nil, fmt.Errorf("loading buttons for %s step %d: %w", kind, step, err)
	}
	for _, btn := range buttons {
		rendered.Buttons = append(rendered.Buttons, RenderedButton{
			Text:          btn.Text,
			URL:           btn.URL,
			MessagesCount: btn.MessagesCount,
		})
	}

	return rendered, nil
}
