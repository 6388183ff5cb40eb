package funnel

import (
	"errors"
	"testing"

	"funnelbot/models"
)

func TestResolveTextOnly(t *testing.T) {
	store := newFakeStore()
	store.addTemplate(models.KindFunnel, models.MessageTemplate{Step: 1, Body: "hello"})

	rendered, err := NewResolver(store).Resolve(models.KindFunnel, 1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if rendered.Text != "hello" || len(rendered.Media) != 0 || len(rendered.Buttons) != 0 {
		t.Errorf("unexpected rendered step: %+v", rendered)
	}
}

func TestResolveSingleRefsPhotoFirst(t *testing.T) {
	store := newFakeStore()
	store.addTemplate(models.KindPaid, models.MessageTemplate{
		Step: 2, Body: "b", PhotoRef: "p1", VideoRef: "v1",
	})

	rendered, err := NewResolver(store).Resolve(models.KindPaid, 2)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(rendered.Media) != 2 {
		t.Fatalf("media = %+v, want photo then video", rendered.Media)
	}
	if rendered.Media[0].Kind != models.MediaPhoto || rendered.Media[0].Ref != "p1" {
		t.Errorf("first media = %+v, want photo p1", rendered.Media[0])
	}
	if rendered.Media[1].Kind != models.MediaVideo || rendered.Media[1].Ref != "v1" {
		t.Errorf("second media = %+v, want video v1", rendered.Media[1])
	}
}

func TestResolveAlbumSupersedesRefs(t *testing.T) {
	store := newFakeStore()
	store.addTemplate(models.KindFunnel, models.MessageTemplate{
		Step: 3, Body: "b", PhotoRef: "ignored",
	})
	store.albums[stepKey{models.KindFunnel, 3}] = []models.AlbumItem{
		{Step: 3, Kind: models.MediaVideo, Ref: "a1", Position: 1},
		{Step: 3, Kind: models.MediaPhoto, Ref: "a2", Position: 2},
	}

	rendered, err := NewResolver(store).Resolve(models.KindFunnel, 3)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(rendered.Media) != 2 || rendered.Media[0].Ref != "a1" || rendered.Media[1].Ref != "a2" {
		t.Errorf("media = %+v, want album items only", rendered.Media)
	}
}

func TestResolveButtons(t *testing.T) {
	store := newFakeStore()
	store.addTemplate(models.KindFunnel, models.MessageTemplate{Step: 1, Body: "b"})
	store.buttons[stepKey{models.KindFunnel, 1}] = []models.Button{
		{Step: 1, Text: "open", URL: "https://x.example", Position: 1},
		{Step: 1, Text: "more", MessagesCount: 2, Position: 2},
	}

	rendered, err := NewResolver(store).Resolve(models.KindFunnel, 1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(rendered.Buttons) != 2 {
		t.Fatalf("buttons = %+v", rendered.Buttons)
	}
	if rendered.Buttons[0].IsAdvance() {
		t.Error("link button classified as advance")
	}
	if !rendered.Buttons[1].IsAdvance() {
		t.Error("advance button not recognized")
	}
}

func TestResolveMissingTemplate(t *testing.T) {
	store := newFakeStore()

	_, err := NewResolver(store).Resolve(models.KindFunnel, 9)
	if !errors.Is(err, ErrTemplateMissing) {
		t.Fatalf("err = %v, want ErrTemplateMissing", err)
	}
}
