package models

import "testing"

func TestKindTables(t *testing.T) {
	if got := KindFunnel.TemplateTable(); got != "funnel_templates" {
		t.Errorf("TemplateTable = %q", got)
	}
	if got := KindPaid.ScheduleTable(); got != "paid_schedules" {
		t.Errorf("ScheduleTable = %q", got)
	}
	if got := KindMass.ButtonTable(); got != "mass_buttons" {
		t.Errorf("ButtonTable = %q", got)
	}
	if got := KindRenewal.AlbumTable(); got != "renewal_albums" {
		t.Errorf("AlbumTable = %q", got)
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range Kinds {
		if !k.Valid() {
			t.Errorf("kind %q reported invalid", k)
		}
	}
	if Kind("bogus").Valid() {
		t.Error("unknown kind reported valid")
	}
}

func TestMaxButtons(t *testing.T) {
	cases := map[Kind]int{
		KindFunnel:  3,
		KindPaid:    3,
		KindRenewal: 5,
		KindMass:    10,
	}
	for kind, want := range cases {
		if got := MaxButtons(kind); got != want {
			t.Errorf("MaxButtons(%s) = %d, want %d", kind, got, want)
		}
	}
}

func TestValidateAlbum(t *testing.T) {
	ok := []AlbumItem{
		{Kind: MediaPhoto, Position: 1},
		{Kind: MediaVideo, Position: 2},
	}
	if err := ValidateAlbum(ok); err != nil {
		t.Errorf("valid album rejected: %v", err)
	}

	if err := ValidateAlbum(nil); err != nil {
		t.Errorf("empty album rejected: %v", err)
	}

	gap := []AlbumItem{
		{Kind: MediaPhoto, Position: 1},
		{Kind: MediaPhoto, Position: 3},
	}
	if err := ValidateAlbum(gap); err == nil {
		t.Error("album with position gap accepted")
	}

	unknown := []AlbumItem{{Kind: "gif", Position: 1}}
	if err := ValidateAlbum(unknown); err == nil {
		t.Error("album with unknown media kind accepted")
	}

	tooMany := make([]AlbumItem, MaxAlbumItems+1)
	for i := range tooMany {
		tooMany[i] = AlbumItem{Kind: MediaPhoto, Position: i + 1}
	}
	if err := ValidateAlbum(tooMany); err == nil {
		t.Error("oversized album accepted")
	}
}
