package export

import (
	"bytes"
	"testing"

	"classkitd/pkg/types"
)

func testPoster() *types.Poster {
	return &types.Poster{
		PosterTitle: "Water Cycle",
		Sections: []types.PosterSection{
			{Heading: "Evaporation", BodyBullets: []string{"Sun heats water", "Vapor rises"}},
			{Heading: "Precipitation", BodyBullets: []string{"Rain and snow fall"}},
		},
		FooterCallout: "Remember: water never disappears!",
	}
}

func TestWritePosterPDF(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePosterPDF(&buf, testPoster()); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	out := buf.Bytes()
	if len(out) == 0 {
		t.Fatalf("empty pdf output")
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output does not start with %%PDF: %q", out[:min(8, len(out))])
	}
}

func TestWritePosterPDF_RejectsInvalid(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePosterPDF(&buf, &types.Poster{PosterTitle: "x"}); err == nil {
		t.Fatalf("expected validation error for poster without sections")
	}
	if err := WritePosterPDF(&buf, nil); err == nil {
		t.Fatalf("expected validation error for nil poster")
	}
}
