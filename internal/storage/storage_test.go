package storage

import "testing"

func TestImageFilename(t *testing.T) {
	cases := []struct {
		productID int
		original  string
		want      string
	}{
		{3, "photo.png", "3_photo.png"},
		{3, "3_photo.png", "3_photo.png"},
		{7, "dir/sub/photo.jpg", "7_photo.jpg"},
		{7, `..\..\photo.jpg`, "7_photo.jpg"},
		{2, "", "2_image"},
	}
	for _, tc := range cases {
		if got := ImageFilename(tc.productID, tc.original); got != tc.want {
			t.Fatalf("ImageFilename(%d, %q) = %q, want %q", tc.productID, tc.original, got, tc.want)
		}
	}
}

func TestContentTypeFor(t *testing.T) {
	if ct := contentTypeFor("1_photo.png"); ct != "image/png" {
		t.Fatalf("expected image/png, got %q", ct)
	}
	if ct := contentTypeFor("1_blob"); ct != "application/octet-stream" {
		t.Fatalf("expected fallback content type, got %q", ct)
	}
}
