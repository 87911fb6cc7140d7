package services

import "testing"

func TestSessionIDFromObject(t *testing.T) {
	cases := []struct {
		object  string
		want    string
		wantErr bool
	}{
		{"abc-123/signed.pdf", "abc-123", false},
		{"abc-123/nested/signed.pdf", "abc-123", false},
		{"signed.pdf", "", true},
		{"/signed.pdf", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := sessionIDFromObject(tc.object)
		if tc.wantErr {
			if err == nil {
				t.Errorf("sessionIDFromObject(%q): expected error, got %q", tc.object, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("sessionIDFromObject(%q): unexpected error: %v", tc.object, err)
			continue
		}
		if got != tc.want {
			t.Errorf("sessionIDFromObject(%q) = %q, want %q", tc.object, got, tc.want)
		}
	}
}

func TestParseGCSUri(t *testing.T) {
	bucket, object, err := parseGCSUri("gs://my-bucket/abc-123/signed.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bucket != "my-bucket" || object != "abc-123/signed.pdf" {
		t.Errorf("got (%q, %q), want (my-bucket, abc-123/signed.pdf)", bucket, object)
	}

	for _, uri := range []string{
		"http://my-bucket/abc",
		"gs://my-bucket",
		"gs:///abc",
		"gs://",
		"",
	} {
		if _, _, err := parseGCSUri(uri); err == nil {
			t.Errorf("parseGCSUri(%q): expected error", uri)
		}
	}
}

func TestFirstOtherSession(t *testing.T) {
	if id, ok := firstOtherSession(nil, "self"); ok {
		t.Errorf("empty candidates: got (%q, true), want (_, false)", id)
	}
	// A session's own finalized record is not a duplicate of itself, so a
	// re-delivered event for the same object still completes cleanly.
	if id, ok := firstOtherSession([]string{"self"}, "self"); ok {
		t.Errorf("self-only candidates: got (%q, true), want (_, false)", id)
	}
	id, ok := firstOtherSession([]string{"self", "other"}, "self")
	if !ok || id != "other" {
		t.Errorf("got (%q, %v), want (other, true)", id, ok)
	}
	id, ok = firstOtherSession([]string{"other-a", "other-b"}, "self")
	if !ok || id != "other-a" {
		t.Errorf("got (%q, %v), want (other-a, true)", id, ok)
	}
}
