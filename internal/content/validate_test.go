package content

import (
	"errors"
	"testing"
)

func TestVideoUploadPolicyCheck(t *testing.T) {
	cases := []struct {
		name       string
		filename   string
		size       int64
		wantReason Reason
	}{
		{name: "accepted mp4", filename: "lecture.mp4", size: 50 << 20},
		{name: "exactly at limit", filename: "lecture.mp4", size: 100 << 20},
		{name: "one byte over limit", filename: "lecture.mp4", size: 100<<20 + 1, wantReason: ReasonFileTooLarge},
		{name: "uppercase extension", filename: "LECTURE.MP4", size: 1024},
		{name: "all allowed extensions", filename: "clip.webm", size: 1024},
		{name: "no extension", filename: "clip", size: 1024, wantReason: ReasonMissingExtension},
		{name: "trailing dot", filename: "clip.", size: 1024, wantReason: ReasonMissingExtension},
		{name: "unsupported extension", filename: "clip.gif", size: 1024, wantReason: ReasonUnsupportedExtension},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := videoUploadPolicy.Check(tc.filename, tc.size)
			if tc.wantReason == "" {
				if err != nil {
					t.Fatalf("Check(%q, %d) error = %v", tc.filename, tc.size, err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Reason != tc.wantReason {
				t.Fatalf("unexpected reason: got %s want %s", verr.Reason, tc.wantReason)
			}
		})
	}
}

func TestDocumentUploadPolicyCheck(t *testing.T) {
	if err := documentUploadPolicy.Check("notes.pdf", 5<<20); err != nil {
		t.Fatalf("expected file at the limit to pass, got %v", err)
	}

	err := documentUploadPolicy.Check("notes.pdf", 5<<20+1)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reason != ReasonFileTooLarge {
		t.Fatalf("expected file_too_large, got %v", err)
	}

	if err := documentUploadPolicy.Check("notes.mp4", 1024); err == nil {
		t.Fatal("expected video extension to be rejected for documents")
	}
}

func TestExtension(t *testing.T) {
	cases := []struct {
		filename string
		want     string
	}{
		{"lesson.mp4", "mp4"},
		{"archive.tar.gz", "gz"},
		{"UPPER.PDF", "pdf"},
		{"noext", ""},
		{"trailing.", ""},
		{".hidden", "hidden"},
	}

	for _, tc := range cases {
		if got := Extension(tc.filename); got != tc.want {
			t.Fatalf("Extension(%q) = %q, want %q", tc.filename, got, tc.want)
		}
	}
}
