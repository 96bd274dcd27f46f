package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/voxsentry/voxsentry/internal/core"
)

func TestParseMetadata(t *testing.T) {
	metadata, err := parseMetadata([]string{"branch=downtown", "agent = a-7 "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metadata["branch"] != "downtown" {
		t.Fatalf("expected branch=downtown, got %q", metadata["branch"])
	}
	if metadata["agent"] != "a-7" {
		t.Fatalf("expected trimmed value a-7, got %q", metadata["agent"])
	}

	if _, err := parseMetadata([]string{"novalue"}); err == nil {
		t.Fatal("expected error for entry without =")
	}
	if _, err := parseMetadata([]string{"=orphan"}); err == nil {
		t.Fatal("expected error for entry without key")
	}

	metadata, err = parseMetadata(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metadata != nil {
		t.Fatalf("expected nil metadata, got %v", metadata)
	}
}

func TestBuildManifestItem(t *testing.T) {
	item, err := buildManifestItem(manifestItem{Audio: "calls/one.wav", CallID: "call-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Request.Kind != core.RequestKindScore {
		t.Fatalf("expected default kind score, got %q", item.Request.Kind)
	}
	if item.Name != "one.wav" {
		t.Fatalf("expected item name one.wav, got %q", item.Name)
	}

	item, err = buildManifestItem(manifestItem{Kind: "verify", CallID: "call-2", SpeakerID: "spk-9"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Name != "call-2" {
		t.Fatalf("expected item name call-2, got %q", item.Name)
	}

	cases := []struct {
		name  string
		entry manifestItem
	}{
		{"score without audio", manifestItem{Kind: "score"}},
		{"verify without speaker", manifestItem{Kind: "verify", CallID: "call-3"}},
		{"sar without call", manifestItem{Kind: "sar"}},
		{"unknown kind", manifestItem{Kind: "enroll", CallID: "call-4"}},
	}
	for _, tc := range cases {
		if _, err := buildManifestItem(tc.entry); err == nil {
			t.Fatalf("expected error for %s", tc.name)
		}
	}
}

func TestReadBatchManifest(t *testing.T) {
	manifestYAML := `items:
  - audio: calls/one.wav
    call_id: call-1
    metadata:
      branch: downtown
  - kind: verify
    call_id: call-2
    speaker_id: spk-9
  - kind: sar
    call_id: call-3
`
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	if err := os.WriteFile(path, []byte(manifestYAML), 0o600); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	items, err := readBatchManifest(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].Request.Metadata["branch"] != "downtown" {
		t.Fatalf("expected metadata to survive parsing, got %v", items[0].Request.Metadata)
	}
	if items[1].Request.Kind != core.RequestKindVerify {
		t.Fatalf("expected verify kind, got %q", items[1].Request.Kind)
	}
	if items[2].Request.Kind != core.RequestKindSAR {
		t.Fatalf("expected sar kind, got %q", items[2].Request.Kind)
	}
}

func TestReadBatchManifestRejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	if err := os.WriteFile(path, []byte("items: [unclosed"), 0o600); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	if _, err := readBatchManifest(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSummaryError(t *testing.T) {
	if err := summaryError(nil); err != nil {
		t.Fatalf("unexpected error for nil summary: %v", err)
	}
	if err := summaryError(&core.BatchSummary{Total: 2, Succeeded: 2}); err != nil {
		t.Fatalf("unexpected error for clean summary: %v", err)
	}
	if err := summaryError(&core.BatchSummary{Total: 2, Succeeded: 1, Failed: 1}); err == nil {
		t.Fatal("expected error when outcomes failed")
	}
	if err := summaryError(&core.BatchSummary{Total: 3, Succeeded: 1, RateLimited: 2}); err == nil {
		t.Fatal("expected error when outcomes were rejected")
	}
}
