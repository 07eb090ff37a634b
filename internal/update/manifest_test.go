package update

import (
	"encoding/json"
	"sort"
	"strings"
	"testing"
)

func TestManifestKeepsUnknownFields(t *testing.T) {
	var m Manifest
	body := `{"apk":"https://app.example/apk/1234/a.apk","version":1234,"versionStr":"1.123.4","changelog":"Fixes","extra":{"a":1}}`
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !m.HasAPK() || m.APK != "https://app.example/apk/1234/a.apk" {
		t.Fatalf("APK = %q", m.APK)
	}
	raw, ok := m.Field("extra")
	if !ok || string(raw) != `{"a":1}` {
		t.Fatalf("Field(extra) = %s, %v", raw, ok)
	}
	keys := m.Keys()
	sort.Strings(keys)
	if strings.Join(keys, ",") != "apk,changelog,extra,version,versionStr" {
		t.Fatalf("Keys() = %v", keys)
	}
}

func TestManifestChangelogText(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string", `{"changelog":"Version 1234"}`, "Version 1234"},
		{"empty list", `{"changelog":[]}`, ""},
		{"list", `{"changelog":["one","two"]}`, "one\ntwo"},
		{"null", `{"changelog":null}`, ""},
		{"absent", `{}`, ""},
		{"object", `{"changelog":{"de":"neu"}}`, `{"de":"neu"}`},
	}
	for _, tt := range tests {
		var m Manifest
		if err := json.Unmarshal([]byte(tt.body), &m); err != nil {
			t.Fatalf("%s: Unmarshal: %v", tt.name, err)
		}
		if got := m.ChangelogText(); got != tt.want {
			t.Errorf("%s: ChangelogText() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestManifestOptionalFieldsAreLenient(t *testing.T) {
	var m Manifest
	if err := json.Unmarshal([]byte(`{"apk":"x","version":"not-a-number"}`), &m); err != nil {
		t.Fatalf("Unmarshal should tolerate a malformed optional field: %v", err)
	}
	if m.APK != "x" || m.Version != 0 {
		t.Fatalf("unexpected manifest: %+v", m)
	}
}

func TestNewManifestEncodesAllFields(t *testing.T) {
	m := NewManifest("http://app.example/apk/1234/pr0gramm-1.123.4.apk", 1234, "1.123.4", "Version 1234")
	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"apk":"http://app.example/apk/1234/pr0gramm-1.123.4.apk","version":1234,"versionStr":"1.123.4","changelog":"Version 1234"}`
	if string(out) != want {
		t.Fatalf("Marshal = %s\nwant      %s", out, want)
	}
}
