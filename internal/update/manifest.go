package update

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Manifest is the JSON document served by the update endpoint.
// Only APK is contractual; the remaining fields are decoded when present.
type Manifest struct {
	APK        string          `json:"apk"`
	Version    int             `json:"version"`
	VersionStr string          `json:"versionStr"`
	Changelog  json.RawMessage `json:"changelog"`

	fields map[string]json.RawMessage
}

// NewManifest builds the manifest the update server publishes for a release.
func NewManifest(apk string, version int, versionStr, changelog string) Manifest {
	raw, _ := json.Marshal(changelog)
	return Manifest{
		APK:        apk,
		Version:    version,
		VersionStr: versionStr,
		Changelog:  raw,
	}
}

// UnmarshalJSON keeps every top-level key so callers can inspect fields this
// package does not model. A non-object document or a non-string "apk" is an
// error; the other known fields are best-effort.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("manifest is not a JSON object")
	}

	out := Manifest{fields: fields}
	if raw, ok := fields["apk"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &out.APK); err != nil {
			return fmt.Errorf("apk field: %w", err)
		}
	}
	if raw, ok := fields["version"]; ok {
		_ = json.Unmarshal(raw, &out.Version)
	}
	if raw, ok := fields["versionStr"]; ok {
		_ = json.Unmarshal(raw, &out.VersionStr)
	}
	if raw, ok := fields["changelog"]; ok && !isNull(raw) {
		out.Changelog = raw
	}
	*m = out
	return nil
}

// HasAPK reports whether the decoded document carried an "apk" key.
func (m *Manifest) HasAPK() bool {
	if m == nil {
		return false
	}
	if m.fields == nil {
		return m.APK != ""
	}
	_, ok := m.fields["apk"]
	return ok
}

// Field returns the raw JSON of any top-level key.
func (m *Manifest) Field(key string) (json.RawMessage, bool) {
	if m == nil || m.fields == nil {
		return nil, false
	}
	raw, ok := m.fields[key]
	return raw, ok
}

// Keys lists the top-level keys of the decoded document.
func (m *Manifest) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m.fields))
	for k := range m.fields {
		keys = append(keys, k)
	}
	return keys
}

// ChangelogText flattens the changelog, which the server sends either as a
// string or as a list.
func (m *Manifest) ChangelogText() string {
	if m == nil || len(m.Changelog) == 0 || isNull(m.Changelog) {
		return ""
	}

	var s string
	if err := json.Unmarshal(m.Changelog, &s); err == nil {
		return s
	}

	var items []json.RawMessage
	if err := json.Unmarshal(m.Changelog, &items); err == nil {
		lines := make([]string, 0, len(items))
		for _, item := range items {
			var line string
			if err := json.Unmarshal(item, &line); err == nil {
				lines = append(lines, line)
				continue
			}
			lines = append(lines, string(item))
		}
		return strings.Join(lines, "\n")
	}

	return string(m.Changelog)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
