package catalog

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/simcatalog/core"
)

func TestIsAllowedEmbedURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.youtube.com/embed/abc", true},
		{"https://youtube.com/watch?v=abc", true},
		{"https://someone.itch.io/game", true},
		{"https://sketchfab.com/models/1/embed", true},
		{"http://www.youtube.com/embed/abc", false},
		{"https://youtube.com.evil.io/embed", false},
		{"https://notyoutube.com/embed", false},
		{"javascript:alert(1)", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAllowedEmbedURL(tt.url))
		})
	}
}

func TestSanitizeEmbedHTML(t *testing.T) {
	html, err := SanitizeEmbedHTML(`<iframe src="https://www.youtube.com/embed/abc" width="560" onload="alert(1)"></iframe><script>alert(1)</script>`)
	require.NoError(t, err)
	assert.Contains(t, html, `src="https://www.youtube.com/embed/abc"`)
	assert.Contains(t, html, `width="560"`)
	assert.NotContains(t, html, "onload")
	assert.NotContains(t, html, "script")

	tests := []string{
		`<iframe src="https://evil.example/embed"></iframe>`,
		`<iframe src="http://www.youtube.com/embed/abc"></iframe>`,
		`<p>no frame</p>`,
	}
	for _, in := range tests {
		_, err := SanitizeEmbedHTML(in)
		assert.Equal(t, errEmbedHTMLEmpty, err, in)
	}
}

func fieldOf(t *testing.T, err error) string {
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr), "%v is not a validation error", err)
	if len(verr.Fields) == 0 {
		return ""
	}
	return verr.Fields[0].Field
}

func TestApplyAttachment(t *testing.T) {
	tests := []struct {
		name      string
		ua        UpdateAttachment
		wantField string // "" with wantErr means a non-field validation error
		wantErr   bool
	}{
		{name: "link", ua: UpdateAttachment{AttachmentType: AttachmentLink, AttachmentURL: "https://sim.example/run"}},
		{name: "link without url", ua: UpdateAttachment{AttachmentType: AttachmentLink}, wantField: "attachmentUrl", wantErr: true},
		{name: "link over http", ua: UpdateAttachment{AttachmentType: AttachmentLink, AttachmentURL: "http://sim.example"}, wantField: "attachmentUrl", wantErr: true},
		{name: "embed url", ua: UpdateAttachment{AttachmentType: AttachmentEmbed, AttachmentURL: "https://codepen.io/pen/1"}},
		{name: "embed forbidden url", ua: UpdateAttachment{AttachmentType: AttachmentEmbed, AttachmentURL: "https://sim.example"}, wantField: "attachmentUrl", wantErr: true},
		{name: "embed nothing", ua: UpdateAttachment{AttachmentType: AttachmentEmbed}, wantErr: true},
		{name: "embed bad html", ua: UpdateAttachment{AttachmentType: AttachmentEmbed, AttachmentEmbedHTML: "<b>hi</b>"}, wantField: "attachmentEmbedHtml", wantErr: true},
		{name: "file", ua: UpdateAttachment{AttachmentType: AttachmentFile, AttachmentFilePath: "u1/1700000000000-sim.zip"}},
		{name: "file without path", ua: UpdateAttachment{AttachmentType: AttachmentFile}, wantField: "attachmentFilePath", wantErr: true},
		{name: "unknown", ua: UpdateAttachment{AttachmentType: "PDF"}, wantField: "attachmentType", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Discipline
			err := applyAttachment(&d, tt.ua)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.ua.AttachmentType, d.AttachmentType)
				return
			}
			assert.Equal(t, tt.wantField, fieldOf(t, err))
			assert.Equal(t, AttachmentType(""), d.AttachmentType)
		})
	}
}

func TestApplyAttachment_noneClears(t *testing.T) {
	var d Discipline
	require.NoError(t, applyAttachment(&d, UpdateAttachment{AttachmentType: AttachmentFile, AttachmentFilePath: "u1/sim.zip"}))
	assert.Equal(t, "u1/sim.zip", d.AttachmentFilePath.String)

	require.NoError(t, applyAttachment(&d, UpdateAttachment{AttachmentType: AttachmentNone, AttachmentURL: "https://x.io"}))
	assert.Equal(t, AttachmentNone, d.AttachmentType)
	assert.False(t, d.AttachmentFilePath.Valid)
	assert.False(t, d.AttachmentURL.Valid)
}

func TestFormatCode(t *testing.T) {
	assert.Equal(t, "SIM-MED-007", FormatCode("MED", 7))
	assert.Equal(t, "SIM-ENG-120", FormatCode("ENG", 120))
	assert.Equal(t, "SIM-TI-1000", FormatCode("TI", 1000))
}

func TestParseCodeSeq(t *testing.T) {
	tests := []struct {
		base, code string
		seq        int
		ok         bool
	}{
		{"MED", "SIM-MED-007", 7, true},
		{"TI", "SIM-TI-1000", 1000, true},
		{"GRP-SADE", "SIM-GRP-SADE-001", 1, true},
		{"MED", "SIM-ENG-007", 0, false},
		{"MED", "SIM-MED-", 0, false},
		{"MED", "SIM-MED-X-001", 0, false},
		{"MED", "MED-001", 0, false},
	}
	for _, tc := range tests {
		seq, ok := ParseCodeSeq(tc.base, tc.code)
		assert.Equal(t, tc.ok, ok, tc.code)
		assert.Equal(t, tc.seq, seq, tc.code)
	}
}
