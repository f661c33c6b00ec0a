// Package protected builds the self-verifying download artifact: a
// standalone HTML document embedding the media content, gated by a live
// kill-switch check performed when the document is opened.
//
// The artifact is the one path where an error must never reveal content:
// if the check cannot complete, the viewer sees a fallback state, not the
// embedded bytes.
package protected

import (
	_ "embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"strings"
)

//go:embed artifact.html.tmpl
var artifactTmpl string

var tmpl = template.Must(template.New("artifact").Parse(artifactTmpl))

// Artifact holds everything the rendered document embeds.
type Artifact struct {
	AppName         string
	FingerprintHash string
	APIBase         string // Public base URL the open-time check calls
	Base64Content   string
	MimeType        string
	IsImage         bool
	IsPDF           bool
	Ext             string
}

// NewArtifact assembles an artifact from raw blob bytes.
func NewArtifact(appName, fingerprintHash, apiBase, mimeType, ext string, content []byte) Artifact {
	mime := strings.ToLower(mimeType)
	if mime == "" {
		mime = "application/octet-stream"
	}
	if ext == "" {
		ext = ".bin"
	}
	return Artifact{
		AppName:         appName,
		FingerprintHash: strings.ToLower(fingerprintHash),
		APIBase:         strings.TrimSuffix(apiBase, "/"),
		Base64Content:   base64.StdEncoding.EncodeToString(content),
		MimeType:        mime,
		IsImage:         strings.HasPrefix(mime, "image/"),
		IsPDF:           strings.Contains(mime, "pdf"),
		Ext:             ext,
	}
}

// Render writes the HTML document.
func Render(w io.Writer, a Artifact) error {
	return tmpl.Execute(w, a)
}

// Filename returns the download filename for the artifact.
func Filename(ext string) string {
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("monm-protected%s.html", ext)
}
