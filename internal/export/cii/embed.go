package cii

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// AttachmentName is the file name Factur-X readers look for
const AttachmentName = "factur-x.xml"

// EmbedPDF writes pdf with xml attached as factur-x.xml. The caller supplies
// the visual PDF; PDF/A-3 conversion and XMP metadata are left to the
// rendering side.
func EmbedPDF(pdf io.ReadSeeker, xml []byte, w io.Writer) error {
	dir, err := os.MkdirTemp("", "facturx-*")
	if err != nil {
		return fmt.Errorf("error creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, AttachmentName)
	if err := os.WriteFile(path, xml, 0o600); err != nil {
		return fmt.Errorf("error writing attachment: %w", err)
	}

	if err := api.AddAttachments(pdf, w, []string{path}, false, nil); err != nil {
		return fmt.Errorf("error attaching %s: %w", AttachmentName, err)
	}
	return nil
}

// ExtractXML returns the factur-x.xml attachment of a hybrid PDF
func ExtractXML(pdf io.ReadSeeker) ([]byte, error) {
	attachments, err := api.ExtractAttachmentsRaw(pdf, "", []string{AttachmentName}, nil)
	if err != nil {
		return nil, fmt.Errorf("error reading attachments: %w", err)
	}
	for _, a := range attachments {
		if a.FileName != AttachmentName {
			continue
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, a); err != nil {
			return nil, fmt.Errorf("error reading %s: %w", AttachmentName, err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("no %s attachment found", AttachmentName)
}
