// Package predict turns uploaded trade documents into tariff impact reports.
package predict

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
)

// MaxUploadBytes is the largest accepted document.
const MaxUploadBytes = 10 << 20

// multipartOverhead leaves room for form boundaries and the country field.
const multipartOverhead = 64 << 10

var pdfMagic = []byte("%PDF-")

var (
	errNoFile       = apperrors.New(apperrors.CodeFileMissing, "no file uploaded")
	errNotPDF       = apperrors.New(apperrors.CodeUnsupportedMediaType, "only PDF files are accepted")
	errFileTooLarge = apperrors.New(apperrors.CodeFileTooLarge, fmt.Sprintf("file exceeds the %d MiB limit", MaxUploadBytes>>20))
)

// Upload is a validated PDF document.
type Upload struct {
	Filename string
	Country  string
	Data     []byte
}

// ReadUpload extracts and validates the multipart "file" field of r.
func ReadUpload(w http.ResponseWriter, r *http.Request) (Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return Upload{}, errFileTooLarge
		}
		return Upload{}, errNoFile
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return Upload{}, errNoFile
	}
	defer file.Close()

	if header.Size > MaxUploadBytes {
		return Upload{}, errFileTooLarge
	}
	if header.Size == 0 {
		return Upload{}, errNoFile
	}
	if !isPDFContentType(header.Header.Get("Content-Type")) {
		return Upload{}, errNotPDF
	}
	data, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes+1))
	if err != nil {
		return Upload{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return Upload{}, errNoFile
	}
	if len(data) > MaxUploadBytes {
		return Upload{}, errFileTooLarge
	}
	if !bytes.HasPrefix(data, pdfMagic) {
		return Upload{}, errNotPDF
	}
	return Upload{
		Filename: header.Filename,
		Country:  strings.TrimSpace(r.FormValue("country")),
		Data:     data,
	}, nil
}

func isPDFContentType(value string) bool {
	mediaType, _, err := mime.ParseMediaType(value)
	return err == nil && strings.EqualFold(mediaType, "application/pdf")
}
