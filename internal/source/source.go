// Package source turns asset references into decoded images. A reference
// is an image file path, a PDF page ("deck.pdf#3", pages count from 1) or
// a generated QR code ("qr:https://example.com").
package source

import (
	"fmt"
	"image"
	"math"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Source enumerates the pages of an input (a PDF or a folder of images)
// so a project can be built from it.
type Source interface {
	PageCount() int
	GetPageDimensions(index int) (width, height float64, err error)
	RenderPage(index int, dpi int) (image.Image, error)
	// Ref is the asset reference that decodes page index later on.
	Ref(index int) string
	Close() error
}

// Open picks a Source for path: PDF files go through MuPDF, anything else
// is treated as an image file or a directory of images.
func Open(path string) (Source, error) {
	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return NewFitzPDFSource(path)
	}
	return NewImageSource(path)
}

type FitzPDFSource struct {
	doc  *fitz.Document
	path string
}

func NewFitzPDFSource(path string) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	return &FitzPDFSource{doc: doc, path: path}, nil
}

func (f *FitzPDFSource) PageCount() int {
	return f.doc.NumPage()
}

func (f *FitzPDFSource) GetPageDimensions(index int) (float64, float64, error) {
	rect, err := f.doc.Bound(index)
	if err != nil {
		return 0, 0, err
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

// RenderPage opens a private document handle: MuPDF contexts are not safe
// to share between the loader's workers.
func (f *FitzPDFSource) RenderPage(index int, dpi int) (image.Image, error) {
	return renderPDFPage(f.path, index, dpi)
}

func (f *FitzPDFSource) Ref(index int) string {
	return fmt.Sprintf("%s#%d", f.path, index+1)
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}

// PixelSize is the size page index will have once decoded at dpi. PDF
// dimensions are in points; image files already are pixels.
func PixelSize(src Source, index, dpi int) (float64, float64, error) {
	w, h, err := src.GetPageDimensions(index)
	if err != nil {
		return 0, 0, err
	}
	if _, ok := src.(*FitzPDFSource); ok && dpi > 0 {
		k := float64(dpi) / 72
		w, h = math.Round(w*k), math.Round(h*k)
	}
	return w, h, nil
}

func renderPDFPage(path string, index, dpi int) (image.Image, error) {
	workerDoc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	defer workerDoc.Close()
	if index < 0 || index >= workerDoc.NumPage() {
		return nil, fmt.Errorf("page %d out of range (document has %d)", index+1, workerDoc.NumPage())
	}
	return workerDoc.ImageDPI(index, float64(dpi))
}

func statDir(path string) (bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return fi.IsDir(), nil
}
