package source

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"
)

type RefKind int

const (
	RefFile RefKind = iota
	RefPDFPage
	RefQR
)

const qrPrefix = "qr:"

// Ref is a parsed asset reference.
type Ref struct {
	Kind    RefKind
	Path    string
	Page    int // zero-based
	Payload string
}

func ParseRef(s string) (Ref, error) {
	if s == "" {
		return Ref{}, errors.New("empty asset reference")
	}
	if payload, ok := strings.CutPrefix(s, qrPrefix); ok {
		if payload == "" {
			return Ref{}, errors.New("empty qr payload")
		}
		return Ref{Kind: RefQR, Payload: payload}, nil
	}
	if i := strings.LastIndex(s, "#"); i > 0 && strings.HasSuffix(strings.ToLower(s[:i]), ".pdf") {
		page, err := strconv.Atoi(s[i+1:])
		if err != nil || page < 1 {
			return Ref{}, fmt.Errorf("bad pdf page in %q", s)
		}
		return Ref{Kind: RefPDFPage, Path: s[:i], Page: page - 1}, nil
	}
	return Ref{Kind: RefFile, Path: s}, nil
}

// QRRef builds the reference of a QR code for payload.
func QRRef(payload string) string {
	return qrPrefix + payload
}

// Decoder turns references into images.
type Decoder struct {
	DPI    int
	QRSize int
}

func NewDecoder() *Decoder {
	return &Decoder{DPI: 150, QRSize: 512}
}

func (d *Decoder) Decode(ref string) (image.Image, error) {
	r, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}
	switch r.Kind {
	case RefQR:
		return renderQR(r.Payload, d.QRSize)
	case RefPDFPage:
		return renderPDFPage(r.Path, r.Page, d.DPI)
	default:
		return decodeFile(r.Path)
	}
}

func renderQR(payload string, size int) (image.Image, error) {
	q, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	if size <= 0 {
		size = 256
	}
	return q.Image(size), nil
}
