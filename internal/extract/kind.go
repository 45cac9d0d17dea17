package extract

import "strings"

// Kind is the content family a document is extracted as.
type Kind string

const (
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
	KindDOCX  Kind = "docx"
)

// DefaultLanguage is the OCR language used when none is given.
const DefaultLanguage = "eng"

// Results that mean "nothing to read" rather than a failure.
const (
	NoPagesInPDF    = "No pages found in PDF"
	NoTextInPDF     = "No text could be extracted from PDF"
	NoTextInImage   = "No text could be extracted from image"
	NoTextInDOCX    = "No text found in DOCX document"
	pageSeparator   = "\n\n"
	noTextOnPageFmt = "[No text found on page %d]"
	pageErrorFmt    = "[Error processing page %d: %v]"
)

// IsNoText reports whether text is one of the "nothing extracted" results.
func IsNoText(text string) bool {
	switch strings.TrimSpace(text) {
	case NoPagesInPDF, NoTextInPDF, NoTextInImage, NoTextInDOCX:
		return true
	default:
		return false
	}
}

func (k Kind) label() string {
	switch k {
	case KindPDF:
		return "PDF"
	case KindDOCX:
		return "DOCX"
	case KindImage:
		return "image"
	default:
		return string(k)
	}
}
