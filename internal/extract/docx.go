package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

func extractDOCX(data []byte) (string, error) {
	paragraphs, err := docxParagraphs(data)
	if err != nil {
		return "", newExtractionError(KindDOCX, err)
	}
	kept := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	result := strings.Join(kept, pageSeparator)
	if strings.TrimSpace(result) == "" {
		return NoTextInDOCX, nil
	}
	return result, nil
}

func docxParagraphs(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, errors.New("empty docx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, errors.New("document.xml file not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return walkParagraphs(rc)
}

// walkParagraphs collects the run text of every body paragraph in order.
// Tabs and breaks inside a paragraph render as they do in Word.
func walkParagraphs(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)
	var (
		out    []string
		cur    strings.Builder
		inPara int
		inText bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				if inPara == 0 {
					cur.Reset()
				}
				inPara++
			case "t":
				inText = inPara > 0
			case "tab":
				if inPara > 0 {
					cur.WriteString("\t")
				}
			case "br", "cr":
				if inPara > 0 {
					cur.WriteString("\n")
				}
			}
		case xml.CharData:
			if inText {
				cur.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inPara > 0 {
					inPara--
					if inPara == 0 {
						out = append(out, cur.String())
					}
				}
			}
		}
	}
	return out, nil
}
