// Package pdfform reads and fills AcroForm fields and extracts plain text from PDF documents.
package pdfform

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// no user config directory, every call runs on the default configuration
	api.DisableConfigDir()
}

var ErrUnknownField = errors.New("unknown form field")

// FieldKind is the pdfcpu export group a field belongs to
type FieldKind string

const (
	KindText     FieldKind = "textfield"
	KindDate     FieldKind = "datefield"
	KindCheckBox FieldKind = "checkbox"
	KindRadio    FieldKind = "radiobuttongroup"
	KindCombo    FieldKind = "combobox"
	KindList     FieldKind = "listbox"
)

var fieldKinds = []FieldKind{KindText, KindDate, KindCombo, KindRadio, KindList, KindCheckBox}

// Field is one AcroForm field with its current value rendered as text
type Field struct {
	Name  string
	Kind  FieldKind
	Value string
	Page  int
	objNr int
}

type exportedField struct {
	Pages  []int           `json:"pages"`
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Value  json.RawMessage `json:"value"`
	Values []string        `json:"values"`
}

type exportedForm map[FieldKind][]exportedField

type exportedDoc struct {
	Forms []exportedForm `json:"forms"`
}

func newConfiguration() *model.Configuration {
	return model.NewDefaultConfiguration()
}

func exportForm(content []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := api.ExportFormJSON(bytes.NewReader(content), &buf, "form.pdf", newConfiguration()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadFields returns the named fields of the document's form in page order.
// A field name that appears more than once is reported once.
func ReadFields(content []byte) ([]Field, error) {
	raw, err := exportForm(content)
	if err != nil {
		return nil, fmt.Errorf("export form: %w", err)
	}

	var doc exportedDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode form export: %w", err)
	}

	var fields []Field
	seen := make(map[string]bool)
	for _, form := range doc.Forms {
		for _, kind := range fieldKinds {
			for _, f := range form[kind] {
				name := strings.TrimSpace(f.Name)
				if name == "" || seen[name] {
					continue
				}
				seen[name] = true

				field := Field{Name: name, Kind: kind, Value: renderValue(kind, f)}
				if len(f.Pages) > 0 {
					field.Page = f.Pages[0]
				}
				field.objNr, _ = strconv.Atoi(f.ID)
				fields = append(fields, field)
			}
		}
	}

	// The export groups fields by kind and loses the AcroForm order. Page, then
	// object number, stands in for it: a field whose widget was created after a
	// later-numbered one on the same page is read out of creation order.
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].Page != fields[j].Page {
			return fields[i].Page < fields[j].Page
		}
		return fields[i].objNr < fields[j].objNr
	})

	return fields, nil
}

func renderValue(kind FieldKind, f exportedField) string {
	switch kind {
	case KindList:
		return strings.Join(f.Values, ", ")
	case KindCheckBox:
		var checked bool
		if err := json.Unmarshal(f.Value, &checked); err == nil && checked {
			return "Yes"
		}
		return ""
	default:
		var s string
		if err := json.Unmarshal(f.Value, &s); err != nil {
			return ""
		}
		return s
	}
}

// Fill writes a copy of the document with the named fields set to values.
// Every key of values must name a field of the form.
func Fill(content []byte, values map[string]string, w io.Writer) error {
	raw, err := exportForm(content)
	if err != nil {
		return fmt.Errorf("export form: %w", err)
	}

	// Decoded loosely so that attributes pdfcpu needs on import survive untouched
	var doc struct {
		Header json.RawMessage                  `json:"header,omitempty"`
		Forms  []map[FieldKind][]map[string]any `json:"forms"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode form export: %w", err)
	}

	matched := make(map[string]bool, len(values))
	for _, form := range doc.Forms {
		for kind, fields := range form {
			for _, f := range fields {
				name, _ := f["name"].(string)
				value, ok := values[strings.TrimSpace(name)]
				if !ok {
					continue
				}
				matched[strings.TrimSpace(name)] = true
				setValue(kind, f, value)
			}
		}
	}

	for name := range values {
		if !matched[name] {
			return fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode form values: %w", err)
	}

	if err := api.FillForm(bytes.NewReader(content), bytes.NewReader(payload), w, newConfiguration()); err != nil {
		return fmt.Errorf("fill form: %w", err)
	}

	return nil
}

func setValue(kind FieldKind, f map[string]any, value string) {
	switch kind {
	case KindCheckBox:
		f["value"] = IsTruthy(value)
	case KindList:
		var selected []string
		for _, v := range strings.Split(value, ",") {
			if v = strings.TrimSpace(v); v != "" {
				selected = append(selected, v)
			}
		}
		f["values"] = selected
	default:
		f["value"] = value
	}
}

// IsTruthy reports whether an answer ticks a checkbox
func IsTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "y", "true", "x", "on", "1", "checked":
		return true
	}
	return false
}

// ExtractText returns the plain text of every page, pages separated by newlines
func ExtractText(content []byte) (text string, err error) {
	// the text extractor panics on some malformed content streams
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract text: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}

	return buf.String(), nil
}

// Reader exposes the package functions as an injectable value
type Reader struct{}

func (Reader) ReadFields(content []byte) ([]Field, error) { return ReadFields(content) }

func (Reader) ExtractText(content []byte) (string, error) { return ExtractText(content) }

func (Reader) Fill(content []byte, values map[string]string, w io.Writer) error {
	return Fill(content, values, w)
}
