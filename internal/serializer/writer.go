// Package serializer renders reports, dumps and readings as table, JSON,
// YAML or CBOR.
package serializer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"codeberg.org/mutker/amdmetrics/internal/decoder"
	"codeberg.org/mutker/amdmetrics/internal/device"
	"codeberg.org/mutker/amdmetrics/internal/errors"
	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// Format represents the output format type
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatCBOR  Format = "cbor"
)

// SupportedFormats returns every accepted format name.
func SupportedFormats() []string {
	return []string{
		string(FormatTable),
		string(FormatJSON),
		string(FormatYAML),
		string(FormatCBOR),
	}
}

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	switch f {
	case FormatTable, FormatJSON, FormatYAML, FormatCBOR:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", errors.New().WithMessage(ErrUnknownFormat,
			fmt.Sprintf("unknown format %q, expected one of %s", name, strings.Join(SupportedFormats(), ", ")))
	}
}

// Writer serializes values in one format.
type Writer struct {
	format Format
	output io.Writer
}

// NewWriter creates a Writer. A nil output writes to stdout.
func NewWriter(format Format, output io.Writer) *Writer {
	if output == nil {
		output = os.Stdout
	}
	if format == "" {
		format = FormatTable
	}

	return &Writer{format: format, output: output}
}

func (w *Writer) Format() Format {
	return w.format
}

// Serialize writes v. The table format only knows Report, Dump and
// reading slices.
func (w *Writer) Serialize(v any) error {
	errFactory := errors.New()

	var err error
	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.output)
		enc.SetIndent("", "  ")
		err = enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w.output)
		enc.SetIndent(2)
		err = enc.Encode(v)
		if err == nil {
			err = enc.Close()
		}
	case FormatCBOR:
		err = cbor.NewEncoder(w.output).Encode(v)
	case FormatTable:
		return w.table(v)
	default:
		return errFactory.WithMessage(ErrUnknownFormat, string(w.format))
	}

	if err != nil {
		return errFactory.WithData(ErrEncodeFailed, struct {
			Format string
			Error  string
		}{
			Format: string(w.format),
			Error:  err.Error(),
		})
	}

	return nil
}

func (w *Writer) table(v any) error {
	tw := tabwriter.NewWriter(w.output, 0, 0, 2, ' ', 0)

	switch t := v.(type) {
	case Report:
		writeReport(tw, &t)
	case *Report:
		writeReport(tw, t)
	case Dump:
		writeDump(tw, &t)
	case *Dump:
		writeDump(tw, t)
	case []device.Reading:
		writeReadings(tw, t)
	default:
		return errors.New().WithMessage(ErrUnsupportedValue, fmt.Sprintf("%T", v))
	}

	if err := tw.Flush(); err != nil {
		return errors.New().Wrap(ErrEncodeFailed, err)
	}

	return nil
}

func writeReport(tw io.Writer, r *Report) {
	fmt.Fprintf(tw, "%s\t%s\n", r.Device, r.Path)
	if r.Error != "" {
		fmt.Fprintf(tw, "  error\t%s\n", r.Error)
		return
	}
	fmt.Fprintf(tw, "  revision\t%s\n", r.Revision)
	fmt.Fprintf(tw, "  size\t%d\n", r.Size)
	if r.Cores > 0 {
		fmt.Fprintf(tw, "  functional cores\t%d\n", r.Cores)
	}
	fmt.Fprintln(tw, "  CATEGORY\tLABEL\tVALUE")
	for _, rd := range r.Readings {
		fmt.Fprintf(tw, "  %s\t%s\t%d\n", rd.Kind, rd.Label, rd.Value)
	}
}

func writeDump(tw io.Writer, d *Dump) {
	fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Device, d.Path, d.Revision)
	for _, f := range d.Fields {
		fmt.Fprintf(tw, "  %s\t%s\n", f.Name, formatRaw(f))
	}
}

func writeReadings(tw io.Writer, readings []device.Reading) {
	fmt.Fprintln(tw, "DEVICE\tCATEGORY\tLABEL\tVALUE")
	for _, rd := range readings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", rd.Qualified(), rd.Kind, rd.Label, rd.Value)
	}
}

func formatRaw(f decoder.Leaf) string {
	return fmt.Sprintf("%d (0x%x)", f.Value, f.Value)
}
