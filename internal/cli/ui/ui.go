// Package ui renders CLI output: status lines, query responses and plans.
package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/satishbabariya/prisma-engine/internal/core/query/ir"
	"github.com/satishbabariya/prisma-engine/internal/core/value"
)

var (
	PrimaryColor   = lipgloss.Color("#00D9FF")
	SuccessColor   = lipgloss.Color("#00FF88")
	WarningColor   = lipgloss.Color("#FFB800")
	ErrorColor     = lipgloss.Color("#FF4444")
	SecondaryColor = lipgloss.Color("#6C757D")

	TitleStyle     = lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true)
	SuccessStyle   = lipgloss.NewStyle().Foreground(SuccessColor).Bold(true)
	ErrorStyle     = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	WarningStyle   = lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	InfoStyle      = lipgloss.NewStyle().Foreground(PrimaryColor)
	SecondaryStyle = lipgloss.NewStyle().Foreground(SecondaryColor)
)

// Output formats for query responses.
const (
	FormatJSON  = "json"
	FormatTable = "table"
)

// Printer writes to an output and an error stream.
type Printer struct {
	out io.Writer
	err io.Writer
}

// New creates a printer.
func New(out, err io.Writer) *Printer {
	return &Printer{out: out, err: err}
}

// Success prints a success line.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.out, SuccessStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

// Error prints an error line on the error stream.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.err, ErrorStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

// Warning prints a warning line.
func (p *Printer) Warning(format string, args ...any) {
	fmt.Fprintln(p.out, WarningStyle.Render("⚠ "+fmt.Sprintf(format, args...)))
}

// Info prints an informational line.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintln(p.out, InfoStyle.Render("ℹ "+fmt.Sprintf(format, args...)))
}

// Section prints a section header.
func (p *Printer) Section(title string) {
	section := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(SecondaryColor).
		Render(TitleStyle.Render(title))
	fmt.Fprintln(p.out, section)
}

// JSON prints v as indented JSON.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table prints rows under headers.
func (p *Printer) Table(headers []string, rows [][]string) error {
	data := pterm.TableData{headers}
	data = append(data, rows...)
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(p.out, out)
	return nil
}

// Responses prints query responses in format.
func (p *Printer) Responses(responses []*ir.Response, format string) error {
	switch format {
	case "", FormatJSON:
		if len(responses) == 1 {
			return p.JSON(responses[0])
		}
		return p.JSON(map[string]any{"batchResult": responses})
	case FormatTable:
		for _, r := range responses {
			if err := p.responseTable(r); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown output format %q", format)
}

func (p *Printer) responseTable(r *ir.Response) error {
	p.Section(r.Key)
	if r.IsError() {
		p.Error("%s", r.Err.Error())
		return nil
	}
	var objects []*ir.Object
	switch d := r.Data.(type) {
	case nil:
		p.Info("no record")
		return nil
	case *ir.Object:
		objects = []*ir.Object{d}
	case []any:
		for _, item := range d {
			if o, ok := item.(*ir.Object); ok {
				objects = append(objects, o)
			}
		}
		if len(objects) == 0 {
			p.Info("no records")
			return nil
		}
	default:
		fmt.Fprintln(p.out, cell(d))
		return nil
	}

	headers := objects[0].Keys()
	rows := make([][]string, len(objects))
	for i, o := range objects {
		row := make([]string, len(headers))
		for j, h := range headers {
			v, _ := o.Get(h)
			row[j] = cell(v)
		}
		rows[i] = row
	}
	return p.Table(headers, rows)
}

// cell renders a payload value on one line; nested relations are shown
// as compact JSON.
func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return v
	case value.Value:
		if v.IsNull() {
			return "null"
		}
		return fmt.Sprint(v.Interface())
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

var (
	resultNode = color.New(color.FgCyan, color.Bold)
	edgeLine   = color.New(color.FgHiBlack)
)

// Plan prints a query graph plan. The result node is highlighted and edge
// lines are dimmed.
func (p *Printer) Plan(key, plan string) {
	p.Section(key)
	for _, line := range strings.Split(strings.TrimRight(plan, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "*"):
			resultNode.Fprintln(p.out, line)
		case strings.HasPrefix(strings.TrimSpace(line), "<-"):
			edgeLine.Fprintln(p.out, line)
		default:
			fmt.Fprintln(p.out, line)
		}
	}
}

// Summary prints counts of successful and failed responses, sorted by key.
func (p *Printer) Summary(responses []*ir.Response) {
	var failed []string
	for _, r := range responses {
		if r.IsError() {
			failed = append(failed, r.Key)
		}
	}
	sort.Strings(failed)
	if len(failed) == 0 {
		p.Success("%d operation(s) succeeded", len(responses))
		return
	}
	p.Warning("%d of %d operation(s) failed: %s", len(failed), len(responses), strings.Join(failed, ", "))
}
