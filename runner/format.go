package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Formatter renders events and summaries for a given output format.
type Formatter interface {
	// Format renders a single event.
	Format(event Event, result *Result) error

	// Summary renders the final result.
	Summary(result *Result) error
}

// Summarizer is implemented by handlers that can render a final summary.
type Summarizer interface {
	Summary(result *Result) error
}

// FormatHandler adapts a Formatter to the Handler interface.
type FormatHandler struct {
	formatter Formatter
	errW      io.Writer
}

// NewFormatHandler creates a handler backed by a formatter. Out-of-band
// error text is written to errW.
func NewFormatHandler(formatter Formatter, errW io.Writer) *FormatHandler {
	return &FormatHandler{formatter: formatter, errW: errW}
}

// Event renders the event through the formatter.
func (h *FormatHandler) Event(_ context.Context, event Event, result *Result) error {
	return h.formatter.Format(event, result)
}

// Err writes error text to the error writer.
func (h *FormatHandler) Err(text string) error {
	_, err := fmt.Fprintln(h.errW, text)

	return err
}

// Summary delegates to the formatter.
func (h *FormatHandler) Summary(result *Result) error {
	return h.formatter.Summary(result)
}

// VerboseFormatter prints one line per terminal event, with indented
// comments and plan trees.
type VerboseFormatter struct {
	w      io.Writer
	styles *Styles
}

// NewVerboseFormatter creates a plain sequential formatter.
func NewVerboseFormatter(w io.Writer) *VerboseFormatter {
	return &VerboseFormatter{w: w, styles: DefaultStyles()}
}

// Format renders a single event.
func (f *VerboseFormatter) Format(event Event, _ *Result) error {
	s := f.styles

	switch event.Action {
	case ActionRun:
		return nil

	case ActionOutput:
		for _, line := range strings.Split(event.Output, "\n") {
			_, err := fmt.Fprintf(f.w, "    %s\n", line)
			if err != nil {
				return err
			}
		}

		return nil

	case ActionPass:
		_, err := fmt.Fprintf(f.w, "%s %s %s\n",
			s.Pass.Render(s.SymbolPass),
			s.StepName.Render(event.PathString()),
			s.Duration.Render(event.Elapsed.Round(time.Millisecond).String()))

		return err

	case ActionFail:
		_, err := fmt.Fprintf(f.w, "%s %s\n    %s\n",
			s.Fail.Render(s.SymbolFail),
			s.StepName.Render(event.PathString()),
			s.Muted.Render(fmt.Sprintf("expectation failed: %s", event.Field)))

		return err

	case ActionSkip:
		_, err := fmt.Fprintf(f.w, "%s %s %s\n",
			s.Skip.Render(s.SymbolSkip),
			s.StepName.Render(event.PathString()),
			s.Dim.Render(event.Output))

		return err

	case ActionError:
		_, err := fmt.Fprintf(f.w, "%s %s\n    %s\n",
			s.Error.Render(s.SymbolFail),
			s.StepName.Render(event.PathString()),
			s.Muted.Render(event.Error.Error()))

		return err
	}

	return nil
}

// Summary prints final counts.
func (f *VerboseFormatter) Summary(result *Result) error {
	s := f.styles

	line := fmt.Sprintf("%d steps: %d passed, %d failed, %d skipped, %d errors in %s",
		result.Total, result.Passed, result.Failed, result.Skipped, result.Errors,
		result.Elapsed().Round(time.Millisecond))

	style := s.Pass
	if !result.Ok() {
		style = s.Fail
	}

	_, err := fmt.Fprintf(f.w, "\n%s\n", style.Render(line))

	return err
}

// jsonEvent is the wire shape for JSON output.
type jsonEvent struct {
	Time      time.Time `json:"time"`
	Action    Action    `json:"action"`
	Playbook  string    `json:"playbook,omitempty"`
	Path      string    `json:"path,omitempty"`
	ElapsedMS int64     `json:"elapsed_ms,omitempty"`
	Field     string    `json:"field,omitempty"`
	Expected  any       `json:"expected,omitempty"`
	Actual    any       `json:"actual,omitempty"`
	Error     string    `json:"error,omitempty"`
	Output    string    `json:"output,omitempty"`
}

type jsonSummary struct {
	Action    string `json:"action"`
	Total     int    `json:"total"`
	Passed    int    `json:"passed"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
	Errors    int    `json:"errors"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// JSONFormatter emits line-delimited JSON events.
type JSONFormatter struct {
	enc *json.Encoder
}

// NewJSONFormatter creates a JSON formatter writing to w.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{enc: json.NewEncoder(w)}
}

// Format encodes the event as one JSON line.
func (f *JSONFormatter) Format(event Event, _ *Result) error {
	je := jsonEvent{
		Time:      event.Time,
		Action:    event.Action,
		Playbook:  event.Playbook,
		Path:      event.PathString(),
		ElapsedMS: event.Elapsed.Milliseconds(),
		Field:     event.Field,
		Expected:  event.Expected,
		Actual:    event.Actual,
		Output:    event.Output,
	}

	if event.Error != nil {
		je.Error = event.Error.Error()
	}

	return f.enc.Encode(je)
}

// Summary encodes the final counts as one JSON line.
func (f *JSONFormatter) Summary(result *Result) error {
	return f.enc.Encode(jsonSummary{
		Action:    "summary",
		Total:     result.Total,
		Passed:    result.Passed,
		Failed:    result.Failed,
		Skipped:   result.Skipped,
		Errors:    result.Errors,
		ElapsedMS: result.Elapsed().Milliseconds(),
	})
}
