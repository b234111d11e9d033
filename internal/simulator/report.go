// Package simulator turns transaction logs from a simulation or a landed
// transaction into a structured report.
package simulator

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
)

const (
	programPrefix = "Program "
	logPrefix     = "Program log: "
	dataPrefix    = "Program data: "
	returnPrefix  = "Program return: "
)

// NewResponse builds a report. An empty errText means success.
func NewResponse(req SimulationRequest, errText string, logs []string) *SimulationResponse {
	resp := &SimulationResponse{
		Request:           req,
		Status:            StatusSuccess,
		Error:             errText,
		Logs:              logs,
		CategorizedEvents: ParseLogs(logs),
	}
	if errText != "" {
		resp.Status = StatusFailed
	}
	return resp
}

// ParseLogs groups runtime log lines by program invocation. Invocations are
// returned in the order they started.
func ParseLogs(logs []string) []CategorizedEvent {
	var events []CategorizedEvent
	var stack []int
	current := func() *CategorizedEvent {
		if len(stack) == 0 {
			return nil
		}
		return &events[stack[len(stack)-1]]
	}
	pop := func() {
		if len(stack) > 0 {
			stack = stack[:len(stack)-1]
		}
	}

	for _, line := range logs {
		switch {
		case strings.HasPrefix(line, logPrefix):
			if e := current(); e != nil {
				e.Logs = append(e.Logs, strings.TrimPrefix(line, logPrefix))
			}
		case strings.HasPrefix(line, dataPrefix):
			if e := current(); e != nil {
				e.Data = strings.TrimPrefix(line, dataPrefix)
			}
		case strings.HasPrefix(line, returnPrefix):
			fields := strings.Fields(strings.TrimPrefix(line, returnPrefix))
			if len(fields) == 2 {
				events = append(events, CategorizedEvent{
					EventType: EventReturn,
					ProgramID: fields[0],
					Depth:     len(stack),
					Data:      fields[1],
				})
			}
		case strings.HasPrefix(line, programPrefix):
			fields := strings.Fields(strings.TrimPrefix(line, programPrefix))
			if len(fields) < 2 {
				continue
			}
			switch fields[1] {
			case "invoke":
				depth := len(stack) + 1
				if len(fields) > 2 {
					if d, err := strconv.Atoi(strings.Trim(fields[2], "[]")); err == nil {
						depth = d
					}
				}
				events = append(events, CategorizedEvent{EventType: EventInvoke, ProgramID: fields[0], Depth: depth})
				stack = append(stack, len(events)-1)
			case "consumed":
				if e := current(); e != nil && len(fields) > 2 {
					if n, err := strconv.ParseUint(fields[2], 10, 64); err == nil {
						e.Consumed = n
					}
				}
			case "success":
				pop()
			case "failed:":
				if e := current(); e != nil {
					e.Error = strings.Join(fields[2:], " ")
				}
				pop()
			}
		}
	}
	return events
}

// WriteJSON writes the report as indented JSON.
func (r *SimulationResponse) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.WithStack(enc.Encode(r))
}

// WriteText prints a human readable summary.
func (r *SimulationResponse) WriteText(w io.Writer) {
	if r.Status == StatusSuccess {
		color.New(color.FgGreen).Fprintln(w, "✓ Transaction succeeded")
	} else {
		color.New(color.FgRed).Fprintf(w, "✗ Transaction failed: %s\n", r.Error)
	}
	if r.Request.Signature != "" {
		color.New(color.FgCyan).Fprintf(w, "Signature: %s\n", r.Request.Signature)
	}
	if r.Slot != 0 {
		color.New(color.FgCyan).Fprintf(w, "Slot: %d, fee: %d lamports\n", r.Slot, r.Fee)
	}
	for _, e := range r.CategorizedEvents {
		if e.EventType != EventInvoke {
			continue
		}
		indent := strings.Repeat("  ", e.Depth)
		line := indent + e.ProgramID
		if e.Consumed > 0 {
			line += " (" + strconv.FormatUint(e.Consumed, 10) + " CU)"
		}
		if e.Error != "" {
			color.New(color.FgRed).Fprintf(w, "%s failed: %s\n", line, e.Error)
		} else {
			color.New(color.FgWhite).Fprintln(w, line)
		}
		for _, l := range e.Logs {
			color.New(color.FgYellow).Fprintf(w, "%s  %s\n", indent, l)
		}
	}
}
