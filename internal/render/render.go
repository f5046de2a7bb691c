// Package render turns lookup display states into terminal text.
package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/neexbeast/agroclima/internal/lookup"
)

// Failure messages shown for each error kind.
const (
	MsgNotFound    = "City not found. Check the spelling."
	MsgUnavailable = "Service unavailable at the moment."
)

// Message returns the user-facing text for kind.
func Message(kind lookup.ErrorKind) string {
	if kind == lookup.NotFound {
		return MsgNotFound
	}
	return MsgUnavailable
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// State writes s to w. Idle writes nothing.
func State(w io.Writer, s lookup.DisplayState) error {
	var err error
	switch s := s.(type) {
	case lookup.Idle:
	case lookup.Loading:
		_, err = fmt.Fprintf(w, "Searching %s...\n", s.Query)
	case lookup.Success:
		err = Card(w, s.Result)
	case lookup.Failed:
		_, err = fmt.Fprintln(w, Message(s.Kind))
	default:
		err = fmt.Errorf("unknown display state %T", s)
	}
	return err
}

// Card writes the weather card for r.
func Card(w io.Writer, r lookup.LookupResult) error {
	rd := r.Reading
	_, err := fmt.Fprintf(w,
		"%s\n%s  (updated %s)\n  Temperature    %s °C\n  Precipitation  %s mm\n  Humidity       %s %%\n  Wind           %s km/h\n",
		r.City,
		rd.Condition(),
		r.RetrievedAt.Format("15:04"),
		num(rd.Temperature),
		num(rd.Precipitation),
		num(rd.Humidity),
		num(rd.WindSpeed),
	)
	return err
}
