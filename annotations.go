package mesa

import (
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// StageEventType is the EventType of scored events that carry a sleep
// stage.  Matching is by exact string equality.
const StageEventType = "Stages|Stages"

// EpochSeconds is the length of one scoring epoch.  Each stage event
// contributes one timeline entry per whole epoch of its duration.
const EpochSeconds = 30

// Timeline column names.
const (
	TimeColumn  = "time"
	SleepColumn = "sleep"
)

// A ScoredEvent is one annotated interval of an NSRR annotation file.
//
//	<ScoredEvent>
//	  <EventType>Stages|Stages</EventType>
//	  <EventConcept>Wake|0</EventConcept>
//	  <Start>0</Start>
//	  <Duration>90.0</Duration>
//	</ScoredEvent>
type ScoredEvent struct {
	XMLName      xml.Name
	EventType    *string `xml:"EventType"`
	EventConcept string  `xml:"EventConcept"`
	Start        string  `xml:"Start"`
	Duration     string  `xml:"Duration"`
}

// An EventGroup is a direct child of the document root.  Its children
// are decoded as scored events whatever their element name.
type EventGroup struct {
	XMLName xml.Name
	Events  []ScoredEvent `xml:",any"`
}

// A ScoredEventDocument is a decoded PSG annotation file.
type ScoredEventDocument struct {
	XMLName xml.Name
	Groups  []EventGroup `xml:",any"`
}

// charsetReader converts documents declared in a non UTF-8 encoding,
// e.g. ISO-8859-1, using the WHATWG encoding labels.
func charsetReader(label string, input io.Reader) (io.Reader, error) {

	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}

	return transform.NewReader(input, enc.NewDecoder()), nil
}

// ParseScoredEvents decodes an annotation document.  Every event must
// name its EventType; the error otherwise identifies the event by
// position.
func ParseScoredEvents(r io.Reader) (*ScoredEventDocument, error) {

	dec := xml.NewDecoder(r)
	dec.CharsetReader = charsetReader

	doc := new(ScoredEventDocument)
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("decode scored events: %w", err)
	}

	for g, grp := range doc.Groups {
		for e, ev := range grp.Events {
			if ev.EventType == nil {
				return nil, fmt.Errorf("%s[%d]/%s[%d]: missing EventType",
					grp.XMLName.Local, g, ev.XMLName.Local, e)
			}
		}
	}

	return doc, nil
}

// IsStage reports whether the event carries a sleep stage.
func (ev *ScoredEvent) IsStage() bool {
	return ev.EventType != nil && *ev.EventType == StageEventType
}

// Epochs returns the number of whole scoring epochs covered by the
// event.  Remainder seconds are dropped.
func (ev *ScoredEvent) Epochs() (int, error) {

	d, err := strconv.ParseFloat(strings.TrimSpace(ev.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("duration %q: %w", ev.Duration, err)
	}
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, fmt.Errorf("duration %q is not finite", ev.Duration)
	}

	return int(math.Floor(d / EpochSeconds)), nil
}

// Timeline flattens the stage events of the document into a table
// with one row per 30 second epoch.  The time column holds elapsed
// seconds (0, 30, 60, ...) counted over all stage events in document
// order, and the sleep column holds the stage label.  Events of any
// other type are skipped.
func (doc *ScoredEventDocument) Timeline() (*Table, error) {

	var elapsed int64
	var times []int64
	var stages []string

	for g := range doc.Groups {
		grp := &doc.Groups[g]
		for e := range grp.Events {
			ev := &grp.Events[e]
			if !ev.IsStage() {
				continue
			}
			n, err := ev.Epochs()
			if err != nil {
				return nil, fmt.Errorf("%s[%d]/%s[%d]: %w",
					grp.XMLName.Local, g, ev.XMLName.Local, e, err)
			}
			for i := 0; i < n; i++ {
				times = append(times, elapsed)
				stages = append(stages, ev.EventConcept)
				elapsed += EpochSeconds
			}
		}
	}

	if times == nil {
		times = []int64{}
		stages = []string{}
	}

	tcol, err := NewSeries(TimeColumn, times, nil)
	if err != nil {
		return nil, err
	}
	scol, err := NewSeries(SleepColumn, stages, nil)
	if err != nil {
		return nil, err
	}

	return NewTable(tcol, scol)
}

// ReadAnnotations decodes an annotation document and returns its
// sleep stage timeline.
func ReadAnnotations(r io.Reader) (*Table, error) {

	doc, err := ParseScoredEvents(r)
	if err != nil {
		return nil, err
	}

	return doc.Timeline()
}

// StageCode returns the numeric stage code carried after the final
// '|' of an NSRR stage label, e.g. 2 for "Stage 2 sleep|2".
func StageCode(label string) (int, bool) {

	k := strings.LastIndexByte(label, '|')
	if k < 0 {
		return 0, false
	}

	c, err := strconv.Atoi(strings.TrimSpace(label[k+1:]))
	if err != nil {
		return 0, false
	}

	return c, true
}
