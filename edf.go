package mesa

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// edfAnnotationLabel marks the EDF+ annotation channel, which holds
// text rather than samples.
const edfAnnotationLabel = "EDF Annotations"

// Header sizes: the fixed part, and the part added per signal.
const (
	edfFixedHeaderLen  = 256
	edfSignalHeaderLen = 256
)

// An EDFSignal describes one signal of an EDF recording.
type EDFSignal struct {
	Label             string
	Transducer        string
	PhysicalDimension string
	PhysicalMin       float64
	PhysicalMax       float64
	DigitalMin        int
	DigitalMax        int
	Prefiltering      string
	SamplesPerRecord  int
}

// IsAnnotation reports whether the signal is an EDF+ annotation channel.
func (sig *EDFSignal) IsAnnotation() bool {
	return sig.Label == edfAnnotationLabel
}

// scale maps a digital value to physical units.
func (sig *EDFSignal) scale(d int16) float64 {

	dr := float64(sig.DigitalMax - sig.DigitalMin)
	gain := (sig.PhysicalMax - sig.PhysicalMin) / dr
	return (float64(d)-float64(sig.DigitalMin))*gain + sig.PhysicalMin
}

// An EDFReader reads European Data Format recordings.  The header is
// read when the reader is created, and the Read method reads the
// samples of all signals.
//
// Technical information about the file format can be found here:
// https://www.edfplus.info/specs/edf.html
type EDFReader struct {

	// Format version, "0" for EDF and EDF+.
	Version string

	// Local patient and recording identification.
	PatientID   string
	RecordingID string

	// Start of the recording.  EDF stores no time zone, so the value
	// is in UTC.
	StartTime time.Time

	// Number of bytes in the header record.
	HeaderBytes int

	// "EDF+C" or "EDF+D" for EDF+ files, empty for plain EDF.
	Reserved string

	// Number of data records.  A value of -1 in the file is resolved
	// from the file size.
	NumRecords int

	// Duration of one data record in seconds.
	RecordDuration float64

	Signals []EDFSignal

	reader io.ReadSeeker
}

// An EDFRecording holds the decoded signals of a recording.  Data[j]
// holds the samples of Signals[j] in physical units.  Annotation
// channels are not included.
type EDFRecording struct {
	StartTime      time.Time
	RecordDuration float64
	Signals        []EDFSignal
	Data           []*Series
}

// Signal returns the samples of the signal with the given label, or
// nil if there is no such signal.
func (rec *EDFRecording) Signal(label string) *Series {

	for j := range rec.Signals {
		if rec.Signals[j].Label == label {
			return rec.Data[j]
		}
	}
	return nil
}

// SampleRate returns the sampling frequency of signal j in Hz.
func (rec *EDFRecording) SampleRate(j int) float64 {

	if rec.RecordDuration == 0 {
		return 0
	}
	return float64(rec.Signals[j].SamplesPerRecord) / rec.RecordDuration
}

// NewEDFReader returns an EDFReader for reading from the given io
// channel.
func NewEDFReader(r io.ReadSeeker) (*EDFReader, error) {

	rdr := new(EDFReader)
	rdr.reader = r

	if err := rdr.readHeader(); err != nil {
		return nil, err
	}

	return rdr, nil
}

// headerFields splits buf into trimmed ASCII fields of the given
// widths.
func headerFields(buf []byte, widths ...int) []string {

	fields := make([]string, len(widths))
	pos := 0
	for k, w := range widths {
		fields[k] = strings.TrimSpace(string(buf[pos : pos+w]))
		pos += w
	}
	return fields
}

func parseEDFInt(name, s string) (int, error) {

	x, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("edf header field %s: %w", name, err)
	}
	return x, nil
}

func parseEDFFloat(name, s string) (float64, error) {

	x, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("edf header field %s: %w", name, err)
	}
	return x, nil
}

// parseEDFStart combines the dd.mm.yy and hh.mm.ss header fields.
// Two digit years 85-99 are 1985-1999, the rest are 2000-2084.
func parseEDFStart(date, clock string) (time.Time, error) {

	t, err := time.Parse("02.01.06 15.04.05", date+" "+clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("edf start time: %w", err)
	}

	year := t.Year() % 100
	if year >= 85 {
		year += 1900
	} else {
		year += 2000
	}

	return time.Date(year, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
}

func (rdr *EDFReader) readHeader() error {

	if _, err := rdr.reader.Seek(0, io.SeekStart); err != nil {
		return err
	}

	buf := make([]byte, edfFixedHeaderLen)
	if _, err := io.ReadFull(rdr.reader, buf); err != nil {
		return fmt.Errorf("edf file appears to be truncated: %w", err)
	}

	f := headerFields(buf, 8, 80, 80, 8, 8, 8, 44, 8, 8, 4)
	rdr.Version = f[0]
	rdr.PatientID = f[1]
	rdr.RecordingID = f[2]
	rdr.Reserved = f[6]

	var err error
	rdr.StartTime, err = parseEDFStart(f[3], f[4])
	if err != nil {
		return err
	}
	if rdr.HeaderBytes, err = parseEDFInt("header bytes", f[5]); err != nil {
		return err
	}
	if rdr.NumRecords, err = parseEDFInt("number of records", f[7]); err != nil {
		return err
	}
	if rdr.RecordDuration, err = parseEDFFloat("record duration", f[8]); err != nil {
		return err
	}
	ns, err := parseEDFInt("number of signals", f[9])
	if err != nil {
		return err
	}
	if ns <= 0 {
		return fmt.Errorf("edf header declares %d signals", ns)
	}
	if rdr.HeaderBytes != edfFixedHeaderLen+ns*edfSignalHeaderLen {
		return fmt.Errorf("edf header size %d does not match %d signals", rdr.HeaderBytes, ns)
	}

	buf = make([]byte, ns*edfSignalHeaderLen)
	if _, err := io.ReadFull(rdr.reader, buf); err != nil {
		return fmt.Errorf("edf file appears to be truncated: %w", err)
	}

	// Each signal field is stored for all signals before the next
	// field starts.
	widths := []int{16, 80, 8, 8, 8, 8, 8, 80, 8, 32}
	cols := make([][]string, len(widths))
	pos := 0
	for k, w := range widths {
		cols[k] = make([]string, ns)
		for j := 0; j < ns; j++ {
			cols[k][j] = strings.TrimSpace(string(buf[pos : pos+w]))
			pos += w
		}
	}

	rdr.Signals = make([]EDFSignal, ns)
	for j := range rdr.Signals {
		sig := &rdr.Signals[j]
		sig.Label = cols[0][j]
		sig.Transducer = cols[1][j]
		sig.PhysicalDimension = cols[2][j]
		sig.Prefiltering = cols[7][j]
		if sig.PhysicalMin, err = parseEDFFloat("physical minimum", cols[3][j]); err != nil {
			return err
		}
		if sig.PhysicalMax, err = parseEDFFloat("physical maximum", cols[4][j]); err != nil {
			return err
		}
		if sig.DigitalMin, err = parseEDFInt("digital minimum", cols[5][j]); err != nil {
			return err
		}
		if sig.DigitalMax, err = parseEDFInt("digital maximum", cols[6][j]); err != nil {
			return err
		}
		if sig.SamplesPerRecord, err = parseEDFInt("samples per record", cols[8][j]); err != nil {
			return err
		}
		if sig.SamplesPerRecord <= 0 {
			return fmt.Errorf("edf signal %q: %d samples per record", sig.Label, sig.SamplesPerRecord)
		}
		if sig.DigitalMin >= sig.DigitalMax {
			return fmt.Errorf("edf signal %q: digital minimum %d is not below maximum %d",
				sig.Label, sig.DigitalMin, sig.DigitalMax)
		}
	}

	return rdr.checkRecords()
}

// recordBytes returns the size of one data record.
func (rdr *EDFReader) recordBytes() int64 {

	var n int64
	for _, sig := range rdr.Signals {
		n += 2 * int64(sig.SamplesPerRecord)
	}
	return n
}

// checkRecords compares the declared number of records with the size
// of the file.  A count of -1, written by recorders that were not
// closed, is replaced by the number of complete records in the file.
func (rdr *EDFReader) checkRecords() error {

	end, err := rdr.reader.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if _, err := rdr.reader.Seek(int64(rdr.HeaderBytes), io.SeekStart); err != nil {
		return err
	}

	avail := end - int64(rdr.HeaderBytes)
	rb := rdr.recordBytes()
	if rb <= 0 {
		return errors.New("edf records are empty")
	}

	if rdr.NumRecords < 0 {
		rdr.NumRecords = int(avail / rb)
		return nil
	}
	if int64(rdr.NumRecords) > avail/rb {
		return fmt.Errorf("edf file appears to be truncated: header declares %d records of %d bytes, file holds %d bytes of data",
			rdr.NumRecords, rb, avail)
	}

	return nil
}

// Read reads all data records and returns the signals in physical
// units.
func (rdr *EDFReader) Read() (*EDFRecording, error) {

	if _, err := rdr.reader.Seek(int64(rdr.HeaderBytes), io.SeekStart); err != nil {
		return nil, err
	}

	ns := len(rdr.Signals)
	data := make([][]float64, ns)
	bufs := make([][]int16, ns)
	if rdr.NumRecords > 0 {
		for j, sig := range rdr.Signals {
			bufs[j] = make([]int16, sig.SamplesPerRecord)
		}
	}

	for r := 0; r < rdr.NumRecords; r++ {
		for j := range rdr.Signals {
			sig := &rdr.Signals[j]
			if err := binary.Read(rdr.reader, binary.LittleEndian, bufs[j]); err != nil {
				return nil, fmt.Errorf("edf record %d signal %q: %w", r, sig.Label, err)
			}
			if sig.IsAnnotation() {
				continue
			}
			for _, d := range bufs[j] {
				data[j] = append(data[j], sig.scale(d))
			}
		}
	}

	rec := &EDFRecording{
		StartTime:      rdr.StartTime,
		RecordDuration: rdr.RecordDuration,
	}
	for j, sig := range rdr.Signals {
		if sig.IsAnnotation() {
			continue
		}
		ser, err := NewSeries(sig.Label, data[j], nil)
		if err != nil {
			return nil, err
		}
		rec.Signals = append(rec.Signals, sig)
		rec.Data = append(rec.Data, ser)
	}

	return rec, nil
}
