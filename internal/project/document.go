// Package project converts a sequencer project to and from its portable
// document form, the file users save and reopen across sessions.
package project

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/icco/videoseq/internal/sequencer"
)

// Version is the only document version this package reads and writes.
const Version = "1.0"

var (
	ErrUnsupportedVersion = errors.New("unsupported document version")
	ErrMalformedDocument  = errors.New("malformed document")
	ErrInvalidDocument    = errors.New("invalid document")
	ErrResourceLookup     = errors.New("clip lookup failed")
)

type GridSize struct {
	Rows int `json:"rows" yaml:"rows"`
	Cols int `json:"cols" yaml:"cols"`
}

// Instrument holds only the durable fields. Media handles and session
// locators never leave the process.
type Instrument struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Color        string `json:"color" yaml:"color"`
	GridPosition int    `json:"gridPosition" yaml:"gridPosition"`
}

type Clip struct {
	ID           string  `json:"id" yaml:"id"`
	InstrumentID string  `json:"instrumentId" yaml:"instrumentId"`
	StartTime    float64 `json:"startTime" yaml:"startTime"`
	Duration     float64 `json:"duration" yaml:"duration"`
	TrackIndex   int     `json:"trackIndex" yaml:"trackIndex"`
}

type Document struct {
	Version     string       `json:"version" yaml:"version"`
	BPM         float64      `json:"bpm" yaml:"bpm"`
	TotalBeats  float64      `json:"totalBeats" yaml:"totalBeats"`
	GridSize    GridSize     `json:"gridSize" yaml:"gridSize"`
	Instruments []Instrument `json:"instruments" yaml:"instruments"`
	Clips       []Clip       `json:"clips" yaml:"clips"`
}

// The raw* types mirror the document with pointers so that absent fields
// can be told apart from zero values.
type (
	rawGridSize struct {
		Rows *int `json:"rows" yaml:"rows"`
		Cols *int `json:"cols" yaml:"cols"`
	}

	rawInstrument struct {
		ID           *string `json:"id" yaml:"id"`
		Name         *string `json:"name" yaml:"name"`
		Color        *string `json:"color" yaml:"color"`
		GridPosition *int    `json:"gridPosition" yaml:"gridPosition"`
	}

	rawClip struct {
		ID           *string  `json:"id" yaml:"id"`
		InstrumentID *string  `json:"instrumentId" yaml:"instrumentId"`
		StartTime    *float64 `json:"startTime" yaml:"startTime"`
		Duration     *float64 `json:"duration" yaml:"duration"`
		TrackIndex   *int     `json:"trackIndex" yaml:"trackIndex"`
	}

	rawDocument struct {
		Version     *string          `json:"version" yaml:"version"`
		BPM         *float64         `json:"bpm" yaml:"bpm"`
		TotalBeats  *float64         `json:"totalBeats" yaml:"totalBeats"`
		GridSize    *rawGridSize     `json:"gridSize" yaml:"gridSize"`
		Instruments *[]rawInstrument `json:"instruments" yaml:"instruments"`
		Clips       *[]rawClip       `json:"clips" yaml:"clips"`
	}
)

// Marshal encodes the document as indented JSON.
func Marshal(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// MarshalYAML encodes the document as YAML.
func MarshalYAML(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a JSON or YAML document and checks that every field is
// present. Input that is valid JSON is held to JSON types and never retried
// as YAML. Apart from requiring a string version it does not look at the
// version or the field values.
func Decode(data []byte) (Document, error) {
	var raw rawDocument
	if json.Valid(data) {
		if err := json.Unmarshal(data, &raw); err != nil {
			return Document{}, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
		}
		return raw.document()
	}

	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	// yaml.v3 stores any scalar into a string field, so 1.0 would read as "1.0"
	var tagged struct {
		Version yaml.Node `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &tagged); err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	if v := tagged.Version; v.Kind != 0 && v.ShortTag() != "!!str" {
		return Document{}, fmt.Errorf("%w: version %q is a %s, not a string", ErrMalformedDocument, v.Value, v.ShortTag())
	}
	return raw.document()
}

func missing(field string) error {
	return fmt.Errorf("%w: missing field %s", ErrMalformedDocument, field)
}

func (r rawDocument) document() (Document, error) {
	switch {
	case r.Version == nil:
		return Document{}, missing("version")
	case r.BPM == nil:
		return Document{}, missing("bpm")
	case r.TotalBeats == nil:
		return Document{}, missing("totalBeats")
	case r.GridSize == nil:
		return Document{}, missing("gridSize")
	case r.GridSize.Rows == nil:
		return Document{}, missing("gridSize.rows")
	case r.GridSize.Cols == nil:
		return Document{}, missing("gridSize.cols")
	case r.Instruments == nil:
		return Document{}, missing("instruments")
	case r.Clips == nil:
		return Document{}, missing("clips")
	}

	doc := Document{
		Version:     *r.Version,
		BPM:         *r.BPM,
		TotalBeats:  *r.TotalBeats,
		GridSize:    GridSize{Rows: *r.GridSize.Rows, Cols: *r.GridSize.Cols},
		Instruments: make([]Instrument, 0, len(*r.Instruments)),
		Clips:       make([]Clip, 0, len(*r.Clips)),
	}
	for i, inst := range *r.Instruments {
		if inst.ID == nil || inst.Name == nil || inst.Color == nil || inst.GridPosition == nil {
			return Document{}, missing(fmt.Sprintf("instruments[%d]", i))
		}
		doc.Instruments = append(doc.Instruments, Instrument{
			ID:           *inst.ID,
			Name:         *inst.Name,
			Color:        *inst.Color,
			GridPosition: *inst.GridPosition,
		})
	}
	for i, c := range *r.Clips {
		if c.ID == nil || c.InstrumentID == nil || c.StartTime == nil || c.Duration == nil || c.TrackIndex == nil {
			return Document{}, missing(fmt.Sprintf("clips[%d]", i))
		}
		doc.Clips = append(doc.Clips, Clip{
			ID:           *c.ID,
			InstrumentID: *c.InstrumentID,
			StartTime:    *c.StartTime,
			Duration:     *c.Duration,
			TrackIndex:   *c.TrackIndex,
		})
	}
	return doc, nil
}

// State turns the document into a project state. Locators come from urls,
// keyed by instrument name; unmatched instruments get none.
func (d Document) State(urls map[string]string) sequencer.ProjectState {
	state := sequencer.DefaultProjectState()
	state.BPM = d.BPM
	state.TotalBeats = d.TotalBeats
	state.GridSize = sequencer.GridSize{Rows: d.GridSize.Rows, Cols: d.GridSize.Cols}
	for _, inst := range d.Instruments {
		state.Instruments = append(state.Instruments, sequencer.Instrument{
			ID:           inst.ID,
			Name:         inst.Name,
			VideoURL:     urls[inst.Name],
			Color:        inst.Color,
			GridPosition: inst.GridPosition,
		})
	}
	for _, c := range d.Clips {
		state.Clips = append(state.Clips, sequencer.Clip(c))
	}
	return state
}
