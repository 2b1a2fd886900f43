package mapview

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrDuplicateSource = errors.New("source already exists")
	ErrDuplicateLayer  = errors.New("layer already exists")
	ErrUnknownSource   = errors.New("unknown source")
	ErrNoBinding       = errors.New("no handler bound")
)

// Binding is a layer event with at least one handler.
type Binding struct {
	Event EventType `json:"event" enum:"click,mouseenter,mouseleave" doc:"Pointer event"`
	Layer string    `json:"layer" doc:"Layer ID"`
}

// Program is the serializable form of a Document, replayed by the browser.
type Program struct {
	View     View              `json:"view" doc:"Initial view"`
	Controls []Control         `json:"controls" doc:"Map controls"`
	Sources  map[string]Source `json:"sources" doc:"Data sources by ID"`
	Layers   []Layer           `json:"layers" doc:"Layers in draw order"`
	Bindings []Binding         `json:"bindings" doc:"Layer events forwarded to the server"`
}

// Document is a Surface that records the map program instead of drawing it.
// Handlers stay server-side and are run by Dispatch.
type Document struct {
	mu       sync.RWMutex
	view     View
	controls []Control
	sources  map[string]Source
	layers   []Layer
	bindings []Binding
	handlers map[Binding][]Handler
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		sources:  make(map[string]Source),
		handlers: make(map[Binding][]Handler),
	}
}

func (d *Document) Init(v View) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.view = v
}

func (d *Document) AddControl(c Control) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.controls = append(d.controls, c)
}

func (d *Document) AddSource(id string, src Source) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.sources[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateSource, id)
	}
	d.sources[id] = src
	return nil
}

func (d *Document) AddLayer(l Layer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.layers {
		if existing.ID == l.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateLayer, l.ID)
		}
	}
	if _, ok := d.sources[l.Source]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSource, l.Source)
	}
	d.layers = append(d.layers, l)
	return nil
}

func (d *Document) On(event EventType, layerID string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := Binding{Event: event, Layer: layerID}
	if _, ok := d.handlers[b]; !ok {
		d.bindings = append(d.bindings, b)
	}
	d.handlers[b] = append(d.handlers[b], h)
}

// Program returns a snapshot of the recorded program.
func (d *Document) Program() Program {
	d.mu.RLock()
	defer d.mu.RUnlock()

	sources := make(map[string]Source, len(d.sources))
	for id, s := range d.sources {
		sources[id] = s
	}
	return Program{
		View:     d.view,
		Controls: append([]Control{}, d.controls...),
		Sources:  sources,
		Layers:   append([]Layer{}, d.layers...),
		Bindings: append([]Binding{}, d.bindings...),
	}
}

// MarshalJSON encodes the document's program.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Program())
}

// Dispatch runs the handlers bound to event on layerID and returns the
// effects they produced.
func (d *Document) Dispatch(event EventType, layerID string, in *Interaction) ([]Effect, error) {
	d.mu.RLock()
	hs := d.handlers[Binding{Event: event, Layer: layerID}]
	d.mu.RUnlock()

	if len(hs) == 0 {
		return nil, fmt.Errorf("%w: %s on %s", ErrNoBinding, event, layerID)
	}
	for _, h := range hs {
		h(in)
	}
	return in.Effects(), nil
}
