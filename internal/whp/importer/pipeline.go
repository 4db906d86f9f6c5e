package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/looplab/fsm"

	"github.com/bitfantasy/whp/internal/whp/entity"
)

// Pipeline states.
const (
	StateNoFile     = "no_file"
	StateParsed     = "parsed"
	StateUploading  = "uploading"
	StateValidated  = "validated"
	StateConfirming = "confirming"
	StateConfirmed  = "confirmed"
)

var allStates = []string{StateNoFile, StateParsed, StateUploading, StateValidated, StateConfirming, StateConfirmed}

var (
	// ErrBusy is returned while an upload or confirm is in flight.
	ErrBusy = errors.New("import request already in progress")
	// ErrInvalidState is returned for an action the current state does not allow.
	ErrInvalidState = errors.New("action not allowed in current import state")
	// ErrStaleSelection is returned when a result belongs to a file selection
	// that has since been replaced or reset.
	ErrStaleSelection = errors.New("file selection superseded")
	// ErrNoFile is returned by BeginUpload before any file was parsed.
	ErrNoFile = errors.New("no file selected")
	// ErrNoBatch is returned by BeginConfirm when no batch uuid is known.
	ErrNoBatch = errors.New("no validated batch")
)

// Upload is handed out by BeginUpload; Token must be passed back to
// FinishUpload.
type Upload struct {
	Token    uint64
	FileName string
	Data     []byte
}

// Confirm is handed out by BeginConfirm.
type Confirm struct {
	Token     uint64
	BatchUUID string
}

// Snapshot is the serializable form of a Pipeline.
type Snapshot struct {
	State     string                  `json:"state"`
	Selection uint64                  `json:"selection"`
	FileName  string                  `json:"file_name,omitempty"`
	File      []byte                  `json:"file,omitempty"`
	Preview   []entity.ImportedRecord `json:"preview"`
	Batch     *entity.ImportBatch     `json:"batch,omitempty"`
}

// Pipeline tracks one spreadsheet import: parse, remote validation and
// confirmation. The selection counter grows on every new file and every
// reset; results carrying an older token are discarded.
type Pipeline struct {
	mu        sync.Mutex
	machine   *fsm.FSM
	selection uint64
	fileName  string
	file      []byte
	preview   []entity.ImportedRecord
	batch     *entity.ImportBatch
}

// NewPipeline returns a pipeline in the no_file state.
func NewPipeline() *Pipeline {
	return &Pipeline{
		machine: newMachine(StateNoFile),
	}
}

func newMachine(initial string) *fsm.FSM {
	return fsm.NewFSM(
		initial,
		fsm.Events{
			{Name: "parse", Src: []string{StateNoFile, StateParsed, StateValidated, StateConfirmed}, Dst: StateParsed},
			{Name: "upload", Src: []string{StateParsed}, Dst: StateUploading},
			{Name: "upload_ok", Src: []string{StateUploading}, Dst: StateValidated},
			{Name: "upload_failed", Src: []string{StateUploading}, Dst: StateParsed},
			{Name: "confirm", Src: []string{StateValidated}, Dst: StateConfirming},
			{Name: "confirm_ok", Src: []string{StateConfirming}, Dst: StateConfirmed},
			{Name: "confirm_failed", Src: []string{StateConfirming}, Dst: StateValidated},
			{Name: "reset", Src: allStates, Dst: StateNoFile},
		},
		fsm.Callbacks{},
	)
}

// Restore rebuilds a pipeline from a snapshot.
func Restore(s Snapshot) (*Pipeline, error) {
	state := s.State
	if state == "" {
		state = StateNoFile
	}
	known := false
	for _, st := range allStates {
		if st == state {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("restore pipeline: unknown state %q", s.State)
	}

	p := &Pipeline{
		machine:   newMachine(state),
		selection: s.Selection,
		fileName:  s.FileName,
		file:      s.File,
		preview:   cloneRecords(s.Preview),
	}
	if s.Batch != nil {
		b := cloneBatch(*s.Batch)
		p.batch = &b
	}
	return p, nil
}

// Snapshot returns a copy of the pipeline state.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Snapshot{
		State:     p.machine.Current(),
		Selection: p.selection,
		FileName:  p.fileName,
		File:      p.file,
		Preview:   cloneRecords(p.preview),
	}
	if p.batch != nil {
		b := cloneBatch(*p.batch)
		s.Batch = &b
	}
	return s
}

// Select starts a new file selection and returns its token. Any parse,
// upload or confirm result still pending for an older token becomes stale.
func (p *Pipeline) Select() (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.busy() {
		return 0, ErrBusy
	}
	p.selection++
	return p.selection, nil
}

// CompleteParse applies the result of reading the file selected with token.
// A parse error aborts the import back to no_file.
func (p *Pipeline) CompleteParse(token uint64, name string, data []byte, records []entity.ImportedRecord, parseErr error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if token != p.selection {
		return ErrStaleSelection
	}
	if p.busy() {
		return ErrBusy
	}
	if parseErr != nil {
		p.clear()
		p.fire("reset")
		return parseErr
	}

	p.fileName = name
	p.file = data
	p.preview = cloneRecords(records)
	p.batch = nil
	p.fire("parse")
	return nil
}

// Parse selects, reads and applies a file in one step.
func (p *Pipeline) Parse(name string, data []byte) ([]entity.ImportedRecord, error) {
	token, err := p.Select()
	if err != nil {
		return nil, err
	}
	records, parseErr := ParseWorkbook(name, data)
	if err := p.CompleteParse(token, name, data, records, parseErr); err != nil {
		return nil, err
	}
	return cloneRecords(records), nil
}

// BeginUpload moves to uploading and returns the file to send.
func (p *Pipeline) BeginUpload() (Upload, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.machine.Current() {
	case StateUploading, StateConfirming:
		return Upload{}, ErrBusy
	case StateNoFile:
		return Upload{}, ErrNoFile
	case StateParsed:
	default:
		return Upload{}, ErrInvalidState
	}
	p.fire("upload")
	return Upload{Token: p.selection, FileName: p.fileName, Data: p.file}, nil
}

// FinishUpload applies the remote validation outcome. On success the preview
// is replaced by the returned rows and the batch is kept; on failure nothing
// but the state changes.
func (p *Pipeline) FinishUpload(token uint64, batch *entity.ImportBatch, remoteErr error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if token != p.selection || p.machine.Current() != StateUploading {
		return ErrStaleSelection
	}
	if remoteErr != nil || batch == nil {
		p.fire("upload_failed")
		return nil
	}

	b := cloneBatch(*batch)
	p.batch = &b
	if batch.Rows != nil {
		p.preview = mergeRows(batch.Rows)
	}
	p.fire("upload_ok")
	return nil
}

// BeginConfirm moves to confirming and returns the batch to commit.
func (p *Pipeline) BeginConfirm() (Confirm, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.machine.Current() {
	case StateUploading, StateConfirming:
		return Confirm{}, ErrBusy
	}
	if p.batch == nil || p.batch.BatchUUID == "" {
		return Confirm{}, ErrNoBatch
	}
	if p.machine.Current() != StateValidated {
		return Confirm{}, ErrInvalidState
	}
	p.fire("confirm")
	return Confirm{Token: p.selection, BatchUUID: p.batch.BatchUUID}, nil
}

// FinishConfirm applies the confirm outcome. A failure keeps the batch and
// preview so the confirm can be retried.
func (p *Pipeline) FinishConfirm(token uint64, remoteErr error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if token != p.selection || p.machine.Current() != StateConfirming {
		return ErrStaleSelection
	}
	if remoteErr != nil {
		p.fire("confirm_failed")
		return nil
	}
	p.fire("confirm_ok")
	return nil
}

// Reset drops the file, preview and batch from any state.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.selection++
	p.clear()
	p.fire("reset")
}

// State returns the current state name.
func (p *Pipeline) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.machine.Current()
}

// Busy reports whether an upload or confirm is in flight.
func (p *Pipeline) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busy()
}

// FileName returns the name of the parsed file.
func (p *Pipeline) FileName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fileName
}

// Preview returns a copy of the current preview records.
func (p *Pipeline) Preview() []entity.ImportedRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneRecords(p.preview)
}

// Batch returns a copy of the validated batch, or nil.
func (p *Pipeline) Batch() *entity.ImportBatch {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.batch == nil {
		return nil
	}
	b := cloneBatch(*p.batch)
	return &b
}

func (p *Pipeline) busy() bool {
	s := p.machine.Current()
	return s == StateUploading || s == StateConfirming
}

func (p *Pipeline) clear() {
	p.fileName = ""
	p.file = nil
	p.preview = nil
	p.batch = nil
}

func (p *Pipeline) fire(event string) {
	err := p.machine.Event(context.Background(), event)
	var noTransition fsm.NoTransitionError
	if err != nil && !errors.As(err, &noTransition) {
		panic("importer: " + err.Error())
	}
}

func mergeRows(rows []entity.ImportedRecord) []entity.ImportedRecord {
	out := make([]entity.ImportedRecord, 0, len(rows))
	for _, r := range rows {
		data := make(entity.RowData, len(r.Data))
		for k, v := range r.Data {
			data[k] = v
		}
		out = append(out, entity.ImportedRecord{
			RowNumber: r.RowNumber,
			Data:      data,
			Status:    r.Status,
			Remark:    r.Remark,
		})
	}
	return out
}

func cloneRecords(in []entity.ImportedRecord) []entity.ImportedRecord {
	if in == nil {
		return nil
	}
	return mergeRows(in)
}

func cloneBatch(b entity.ImportBatch) entity.ImportBatch {
	b.Rows = cloneRecords(b.Rows)
	return b
}
