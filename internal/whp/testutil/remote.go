package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bitfantasy/whp/internal/whp/entity"
	"github.com/bitfantasy/whp/internal/whp/importer"
)

// Call is one request received by FakeAPI.
type Call struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   []byte
}

// Reply is a canned response.
type Reply struct {
	Status int
	Body   string
}

// FakeAPI stands in for the remote WHP API. Routes without a canned reply
// get a default: upload-batch parses the file and validates every row,
// everything else answers 200 with an empty envelope.
type FakeAPI struct {
	*httptest.Server

	mu      sync.Mutex
	calls   []Call
	replies map[string]Reply
	// Hold, when set, is waited on before answering any request. Set it
	// before the first request or through HoldRequests.
	Hold chan struct{}
}

// NewFakeAPI starts a fake API closed at test cleanup.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()
	f := &FakeAPI{replies: make(map[string]Reply)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// Reply sets a canned response for method and path.
func (f *FakeAPI) Reply(method, path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[method+" "+path] = Reply{Status: status, Body: body}
}

// HoldRequests makes later requests wait until the returned channel is
// closed.
func (f *FakeAPI) HoldRequests() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Hold = make(chan struct{})
	return f.Hold
}

// Calls returns the requests received so far.
func (f *FakeAPI) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsTo returns the requests received for path.
func (f *FakeAPI) CallsTo(path string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	hold := f.Hold
	f.mu.Unlock()
	if hold != nil {
		<-hold
	}

	call := Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Auth: r.Header.Get("Authorization")}
	var batch *entity.ImportBatch
	if r.URL.Path == "/healthcheck-report/upload-batch" {
		batch = fakeValidate(r)
	} else {
		call.Body, _ = io.ReadAll(r.Body)
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	reply, ok := f.replies[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if ok {
		w.WriteHeader(reply.Status)
		_, _ = io.WriteString(w, reply.Body)
		return
	}
	if batch != nil {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"statusCode": http.StatusOK,
			"message":    "validated",
			"data":       batch,
			"error":      nil,
		})
		return
	}
	_, _ = io.WriteString(w, `{"statusCode":200,"message":"ok","data":null}`)
}

// fakeValidate marks rows OK when the tax id has 13 characters.
func fakeValidate(r *http.Request) *entity.ImportBatch {
	file, hdr, err := r.FormFile("file")
	if err != nil {
		return nil
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil
	}
	records, err := importer.ParseWorkbook(hdr.Filename, data)
	if err != nil {
		return nil
	}

	batch := &entity.ImportBatch{
		BatchUUID: fmt.Sprintf("batch-%d", len(records)),
		TotalRows: len(records),
		Rows:      make([]entity.ImportedRecord, 0, len(records)),
	}
	for _, rec := range records {
		rec.Status = entity.RowStatusOK
		if len(rec.Field("tax_id")) != 13 {
			rec.Status = "ERROR"
			rec.Remark = "เลขประจำตัวประชาชนไม่ถูกต้อง"
		}
		batch.Rows = append(batch.Rows, rec)
	}
	return batch
}
