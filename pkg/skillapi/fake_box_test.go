package skillapi

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// methodCall is the subset of an XML-RPC request the fake box inspects.
type methodCall struct {
	MethodName string `xml:"methodName"`
	Params     []struct {
		Value struct {
			Inner string `xml:",innerxml"`
		} `xml:"value"`
	} `xml:"params>param"`
}

// fakeBox is an XML-RPC endpoint serving canned responses per method.
type fakeBox struct {
	mu        sync.Mutex
	calls     []methodCall
	auth      []string
	responses map[string]string
	handler   func(w http.ResponseWriter, r *http.Request) bool
}

func newFakeBox(t *testing.T, responses map[string]string) (*fakeBox, *httptest.Server) {
	t.Helper()

	box := &fakeBox{responses: responses}
	server := httptest.NewServer(http.HandlerFunc(box.serve))
	t.Cleanup(server.Close)
	return box, server
}

func (b *fakeBox) serve(w http.ResponseWriter, r *http.Request) {
	if b.handler != nil && b.handler(w, r) {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var call methodCall
	if err := xml.Unmarshal(body, &call); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	b.calls = append(b.calls, call)
	if user, pass, ok := r.BasicAuth(); ok {
		b.auth = append(b.auth, user+":"+pass)
	}
	response, ok := b.responses[call.MethodName]
	b.mu.Unlock()

	if !ok {
		response = xmlrpcFault(1, fmt.Sprintf("method %q is not supported", call.MethodName))
	}

	w.Header().Set("Content-Type", "text/xml")
	_, _ = io.WriteString(w, response)
}

func (b *fakeBox) Calls() []methodCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]methodCall(nil), b.calls...)
}

func (b *fakeBox) Auth() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.auth...)
}

func xmlrpcResponse(value string) string {
	return `<?xml version="1.0"?>
<methodResponse>
  <params>
    <param>
      <value>` + value + `</value>
    </param>
  </params>
</methodResponse>`
}

func xmlrpcFault(code int, message string) string {
	return fmt.Sprintf(`<?xml version="1.0"?>
<methodResponse>
  <fault>
    <value>
      <struct>
        <member><name>faultCode</name><value><int>%d</int></value></member>
        <member><name>faultString</name><value><string>%s</string></value></member>
      </struct>
    </value>
  </fault>
</methodResponse>`, code, message)
}

func skillDescriptor(id int, name string) string {
	return fmt.Sprintf(`<struct>
  <member><name>id</name><value><int>%d</int></value></member>
  <member><name>name</name><value><string>%s</string></value></member>
</struct>`, id, name)
}
