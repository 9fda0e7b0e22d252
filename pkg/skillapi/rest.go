package skillapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// maxFaultBody caps how much of an error body ends up in a fault message.
const maxFaultBody = 512

// restCaller speaks JSON over HTTP. As a skill caller it sends GET <base>/<method>
// for calls without arguments and POST <base>/<method> {"skill_id": id}
// otherwise; the station client uses get and post directly.
type restCaller struct {
	base   string
	client *http.Client
}

func newRESTCaller(base string, rt http.RoundTripper) *restCaller {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &restCaller{base: base, client: &http.Client{Transport: rt}}
}

type skillRequest struct {
	SkillID any `json:"skill_id"`
}

func (c *restCaller) call(ctx context.Context, method string, arg any) (any, error) {
	if arg == nil {
		return c.get(ctx, method)
	}
	return c.post(ctx, method, skillRequest{SkillID: arg})
}

func (c *restCaller) get(ctx context.Context, method string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+method, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	return c.do(req)
}

// post sends body as JSON. A nil body sends an empty request.
func (c *restCaller) post(ctx context.Context, method string, body any) (any, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+method, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req)
}

func (c *restCaller) do(req *http.Request) (any, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Fault{Code: resp.StatusCode, Message: faultMessage(resp.Status, body)}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var result any
	if err := dec.Decode(&result); err != nil {
		return nil, errors.Wrap(err, "malformed json response")
	}
	return result, nil
}

func (c *restCaller) close() error {
	c.client.CloseIdleConnections()
	return nil
}

// faultMessage prefers a {"message": ...} or {"error": ...} field from the
// body and falls back to the raw text.
func faultMessage(status string, body []byte) string {
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err == nil {
		for _, key := range []string{"message", "error", "detail"} {
			if s, ok := decoded[key].(string); ok && s != "" {
				return s
			}
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return status
	}
	if len(text) > maxFaultBody {
		text = text[:maxFaultBody] + "..."
	}
	return text
}
