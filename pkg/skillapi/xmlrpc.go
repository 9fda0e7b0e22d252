package skillapi

import (
	"context"
	"net/http"
	"net/rpc"
	"regexp"
	"strconv"

	"github.com/kolo/xmlrpc"
	"github.com/pkg/errors"
)

// xmlrpcCaller speaks XML-RPC over HTTP. The codec belongs to kolo/xmlrpc;
// this type only adds context handling and fault classification.
type xmlrpcCaller struct {
	client *xmlrpc.Client
}

func newXMLRPCCaller(endpoint string, rt http.RoundTripper) (*xmlrpcCaller, error) {
	client, err := xmlrpc.NewClient(endpoint, rt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create xmlrpc client")
	}
	return &xmlrpcCaller{client: client}, nil
}

func (c *xmlrpcCaller) call(ctx context.Context, method string, arg any) (any, error) {
	// net/rpc writes the request synchronously, so run it aside to honour ctx.
	var reply any
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.client.Call(method, arg, &reply)
	}()

	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "xmlrpc call abandoned")
	case err := <-errCh:
		if err != nil {
			return nil, classifyXMLRPCError(err)
		}
		return reply, nil
	}
}

func (c *xmlrpcCaller) close() error {
	return c.client.Close()
}

// flattenedFault is how xmlrpc.FaultError reads once net/rpc has turned it
// into an rpc.ServerError.
var flattenedFault = regexp.MustCompile(`(?s)^Fault\((-?\d+)\): (.*)$`)

// classifyXMLRPCError turns a fault response into *Fault. Depending on where
// net/rpc surfaces it, a fault arrives either as xmlrpc.FaultError or as the
// flattened rpc.ServerError.
func classifyXMLRPCError(err error) error {
	var fault xmlrpc.FaultError
	if errors.As(err, &fault) {
		return &Fault{Code: fault.Code, Message: fault.String}
	}
	var serverErr rpc.ServerError
	if errors.As(err, &serverErr) {
		return parseServerError(string(serverErr))
	}
	return err
}

func parseServerError(msg string) *Fault {
	m := flattenedFault.FindStringSubmatch(msg)
	if m == nil {
		return &Fault{Message: msg}
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return &Fault{Message: msg}
	}
	return &Fault{Code: code, Message: m[2]}
}
