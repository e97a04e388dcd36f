package omega

import "net/http"

// Transport propagates the TxContext of the request context as headers.
type Transport struct {
	Base http.RoundTripper
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	tc, ok := FromContext(req.Context())
	if !ok {
		return t.base().RoundTrip(req)
	}
	// RoundTrippers must not modify the caller's request.
	r := req.Clone(req.Context())
	Inject(r.Header, tc)
	return t.base().RoundTrip(r)
}
