// Package httputil provides HTTP helpers shared by the index clients.
//
// # Retry
//
// [Retry] executes an operation with exponential backoff, retrying only
// errors wrapped in [RetryableError]. Clients wrap transient failures
// (timeouts, 5xx responses, 429) and return everything else as is, so a 404
// fails immediately:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    ...
//	})
//
// # Rate limiting
//
// [NewRateLimitedTransport] wraps an http.RoundTripper so that requests to
// the index never exceed a configured rate, which keeps large resolutions
// within the index's fair-use limits.
package httputil
