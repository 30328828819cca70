// Package httputil provides retry helpers for outbound HTTP calls.
//
// Wrap transient failures (transport errors, 429, 5xx) with [Retryable] and
// run the request through [Retry]:
//
//	err := httputil.Retry(ctx, 3, 500*time.Millisecond, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return httputil.Retryable(err)
//	    }
//	    defer resp.Body.Close()
//	    if httputil.RetryableStatus(resp.StatusCode) {
//	        return httputil.Retryable(fmt.Errorf("status %d", resp.StatusCode))
//	    }
//	    return nil
//	})
package httputil
