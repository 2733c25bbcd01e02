package datalake

import "errors"

// ErrDatalake is wrapped by connection- and query-layer failures. Such an
// error aborts the active scan-session transaction; the scheduler logs it and
// continues to the next tick.
var ErrDatalake = errors.New("datalake failure")
