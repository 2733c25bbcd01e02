package mapping

import "errors"

// ErrMapping is wrapped by every error returned from BuildUnit. A mapping
// failure is local to one record: callers skip the record and keep going.
var ErrMapping = errors.New("record mapping failed")
