package dropcache

import "errors"

// ErrNilStore is returned by New when no slot store is given.
var ErrNilStore = errors.New("dropcache: nil store")
