package feed

import "errors"

// ErrExhausted is returned by RecordedProvider.Next once every recorded
// tick has been played back.
var ErrExhausted = errors.New("feed: recorded provider exhausted")
