// Package metabasetest provides a small reflected class library for tests.
package metabasetest

import (
	_ "embed"

	"github.com/chazu/loopbridge/metabase"
)

//go:embed fixture.json
var fixtureJSON []byte

// JSON returns the raw reflection document behind Library.
func JSON() []byte {
	out := make([]byte, len(fixtureJSON))
	copy(out, fixtureJSON)
	return out
}

// Library returns a freshly decoded copy of the fixture. Each call returns
// an independent library, so tests may register classes into it freely.
func Library() *metabase.Library {
	lib, err := metabase.Decode(fixtureJSON)
	if err != nil {
		panic("metabasetest: fixture does not decode: " + err.Error())
	}
	return lib
}
