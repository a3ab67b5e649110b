package cad

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Services provides host callbacks required by the design-file runtime.
//
// Text in the backing file is stored in the runtime's native single-byte
// encoding; in memory all strings are UTF-8. The codec routes every string
// through these hooks so a host can substitute its own encoding policy.
type Services struct {
	// Charmap is the native text encoding of the backing file.
	Charmap *charmap.Charmap

	// ArenaHint is the initial element arena capacity. Zero means the
	// runtime picks its own default. This is the heap policy hook: hosts
	// that know their model sizes can avoid arena regrowth.
	ArenaHint int
}

// DefaultServices returns services with the standard native encoding.
func DefaultServices() *Services {
	return &Services{Charmap: charmap.Windows1252}
}

// DecodeText converts native-encoding bytes from the backing file to UTF-8.
// Undecodable bytes are replaced, not rejected.
func (s *Services) DecodeText(b []byte) string {
	decoded, err := s.Charmap.NewDecoder().Bytes(b)
	if err != nil {
		// Charmap decoders substitute rather than fail; keep the input
		// as a last resort if one ever does.
		return string(b)
	}
	return string(decoded)
}

// EncodeText converts a UTF-8 string to the backing file's native encoding.
// Unmappable runes are substituted.
func (s *Services) EncodeText(text string) []byte {
	enc := encoding.ReplaceUnsupported(s.Charmap.NewEncoder())
	encoded, err := enc.Bytes([]byte(text))
	if err != nil {
		return []byte(text)
	}
	return encoded
}
