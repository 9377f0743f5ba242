package output_storage

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// Console code pages the diagnostic tools commonly print in. Anything else is
// resolved through the WHATWG label index.
var codePages = map[string]*charmap.Charmap{
	"cp437":        charmap.CodePage437,
	"ibm437":       charmap.CodePage437,
	"cp850":        charmap.CodePage850,
	"ibm850":       charmap.CodePage850,
	"cp852":        charmap.CodePage852,
	"cp866":        charmap.CodePage866,
	"ibm866":       charmap.CodePage866,
	"866":          charmap.CodePage866,
	"cp1251":       charmap.Windows1251,
	"windows-1251": charmap.Windows1251,
	"cp1252":       charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"koi8-r":       charmap.KOI8R,
}

// Decoder turns raw output bytes into text. It never fails: undecodable input
// comes back with U+FFFD in place of the bad bytes.
type Decoder interface {
	Decode(raw []byte) string
	Name() string
}

// NewDecoder resolves an encoding name such as "cp866", "utf-8" or "windows-1251".
func NewDecoder(name string) (Decoder, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	switch key {
	case "", "utf-8", "utf8":
		return utf8Decoder{}, nil
	}
	if cm, ok := codePages[key]; ok {
		return &textDecoder{name: key, enc: cm}, nil
	}
	enc, err := htmlindex.Get(key)
	if err != nil {
		return nil, fmt.Errorf("unsupported output encoding %q: %w", name, err)
	}
	if !asciiCompatible(enc) {
		// Output is split on the '\n' byte before decoding.
		return nil, fmt.Errorf("unsupported output encoding %q: not ASCII compatible", name)
	}
	return &textDecoder{name: key, enc: enc}, nil
}

const asciiSample = "Reply from 10.0.0.1: TTL=64\r\n"

// asciiCompatible reports whether enc leaves ASCII bytes as they are, which
// rules out UTF-16 and similar wide encodings.
func asciiCompatible(enc encoding.Encoding) bool {
	out, err := enc.NewDecoder().Bytes([]byte(asciiSample))
	return err == nil && string(out) == asciiSample
}

type utf8Decoder struct{}

func (utf8Decoder) Decode(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	return strings.ToValidUTF8(string(raw), string(utf8.RuneError))
}

func (utf8Decoder) Name() string { return "utf-8" }

type textDecoder struct {
	name string
	enc  encoding.Encoding
}

func (d *textDecoder) Decode(raw []byte) string {
	out, err := d.enc.NewDecoder().Bytes(raw)
	if err != nil {
		return utf8Decoder{}.Decode(raw)
	}
	return string(out)
}

func (d *textDecoder) Name() string { return d.name }
