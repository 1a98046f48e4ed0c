package connector

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// StreamSource is XML content available as a byte stream.
type StreamSource struct {
	Reader io.Reader
}

// StAXSource is XML content available as a token stream.
type StAXSource struct {
	Decoder *xml.Decoder
}

// Serialize reads the remaining tokens and re-encodes them as text.
func (s *StAXSource) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	for {
		tok, err := s.Decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading xml token: %w", err)
		}
		if err := enc.EncodeToken(xml.CopyToken(tok)); err != nil {
			return nil, fmt.Errorf("encoding xml token: %w", err)
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("flushing xml: %w", err)
	}
	return buf.Bytes(), nil
}
