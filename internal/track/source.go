package track

import "io"

// SingleRecord is a csvutil reader that yields one pre-read record at a
// time, so callers can validate raw rows before decoding them.
type SingleRecord struct{ rec []string }

// Set queues rec for the next Read.
func (s *SingleRecord) Set(rec []string) { s.rec = rec }

func (s *SingleRecord) Read() ([]string, error) {
	if s.rec == nil {
		return nil, io.EOF
	}
	r := s.rec
	s.rec = nil
	return r, nil
}
