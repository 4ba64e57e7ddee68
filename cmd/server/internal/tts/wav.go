package tts

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrInvalidWAV is returned for data that is not a PCM RIFF/WAVE stream.
var ErrInvalidWAV = errors.New("invalid wav data")

// WAVFormat is the fmt chunk of a PCM wav file.
type WAVFormat struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// WAV is a parsed wav file. Data aliases the input buffer.
type WAV struct {
	Format WAVFormat
	Data   []byte
}

// Duration returns the playing time in seconds.
func (w *WAV) Duration() float64 {
	if w.Format.ByteRate == 0 {
		return 0
	}
	return float64(len(w.Data)) / float64(w.Format.ByteRate)
}

// ParseWAV reads the fmt and data chunks of a RIFF/WAVE buffer. Streaming
// encoders write 0 or 0xFFFFFFFF as the data size; the rest of the buffer
// is taken as data then.
func ParseWAV(b []byte) (*WAV, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalidWAV)
	}
	var (
		w       WAV
		haveFmt bool
	)
	pos := 12
	for pos+8 <= len(b) {
		id := string(b[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(b[pos+4 : pos+8]))
		body := pos + 8
		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(b) {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrInvalidWAV)
			}
			f := b[body:]
			w.Format = WAVFormat{
				AudioFormat:   binary.LittleEndian.Uint16(f[0:2]),
				Channels:      binary.LittleEndian.Uint16(f[2:4]),
				SampleRate:    binary.LittleEndian.Uint32(f[4:8]),
				ByteRate:      binary.LittleEndian.Uint32(f[8:12]),
				BlockAlign:    binary.LittleEndian.Uint16(f[12:14]),
				BitsPerSample: binary.LittleEndian.Uint16(f[14:16]),
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidWAV)
			}
			end := body + size
			if size == 0 || uint32(size) == 0xFFFFFFFF || end > len(b) {
				end = len(b)
			}
			w.Data = b[body:end]
			return &w, nil
		}
		pos = body + size + size%2
	}
	return nil, fmt.Errorf("%w: no data chunk", ErrInvalidWAV)
}

// Encode writes w as a canonical 44-byte-header wav file.
func (w *WAV) Encode() []byte {
	var buf bytes.Buffer
	buf.Grow(44 + len(w.Data))
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(w.Data)))
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, w.Format)
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(w.Data)))
	buf.Write(w.Data)
	return buf.Bytes()
}

// ConcatWAV joins wav files of identical format into one.
func ConcatWAV(parts ...[]byte) (*WAV, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: nothing to concatenate", ErrInvalidWAV)
	}
	var out WAV
	for i, p := range parts {
		w, err := ParseWAV(p)
		if err != nil {
			return nil, fmt.Errorf("part %d: %w", i, err)
		}
		if i == 0 {
			out.Format = w.Format
		} else if w.Format != out.Format {
			return nil, fmt.Errorf("%w: part %d format %+v differs from %+v", ErrInvalidWAV, i, w.Format, out.Format)
		}
		out.Data = append(out.Data, w.Data...)
	}
	return &out, nil
}

// Stereo duplicates the channel of a mono file; other files are returned
// unchanged.
func (w *WAV) Stereo() *WAV {
	if w.Format.Channels != 1 || w.Format.BlockAlign == 0 {
		return w
	}
	frame := int(w.Format.BlockAlign)
	data := make([]byte, 0, len(w.Data)*2)
	for i := 0; i+frame <= len(w.Data); i += frame {
		data = append(data, w.Data[i:i+frame]...)
		data = append(data, w.Data[i:i+frame]...)
	}
	f := w.Format
	f.Channels = 2
	f.BlockAlign *= 2
	f.ByteRate *= 2
	return &WAV{Format: f, Data: data}
}
