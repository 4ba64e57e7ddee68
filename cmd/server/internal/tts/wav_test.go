package tts

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeWAV returns a 16-bit PCM wav with the given number of frames.
func makeWAV(rate uint32, channels uint16, frames int) []byte {
	align := channels * 2
	w := WAV{
		Format: WAVFormat{
			AudioFormat:   1,
			Channels:      channels,
			SampleRate:    rate,
			ByteRate:      rate * uint32(align),
			BlockAlign:    align,
			BitsPerSample: 16,
		},
		Data: make([]byte, frames*int(align)),
	}
	for i := range w.Data {
		w.Data[i] = byte(i)
	}
	return w.Encode()
}

func TestParseWAV(t *testing.T) {
	raw := makeWAV(24000, 1, 12000)
	assert.Len(t, raw, 44+24000)

	w, err := ParseWAV(raw)
	require.NoError(t, err)
	assert.Equal(t, uint32(24000), w.Format.SampleRate)
	assert.Equal(t, uint16(1), w.Format.Channels)
	assert.InDelta(t, 0.5, w.Duration(), 1e-9)
}

func TestParseWAVStreamingSize(t *testing.T) {
	raw := makeWAV(24000, 1, 24000)
	binary.LittleEndian.PutUint32(raw[40:44], 0xFFFFFFFF)

	w, err := ParseWAV(raw)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, w.Duration(), 1e-9)
}

func TestParseWAVSkipsUnknownChunks(t *testing.T) {
	raw := makeWAV(16000, 1, 160)
	// insert a LIST chunk between fmt and data
	list := []byte{'L', 'I', 'S', 'T', 3, 0, 0, 0, 'a', 'b', 'c', 0}
	withList := append(append(append([]byte{}, raw[:36]...), list...), raw[36:]...)

	w, err := ParseWAV(withList)
	require.NoError(t, err)
	assert.Len(t, w.Data, 320)
}

func TestParseWAVInvalid(t *testing.T) {
	for _, b := range [][]byte{nil, []byte("RIFF0000AVI "), makeWAV(8000, 1, 1)[:36]} {
		_, err := ParseWAV(b)
		assert.ErrorIs(t, err, ErrInvalidWAV)
	}
}

func TestConcatWAV(t *testing.T) {
	w, err := ConcatWAV(makeWAV(24000, 1, 24000), makeWAV(24000, 1, 12000))
	require.NoError(t, err)
	assert.InDelta(t, 1.5, w.Duration(), 1e-9)

	_, err = ConcatWAV(makeWAV(24000, 1, 10), makeWAV(22050, 1, 10))
	assert.ErrorIs(t, err, ErrInvalidWAV)

	_, err = ConcatWAV()
	assert.ErrorIs(t, err, ErrInvalidWAV)
}

func TestStereo(t *testing.T) {
	mono, err := ParseWAV(makeWAV(24000, 1, 2))
	require.NoError(t, err)

	st := mono.Stereo()
	assert.Equal(t, uint16(2), st.Format.Channels)
	assert.Equal(t, uint16(4), st.Format.BlockAlign)
	assert.Equal(t, []byte{0, 1, 0, 1, 2, 3, 2, 3}, st.Data)
	assert.InDelta(t, mono.Duration(), st.Duration(), 1e-9)

	assert.Same(t, st, st.Stereo())
}
