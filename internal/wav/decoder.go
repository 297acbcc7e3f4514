package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/medvox/duplex/internal/pcm"
)

// ErrDecode is returned when a blob is empty, truncated, or not in a
// recognized container format. Decoding is non-retryable for that blob.
var ErrDecode = errors.New("cannot decode audio")

const formatIEEEFloat = 3

// SampleFormat identifies the raw sample layout a capture encoder emits.
type SampleFormat string

const (
	FormatF32LE SampleFormat = "f32le"
	FormatS16LE SampleFormat = "s16le"
)

// Spec describes a headerless sample stream.
type Spec struct {
	SampleRate int
	Channels   int
	Format     SampleFormat
}

// Decode parses a RIFF/WAVE blob into a canonical PCM buffer at the
// container's native sample rate. Supported sample encodings are signed
// 16-bit and 24-bit integer PCM and 32-bit IEEE float.
func Decode(blob []byte) (*pcm.Buffer, error) {
	if len(blob) < headerSize {
		return nil, fmt.Errorf("%w: blob too short (%d bytes)", ErrDecode, len(blob))
	}
	if string(blob[0:4]) != "RIFF" || string(blob[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE container", ErrDecode)
	}

	var (
		haveFmt       bool
		audioFormat   int
		channels      int
		sampleRate    int
		bitsPerSample int
		data          []byte
		haveData      bool
	)

	// Walk the chunk list; fmt and data may be separated by other chunks.
	pos := 12
	for pos+8 <= len(blob) {
		id := string(blob[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(blob[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(blob) {
			return nil, fmt.Errorf("%w: chunk %q overruns blob", ErrDecode, id)
		}
		switch id {
		case "fmt ":
			if size < fmtChunkSize {
				return nil, fmt.Errorf("%w: fmt chunk too short", ErrDecode)
			}
			haveFmt = true
			audioFormat = int(binary.LittleEndian.Uint16(blob[body : body+2]))
			channels = int(binary.LittleEndian.Uint16(blob[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(blob[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(blob[body+14 : body+16]))
		case "data":
			haveData = true
			data = blob[body : body+size]
		}
		// Chunks are word-aligned; odd sizes carry a pad byte.
		pos = body + size + size%2
	}

	if !haveFmt || !haveData {
		return nil, fmt.Errorf("%w: missing fmt or data chunk", ErrDecode)
	}
	if channels < 1 || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: invalid fmt chunk (channels=%d rate=%d)", ErrDecode, channels, sampleRate)
	}

	switch {
	case audioFormat == formatPCM && bitsPerSample == 16:
		return deinterleave(data, channels, sampleRate, 2, readS16)
	case audioFormat == formatPCM && bitsPerSample == 24:
		return deinterleave(data, channels, sampleRate, 3, readS24)
	case audioFormat == formatIEEEFloat && bitsPerSample == 32:
		return deinterleave(data, channels, sampleRate, 4, readF32)
	default:
		return nil, fmt.Errorf("%w: unsupported encoding (format=%d bits=%d)", ErrDecode, audioFormat, bitsPerSample)
	}
}

// DecodeRaw converts a headerless interleaved sample stream, as produced by
// the capture adapter's chunked encoders, into a canonical PCM buffer. A
// torn trailing frame is dropped rather than treated as corruption.
func DecodeRaw(raw []byte, spec Spec) (*pcm.Buffer, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty stream", ErrDecode)
	}
	if spec.Channels < 1 || spec.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: invalid stream spec (channels=%d rate=%d)", ErrDecode, spec.Channels, spec.SampleRate)
	}

	switch spec.Format {
	case FormatF32LE:
		return deinterleave(raw, spec.Channels, spec.SampleRate, 4, readF32)
	case FormatS16LE:
		return deinterleave(raw, spec.Channels, spec.SampleRate, 2, readS16)
	default:
		return nil, fmt.Errorf("%w: unsupported sample format %q", ErrDecode, spec.Format)
	}
}

func deinterleave(data []byte, channels, sampleRate, bytesPerSample int, read func([]byte) float64) (*pcm.Buffer, error) {
	blockAlign := channels * bytesPerSample
	frames := len(data) / blockAlign

	buf := pcm.NewBuffer(channels, frames, sampleRate)
	for frame := 0; frame < frames; frame++ {
		base := frame * blockAlign
		for ch := 0; ch < channels; ch++ {
			buf.Channels[ch][frame] = read(data[base+ch*bytesPerSample:])
		}
	}
	return buf, nil
}

// The integer readers scale by the positive full-scale value, so the most
// negative code (-32768, -8388608) lands just below -1 and is clamped back
// onto the buffer's [-1, 1] range.
func readS16(b []byte) float64 {
	return clampUnit(float64(int16(binary.LittleEndian.Uint16(b))) / 32767)
}

func readS24(b []byte) float64 {
	v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign-extend from 24 to 32 bits.
	v = v << 8 >> 8
	return clampUnit(float64(v) / 8388607)
}

func clampUnit(v float64) float64 {
	if v < -1 {
		return -1
	}
	return v
}

func readF32(b []byte) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
}
