package wav

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/medvox/duplex/internal/pcm"
)

const (
	headerSize   = 44
	fmtChunkSize = 16
	formatPCM    = 1
)

// Encode serializes a PCM buffer as a RIFF/WAVE blob with signed
// little-endian integer samples at the given bit depth (16 or 24).
//
// Encoding is deterministic: the same buffer and bit depth always produce a
// byte-identical blob. Samples are clamped to [-1, 1] before quantization so
// that floating point summation overshoot saturates instead of wrapping.
// A zero-frame buffer yields a structurally valid WAV with an empty data
// chunk.
func Encode(buf *pcm.Buffer, bitDepth int) ([]byte, error) {
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if bitDepth != 16 && bitDepth != 24 {
		return nil, fmt.Errorf("encode wav: unsupported bit depth %d", bitDepth)
	}

	channels := buf.ChannelCount()
	frames := buf.FrameCount()
	bytesPerSample := bitDepth / 8
	blockAlign := channels * bytesPerSample
	dataSize := frames * blockAlign

	out := make([]byte, headerSize+dataSize)
	writeHeader(out, buf.SampleRate, channels, bitDepth, dataSize)

	data := out[headerSize:]
	for frame := 0; frame < frames; frame++ {
		for ch := 0; ch < channels; ch++ {
			offset := frame*blockAlign + ch*bytesPerSample
			sample := clamp(buf.Channels[ch][frame])
			switch bitDepth {
			case 16:
				v := int16(math.Round(sample * 32767))
				binary.LittleEndian.PutUint16(data[offset:], uint16(v))
			case 24:
				v := int32(math.Round(sample * 8388607))
				data[offset] = byte(v)
				data[offset+1] = byte(v >> 8)
				data[offset+2] = byte(v >> 16)
			}
		}
	}

	return out, nil
}

func writeHeader(out []byte, sampleRate, channels, bitDepth, dataSize int) {
	byteRate := sampleRate * channels * bitDepth / 8
	blockAlign := channels * bitDepth / 8

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataSize))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], fmtChunkSize)
	binary.LittleEndian.PutUint16(out[20:22], formatPCM)
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], uint16(bitDepth))
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataSize))
}

func clamp(s float64) float64 {
	if s > 1.0 {
		return 1.0
	}
	if s < -1.0 {
		return -1.0
	}
	return s
}
