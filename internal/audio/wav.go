package audio

import (
	"bytes"
	"encoding/binary"
	"math"
)

// EncodeWAV packs mono float32 samples into a self-contained RIFF/WAVE byte
// buffer with 16-bit PCM encoding. The result is suitable for the generic
// media playback path, which on some platforms succeeds where the
// low-latency device is blocked.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	const (
		numChannels   = 1
		bitsPerSample = 16
	)
	dataSize := len(samples) * (bitsPerSample / 8)
	byteRate := sampleRate * numChannels * (bitsPerSample / 8)
	blockAlign := numChannels * (bitsPerSample / 8)

	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))

	// RIFF chunk descriptor.
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize)) //nolint:errcheck // bytes.Buffer never fails
	buf.WriteString("WAVE")

	// fmt sub-chunk: PCM, mono, 16-bit.
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))            //nolint:errcheck
	binary.Write(buf, binary.LittleEndian, uint16(1))             //nolint:errcheck // PCM format tag
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))   //nolint:errcheck
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))    //nolint:errcheck
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))      //nolint:errcheck
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))    //nolint:errcheck
	binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample)) //nolint:errcheck

	// data sub-chunk.
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataSize)) //nolint:errcheck

	for _, s := range samples {
		v := math.Max(-1, math.Min(1, float64(s)))
		binary.Write(buf, binary.LittleEndian, int16(v*math.MaxInt16)) //nolint:errcheck
	}

	return buf.Bytes()
}
