package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// WAVHeaderSize is the size of the header written by WriteWAVHeader.
const WAVHeaderSize = 44

// WAV audio format tags.
const (
	WAVFormatPCM        uint16 = 1
	WAVFormatFloat      uint16 = 3
	WAVFormatExtensible uint16 = 0xFFFE
)

var (
	// ErrNotWAV is returned when a stream does not start with a RIFF/WAVE header.
	ErrNotWAV = errors.New("pcm: not a RIFF/WAVE stream")

	// ErrNoDataChunk is returned when a WAV stream ends before its data chunk.
	ErrNoDataChunk = errors.New("pcm: wav data chunk not found")
)

// WAVInfo describes the fmt and data chunks of a WAV stream.
type WAVInfo struct {
	AudioFormat   uint16
	Channels      int
	SampleRate    int
	BitsPerSample int

	// DataSize is the declared length of the data chunk in bytes, or -1 when
	// the writer did not know it (streaming output).
	DataSize int64
}

// IsPCM reports whether the samples are integer PCM.
func (i WAVInfo) IsPCM() bool {
	return i.AudioFormat == WAVFormatPCM || i.AudioFormat == WAVFormatExtensible
}

// Format returns the pcm Format matching this stream, if one exists.
func (i WAVInfo) Format() (Format, bool) {
	if !i.IsPCM() {
		return 0, false
	}
	return FormatOf(i.SampleRate, i.Channels, i.BitsPerSample)
}

// BlockAlign returns the number of bytes per sample frame.
func (i WAVInfo) BlockAlign() int {
	return i.Channels * i.BitsPerSample / 8
}

// ReadWAVHeader parses the RIFF header and all chunks up to and including the
// data chunk header. On success r is positioned at the first data byte.
func ReadWAVHeader(r io.Reader) (WAVInfo, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return WAVInfo{}, ErrNotWAV
		}
		return WAVInfo{}, err
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return WAVInfo{}, ErrNotWAV
	}

	var (
		info    WAVInfo
		haveFmt bool
		hdr     [8]byte
	)
	for {
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return WAVInfo{}, ErrNoDataChunk
			}
			return WAVInfo{}, err
		}
		id := string(hdr[0:4])
		size := int64(binary.LittleEndian.Uint32(hdr[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return WAVInfo{}, fmt.Errorf("pcm: invalid wav fmt chunk size %d", size)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return WAVInfo{}, fmt.Errorf("pcm: read wav fmt chunk: %w", err)
			}
			info.AudioFormat = binary.LittleEndian.Uint16(body[0:2])
			info.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			if size%2 == 1 {
				if _, err := io.CopyN(io.Discard, r, 1); err != nil {
					return WAVInfo{}, fmt.Errorf("pcm: read wav fmt chunk: %w", err)
				}
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return WAVInfo{}, errors.New("pcm: wav data chunk before fmt chunk")
			}
			if info.Channels <= 0 || info.SampleRate <= 0 || info.BitsPerSample <= 0 {
				return WAVInfo{}, fmt.Errorf("pcm: invalid wav fmt: %d ch, %d Hz, %d bit",
					info.Channels, info.SampleRate, info.BitsPerSample)
			}
			info.DataSize = size
			if size == 0 || size == math.MaxUint32 {
				info.DataSize = -1
			}
			return info, nil
		default:
			skip := size + size%2
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				if errors.Is(err, io.EOF) {
					return WAVInfo{}, ErrNoDataChunk
				}
				return WAVInfo{}, fmt.Errorf("pcm: skip wav %q chunk: %w", id, err)
			}
		}
	}
}

// DataReader returns a reader over the sample data that follows a header
// parsed by ReadWAVHeader.
func DataReader(r io.Reader, info WAVInfo) io.Reader {
	if info.DataSize < 0 {
		return r
	}
	return io.LimitReader(r, info.DataSize)
}

// DecodeWAV reads a complete WAV stream and returns its description and the
// raw sample bytes, truncated to a whole number of sample frames.
func DecodeWAV(r io.Reader) (WAVInfo, []byte, error) {
	info, err := ReadWAVHeader(r)
	if err != nil {
		return WAVInfo{}, nil, err
	}
	data, err := io.ReadAll(DataReader(r, info))
	if err != nil {
		return WAVInfo{}, nil, fmt.Errorf("pcm: read wav data: %w", err)
	}
	if align := info.BlockAlign(); align > 0 {
		data = data[:len(data)/align*align]
	}
	info.DataSize = int64(len(data))
	return info, data, nil
}

// WriteWAVHeader writes a 44-byte PCM WAV header for dataLen bytes of audio
// in format f.
func WriteWAVHeader(w io.Writer, f Format, dataLen int64) error {
	if dataLen < 0 || dataLen > math.MaxUint32-(WAVHeaderSize-8) {
		return fmt.Errorf("pcm: wav data length %d out of range", dataLen)
	}
	var h [WAVHeaderSize]byte
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], uint32(dataLen+WAVHeaderSize-8))
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], WAVFormatPCM)
	binary.LittleEndian.PutUint16(h[22:24], uint16(f.Channels()))
	binary.LittleEndian.PutUint32(h[24:28], uint32(f.SampleRate()))
	binary.LittleEndian.PutUint32(h[28:32], uint32(f.BytesRate()))
	binary.LittleEndian.PutUint16(h[32:34], uint16(f.BlockAlign()))
	binary.LittleEndian.PutUint16(h[34:36], uint16(f.Depth()))
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], uint32(dataLen))
	_, err := w.Write(h[:])
	return err
}

// WriteWAV writes a complete WAV stream holding the given chunks. All chunks
// must share format f.
func WriteWAV(w io.Writer, f Format, chunks ...Chunk) error {
	var total int64
	for _, c := range chunks {
		if c.Format() != f {
			return fmt.Errorf("pcm: chunk format %v does not match %v", c.Format(), f)
		}
		total += c.Len()
	}
	if err := WriteWAVHeader(w, f, total); err != nil {
		return err
	}
	for _, c := range chunks {
		if _, err := c.WriteTo(w); err != nil {
			return err
		}
	}
	return nil
}
