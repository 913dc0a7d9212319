package audioheader

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/mediaprobe/internal/types"
)

func read(t *testing.T, name string, data []byte) *Info {
	t.Helper()
	info, err := Read(bytes.NewReader(data), int64(len(data)), name)
	require.NoError(t, err)
	return info
}

func put(buf *bytes.Buffer, order binary.ByteOrder, values ...any) {
	for _, v := range values {
		_ = binary.Write(buf, order, v)
	}
}

func flacFile(sampleRate, channels, bits int, samples uint64) []byte {
	var buf bytes.Buffer
	buf.WriteString("fLaC")
	put(&buf, binary.BigEndian, uint32(1<<31|streamInfoSize)) // last block, STREAMINFO
	info := make([]byte, streamInfoSize)
	packed := uint64(sampleRate)<<44 | uint64(channels-1)<<41 | uint64(bits-1)<<36 | samples
	binary.BigEndian.PutUint64(info[10:], packed)
	buf.Write(info)
	return buf.Bytes()
}

func TestRead_FLAC(t *testing.T) {
	info := read(t, "a.flac", flacFile(44100, 2, 16, 441000))

	assert.Equal(t, types.FormatFLAC, info.Codec)
	assert.Equal(t, types.FormatFLAC, info.Container)
	assert.Equal(t, 44100, info.SampleRate)
	assert.Equal(t, 2, info.Channels)
	assert.Equal(t, 16, info.BitDepth)
	assert.InDelta(t, 10.0, info.Duration, 1e-9)
	assert.True(t, info.Lossless)
	assert.Positive(t, info.BitRate)
}

func TestRead_FLACWithoutStreamInfo(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("fLaC")
	put(&buf, binary.BigEndian, uint32(1<<31|1<<24|4)) // last block, PADDING
	buf.Write(make([]byte, 4))

	_, err := Read(bytes.NewReader(buf.Bytes()), int64(buf.Len()), "a.flac")
	var corrupted *types.CorruptedFileError
	assert.ErrorAs(t, err, &corrupted)
}

// 128 kbps, 44.1 kHz, joint stereo, MPEG1 layer III
const mp3FrameHeader = 0xFFFB9064

func mp3File(body []byte, audioSize int) []byte {
	var buf bytes.Buffer
	buf.WriteString("ID3")
	buf.Write([]byte{4, 0, 0, 0, 0, 0x02, 0x00}) // syncsafe 256
	buf.Write(make([]byte, 256))
	start := buf.Len()
	put(&buf, binary.BigEndian, uint32(mp3FrameHeader))
	buf.Write(body)
	if pad := audioSize - (buf.Len() - start); pad > 0 {
		buf.Write(make([]byte, pad))
	}
	return buf.Bytes()
}

func TestRead_MP3CBR(t *testing.T) {
	info := read(t, "a.mp3", mp3File(nil, 16000))

	assert.Equal(t, types.FormatMP3, info.Codec)
	assert.Equal(t, types.FormatMP3, info.Container)
	assert.Equal(t, 44100, info.SampleRate)
	assert.Equal(t, 2, info.Channels)
	assert.Equal(t, 128000, info.BitRate)
	assert.InDelta(t, 1.0, info.Duration, 1e-9)
	assert.False(t, info.VBR)
}

func TestRead_MP3Xing(t *testing.T) {
	var body bytes.Buffer
	body.Write(make([]byte, 32)) // side info
	body.WriteString("Xing")
	put(&body, binary.BigEndian, uint32(0x3), uint32(100), uint32(50000))

	info := read(t, "a.mp3", mp3File(body.Bytes(), 50000))

	wantDuration := 100 * 1152 / 44100.0
	assert.True(t, info.VBR)
	assert.InDelta(t, wantDuration, info.Duration, 1e-9)
	assert.Equal(t, int(50000*8/wantDuration), info.BitRate)
}

func TestRead_MP3VBRI(t *testing.T) {
	var body bytes.Buffer
	body.Write(make([]byte, 32))
	body.WriteString("VBRI")
	body.Write(make([]byte, 6))
	put(&body, binary.BigEndian, uint32(40000), uint32(200))

	info := read(t, "a.mp3", mp3File(body.Bytes(), 40000))
	assert.True(t, info.VBR)
	assert.InDelta(t, 200*1152/44100.0, info.Duration, 1e-9)
}

func TestDecodeFrameHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  uint32
		ok      bool
		codec   types.FormatID
		rate    int
		bitrate int
		samples int
	}{
		{"mpeg1 layer3", 0xFFFB9064, true, types.FormatMP3, 44100, 128000, 1152},
		{"mpeg1 layer2", 0xFFFD9004, true, types.FormatMP2, 44100, 160000, 1152},
		{"mpeg2 layer3", 0xFFF39064, true, types.FormatMP3, 22050, 80000, 576},
		{"no sync", 0x7FFB9064, false, "", 0, 0, 0},
		{"reserved version", 0xFFEB9064, false, "", 0, 0, 0},
		{"free bitrate", 0xFFFB0064, false, "", 0, 0, 0},
		{"bad sample rate", 0xFFFB9C64, false, "", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fh, ok := decodeFrameHeader(tt.header)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.codec, fh.codec())
			assert.Equal(t, tt.rate, fh.sampleRate)
			assert.Equal(t, tt.bitrate, fh.bitrate)
			assert.Equal(t, tt.samples, fh.samplesPerFrame())
		})
	}
}

func oggPageBytes(headerType byte, granule uint64, serial, seq uint32, data []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("OggS")
	buf.WriteByte(0)
	buf.WriteByte(headerType)
	put(&buf, binary.LittleEndian, granule, serial, seq, uint32(0))
	var segments []byte
	n := len(data)
	for n >= 255 {
		segments = append(segments, 255)
		n -= 255
	}
	segments = append(segments, byte(n))
	buf.WriteByte(byte(len(segments)))
	buf.Write(segments)
	buf.Write(data)
	return buf.Bytes()
}

func TestRead_OggVorbis(t *testing.T) {
	var id bytes.Buffer
	id.WriteByte(0x01)
	id.WriteString("vorbis")
	put(&id, binary.LittleEndian, uint32(0))
	id.WriteByte(2)
	put(&id, binary.LittleEndian, uint32(44100), int32(0), int32(160000), int32(0))
	id.Write([]byte{0xB8, 0x01})

	var file bytes.Buffer
	file.Write(oggPageBytes(0x02, 0, 7, 0, id.Bytes()))
	file.Write(oggPageBytes(0x00, 1000, 7, 1, make([]byte, 100)))
	file.Write(oggPageBytes(0x00, 999999, 9, 0, make([]byte, 10))) // other stream
	file.Write(oggPageBytes(0x04, 441000, 7, 2, make([]byte, 100)))
	file.Write(oggPageBytes(0x04, 999999, 9, 1, make([]byte, 10)))

	info := read(t, "a.ogg", file.Bytes())
	assert.Equal(t, types.FormatVorbis, info.Codec)
	assert.Equal(t, types.FormatOGG, info.Container)
	assert.Equal(t, 2, info.Channels)
	assert.Equal(t, 44100, info.SampleRate)
	assert.Equal(t, 160000, info.BitRate)
	assert.InDelta(t, 10.0, info.Duration, 1e-9)
}

func TestRead_OggOpus(t *testing.T) {
	var head bytes.Buffer
	head.WriteString("OpusHead")
	head.WriteByte(1)
	head.WriteByte(2)
	put(&head, binary.LittleEndian, uint16(312), uint32(44100), int16(0))
	head.WriteByte(0)

	var file bytes.Buffer
	file.Write(oggPageBytes(0x02, 0, 1, 0, head.Bytes()))
	file.Write(oggPageBytes(0x04, 48000*5+312, 1, 1, make([]byte, 50)))

	info := read(t, "a.opus", file.Bytes())
	assert.Equal(t, types.FormatOpus, info.Codec)
	assert.Equal(t, 48000, info.SampleRate)
	assert.Equal(t, 2, info.Channels)
	assert.InDelta(t, 5.0, info.Duration, 1e-9)
}

func box(typ string, payload ...[]byte) []byte {
	var body bytes.Buffer
	for _, p := range payload {
		body.Write(p)
	}
	var buf bytes.Buffer
	put(&buf, binary.BigEndian, uint32(8+body.Len()))
	buf.WriteString(typ)
	buf.Write(body.Bytes())
	return buf.Bytes()
}

func mp4File(handler string, aot byte) []byte {
	var mvhd bytes.Buffer
	put(&mvhd, binary.BigEndian, uint32(0), uint32(0), uint32(0), uint32(1000), uint32(3000))
	mvhd.Write(make([]byte, 80))

	var hdlr bytes.Buffer
	put(&hdlr, binary.BigEndian, uint32(0), uint32(0))
	hdlr.WriteString(handler)
	hdlr.Write(make([]byte, 13))

	var esds bytes.Buffer
	put(&esds, binary.BigEndian, uint32(0))
	// ES descriptor: ES_ID 1, no flags
	esds.Write([]byte{0x03, 0x19, 0x00, 0x01, 0x00})
	// decoder config: AAC audio stream, max and average bitrate
	esds.Write([]byte{0x04, 0x11, 0x40, 0x15, 0, 0, 0})
	put(&esds, binary.BigEndian, uint32(130000), uint32(128000))
	// decoder specific info: audio object type in the top 5 bits
	esds.Write([]byte{0x05, 0x02, aot << 3, 0x10})

	var entry bytes.Buffer
	entry.Write(make([]byte, 6))
	put(&entry, binary.BigEndian, uint16(1)) // data reference index
	put(&entry, binary.BigEndian, uint16(0), uint16(0), uint32(0))
	put(&entry, binary.BigEndian, uint16(2), uint16(16), uint16(0), uint16(0), uint32(44100<<16))
	entry.Write(box("esds", esds.Bytes()))

	var stsd bytes.Buffer
	put(&stsd, binary.BigEndian, uint32(0), uint32(1))
	stsd.Write(box("mp4a", entry.Bytes()))

	return append(
		box("ftyp", []byte("M4A \x00\x00\x00\x00")),
		box("moov",
			box("mvhd", mvhd.Bytes()),
			box("trak",
				box("mdia",
					box("hdlr", hdlr.Bytes()),
					box("minf", box("stbl", box("stsd", stsd.Bytes()))),
				),
			),
		)...,
	)
}

func TestRead_MP4(t *testing.T) {
	tests := []struct {
		aot  byte
		want types.FormatID
	}{
		{2, types.FormatAACLC},
		{5, types.FormatHEAAC},
		{1, types.FormatAACMain},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			info := read(t, "a.m4a", mp4File("soun", tt.aot))

			assert.Equal(t, tt.want, info.Codec)
			assert.Equal(t, types.FormatM4A, info.Container)
			assert.Equal(t, 2, info.Channels)
			assert.Equal(t, 44100, info.SampleRate)
			assert.Equal(t, 128000, info.BitRate)
			assert.InDelta(t, 3.0, info.Duration, 1e-9)
		})
	}
}

func TestRead_MP4WithoutSoundTrack(t *testing.T) {
	data := mp4File("vide", 2)
	_, err := Read(bytes.NewReader(data), int64(len(data)), "a.m4a")
	var unsupported *types.UnsupportedFormatError
	assert.ErrorAs(t, err, &unsupported)
}

func waveFile(tag, channels uint16, rate uint32, bits uint16, dataSize int) []byte {
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	put(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("LIST")
	put(&buf, binary.LittleEndian, uint32(3))
	buf.Write([]byte{1, 2, 3, 0}) // odd size, padded
	buf.WriteString("fmt ")
	blockAlign := channels * bits / 8
	put(&buf, binary.LittleEndian, uint32(16), tag, channels, rate, rate*uint32(blockAlign), blockAlign, bits)
	buf.WriteString("data")
	put(&buf, binary.LittleEndian, uint32(dataSize))
	buf.Write(make([]byte, dataSize))
	return buf.Bytes()
}

func TestRead_Wave(t *testing.T) {
	info := read(t, "a.wav", waveFile(1, 1, 8000, 8, 16000))

	assert.Equal(t, types.FormatLPCM, info.Codec)
	assert.Equal(t, types.FormatWAV, info.Container)
	assert.Equal(t, 1, info.Channels)
	assert.Equal(t, 8000, info.SampleRate)
	assert.Equal(t, 8, info.BitDepth)
	assert.Equal(t, 64000, info.BitRate)
	assert.InDelta(t, 2.0, info.Duration, 1e-9)
	assert.True(t, info.Lossless)
}

func TestRead_WaveADPCM(t *testing.T) {
	info := read(t, "a.wav", waveFile(2, 2, 22050, 4, 1000))
	assert.Equal(t, types.FormatADPCM, info.Codec)
	assert.False(t, info.Lossless)
}

func TestRead_AIFF(t *testing.T) {
	var comm bytes.Buffer
	put(&comm, binary.BigEndian, uint16(2), uint32(88200), uint16(16))
	comm.Write([]byte{0x40, 0x0E, 0xAC, 0x44, 0, 0, 0, 0, 0, 0}) // 44100

	var buf bytes.Buffer
	buf.WriteString("FORM")
	put(&buf, binary.BigEndian, uint32(4+8+comm.Len()))
	buf.WriteString("AIFF")
	buf.WriteString("COMM")
	put(&buf, binary.BigEndian, uint32(comm.Len()))
	buf.Write(comm.Bytes())

	info := read(t, "a.aiff", buf.Bytes())
	assert.Equal(t, types.FormatLPCM, info.Codec)
	assert.Equal(t, types.FormatAIFF, info.Container)
	assert.Equal(t, 44100, info.SampleRate)
	assert.InDelta(t, 2.0, info.Duration, 1e-9)
	assert.Equal(t, 2*16*44100, info.BitRate)
}

func TestExtended(t *testing.T) {
	assert.InDelta(t, 44100.0, extended([]byte{0x40, 0x0E, 0xAC, 0x44, 0, 0, 0, 0, 0, 0}), 1e-9)
	assert.InDelta(t, 48000.0, extended([]byte{0x40, 0x0E, 0xBB, 0x80, 0, 0, 0, 0, 0, 0}), 1e-9)
	assert.Zero(t, extended(make([]byte, 10)))
	assert.Zero(t, extended(nil))
}

func TestRead_DSF(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("DSD ")
	put(&buf, binary.LittleEndian, uint64(28), uint64(0), uint64(0))
	buf.WriteString("fmt ")
	put(&buf, binary.LittleEndian, uint64(52), uint32(1), uint32(0), uint32(2), uint32(2),
		uint32(2822400), uint32(1), uint64(2822400*3), uint32(4096), uint32(0))

	info := read(t, "a.dsf", buf.Bytes())
	assert.Equal(t, types.FormatDSF, info.Codec)
	assert.Equal(t, 2822400, info.SampleRate)
	assert.Equal(t, 2, info.Channels)
	assert.Equal(t, 1, info.BitDepth)
	assert.InDelta(t, 3.0, info.Duration, 1e-9)
}

func TestRead_DFF(t *testing.T) {
	var prop bytes.Buffer
	prop.WriteString("SND ")
	prop.WriteString("FS  ")
	put(&prop, binary.BigEndian, uint64(4), uint32(64000))
	prop.WriteString("CHNL")
	put(&prop, binary.BigEndian, uint64(6), uint16(1))
	prop.WriteString("SLFT")

	var buf bytes.Buffer
	buf.WriteString("FRM8")
	put(&buf, binary.BigEndian, uint64(0))
	buf.WriteString("DSD ")
	buf.WriteString("PROP")
	put(&buf, binary.BigEndian, uint64(prop.Len()))
	buf.Write(prop.Bytes())
	buf.WriteString("DSD ")
	put(&buf, binary.BigEndian, uint64(8000))
	buf.Write(make([]byte, 8000))

	info := read(t, "a.dff", buf.Bytes())
	assert.Equal(t, types.FormatDFF, info.Codec)
	assert.Equal(t, 64000, info.SampleRate)
	assert.Equal(t, 1, info.Channels)
	assert.InDelta(t, 1.0, info.Duration, 1e-9)
}

func TestReadHint_Unsupported(t *testing.T) {
	_, err := ReadHint(bytes.NewReader(nil), 0, "a.mkv", types.FormatMKV)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestRead_Truncated(t *testing.T) {
	files := map[string][]byte{
		"a.flac": flacFile(44100, 2, 16, 441000),
		"a.wav":  waveFile(1, 2, 44100, 16, 0),
		"a.m4a":  mp4File("soun", 2),
	}
	for name, data := range files {
		t.Run(name, func(t *testing.T) {
			for _, n := range []int{5, len(data) / 2} {
				_, err := Read(bytes.NewReader(data[:n]), int64(n), name)
				assert.Error(t, err, "length %d", n)
			}
		})
	}
}
