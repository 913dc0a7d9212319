package mediaprobe

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/mediaprobe/internal/mediainfo"
	"github.com/simonhull/mediaprobe/internal/metrics"
	"github.com/simonhull/mediaprobe/internal/probe"
	"github.com/simonhull/mediaprobe/internal/realaudio"
	"github.com/simonhull/mediaprobe/internal/tagaudio"
	"github.com/simonhull/mediaprobe/internal/thumbnail"
	"github.com/simonhull/mediaprobe/internal/types"
)

type mockMediaInfo struct {
	mock.Mock
}

func (m *mockMediaInfo) Version() string {
	return m.Called().String(0)
}

func (m *mockMediaInfo) Parse(_ context.Context, path string, mediaType MediaType, d *Descriptor) (*Artwork, error) {
	args := m.Called(path, mediaType, d)
	art, _ := args.Get(0).(*Artwork)
	return art, args.Error(1)
}

type mockAudio struct {
	mock.Mock
}

func (m *mockAudio) Parse(_ context.Context, path string, hint FormatID, d *Descriptor) (*Artwork, error) {
	args := m.Called(path, hint, d)
	art, _ := args.Get(0).(*Artwork)
	return art, args.Error(1)
}

type mockFFmpeg struct {
	mock.Mock
}

func (m *mockFFmpeg) Parse(_ context.Context, input string, stdin io.Reader, d *Descriptor) error {
	return m.Called(input, stdin, d).Error(0)
}

func (m *mockFFmpeg) Frame(_ context.Context, input string, _ io.Reader, seek float64) ([]byte, error) {
	args := m.Called(input, seek)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

type mockRaw struct {
	mock.Mock
}

func (m *mockRaw) Dimensions(_ context.Context, path string) (int, int, error) {
	args := m.Called(path)
	return args.Int(0), args.Int(1), args.Error(2)
}

func (m *mockRaw) Thumbnail(_ context.Context, path string) ([]byte, error) {
	args := m.Called(path)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

type mockDVD struct {
	mock.Mock
}

func (m *mockDVD) ParseDVDTitle(_ context.Context, path string, title int, d *Descriptor) error {
	return m.Called(path, title, d).Error(0)
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

// descriptorArg returns the descriptor a backend mock was called with.
func descriptorArg(args mock.Arguments) *Descriptor {
	return args.Get(len(args) - 1).(*Descriptor)
}

func fillMatroska(args mock.Arguments) {
	d := descriptorArg(args)
	d.Container = types.FormatMKV
	d.ParserName = mediainfo.ParserName
	d.SetDuration(200)
	d.AddVideoTrack(VideoTrack{Codec: types.FormatH264, Width: 1920, Height: 1080})
	d.AddAudioTrack(AudioTrack{Codec: types.FormatAC3, Lang: "eng", Channels: 6})
}

func newMediaInfo() *mockMediaInfo {
	mi := &mockMediaInfo{}
	mi.On("Version").Return("23.04").Maybe()
	return mi
}

func TestParse_Idempotent(t *testing.T) {
	path := writeFile(t, "movie.mkv", []byte("matroska bytes"))
	mi := newMediaInfo()
	mi.On("Parse", path, MediaVideo, mock.Anything).Run(fillMatroska).Return(nil, nil).Once()
	c := New(WithMediaInfo(mi))

	first := c.Parse(context.Background(), FileItem(path), FormatNone, MediaVideo)
	second := c.Parse(context.Background(), FileItem(filepath.Dir(path)+"/./movie.mkv"), FormatNone, MediaVideo)

	assert.Same(t, first, second)
	assert.Equal(t, StateDone, first.State)
	assert.Equal(t, StateDone, c.State(FileItem(path)))
	assert.Equal(t, types.FormatMKV, first.Container)
	assert.Equal(t, uint64(len("matroska bytes")), first.SizeBytes)
	assert.Equal(t, LangUnd, first.VideoTracks[0].Lang)
	assert.Equal(t, "video/x-matroska", first.MIMEType)
	mi.AssertNumberOfCalls(t, "Parse", 1)
}

func TestParse_SingleFlight(t *testing.T) {
	path := writeFile(t, "movie.mkv", []byte("matroska bytes"))
	started := make(chan struct{})
	release := make(chan struct{})

	mi := newMediaInfo()
	mi.On("Parse", path, MediaVideo, mock.Anything).Run(func(args mock.Arguments) {
		close(started)
		<-release
		fillMatroska(args)
	}).Return(nil, nil).Once()
	c := New(WithMediaInfo(mi))

	const callers = 8
	results := make([]*Descriptor, callers)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = c.Parse(context.Background(), FileItem(path), FormatNone, MediaVideo)
	}()
	<-started
	assert.Equal(t, StateInProgress, c.State(FileItem(path)))

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.Parse(context.Background(), FileItem(path), FormatNone, MediaVideo)
		}()
	}
	close(release)
	wg.Wait()

	for _, d := range results {
		assert.Same(t, results[0], d)
	}
	assert.Equal(t, StateDone, results[0].State)
	mi.AssertNumberOfCalls(t, "Parse", 1)
}

func TestParse_WaitTimeout(t *testing.T) {
	path := writeFile(t, "movie.mkv", []byte("matroska bytes"))
	started := make(chan struct{})
	release := make(chan struct{})

	mi := newMediaInfo()
	mi.On("Parse", path, MediaVideo, mock.Anything).Run(func(args mock.Arguments) {
		close(started)
		<-release
		fillMatroska(args)
	}).Return(nil, nil).Once()
	c := New(WithMediaInfo(mi), WithWaitTimeout(20*time.Millisecond))
	timeouts := testutil.ToFloat64(metrics.WaitTimeoutsTotal)

	final := make(chan *Descriptor)
	go func() {
		final <- c.Parse(context.Background(), FileItem(path), FormatNone, MediaVideo)
	}()
	<-started

	placeholder := c.Parse(context.Background(), FileItem(path), FormatNone, MediaVideo)
	assert.Equal(t, StateInProgress, placeholder.State)
	assert.Equal(t, uint64(len("matroska bytes")), placeholder.SizeBytes)
	assert.Empty(t, placeholder.Container)
	assert.Empty(t, placeholder.VideoTracks)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, StateInProgress, c.Parse(ctx, FileItem(path), FormatNone, MediaVideo).State)
	assert.Equal(t, timeouts+2, testutil.ToFloat64(metrics.WaitTimeoutsTotal))

	close(release)
	d := <-final
	assert.Equal(t, StateDone, d.State)
	assert.Equal(t, types.FormatMKV, d.Container)
	mi.AssertNumberOfCalls(t, "Parse", 1)
}

func TestParse_IncompatibleHintsSkipMediaInfo(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		hint      FormatID
		mediaType MediaType
	}{
		{"adpcm", "voice.wav", FormatADPCM, MediaAudio},
		{"dff", "album.dff", FormatDFF, MediaAudio},
		{"dsf", "album.dsf", FormatDSF, MediaAudio},
		{"pnm", "scan.pnm", FormatPNM, MediaImage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, []byte("P6\n2 2\n255\n............"))
			mi := newMediaInfo()
			tags := &mockAudio{}
			tags.On("Parse", path, tt.hint, mock.Anything).Run(func(args mock.Arguments) {
				descriptorArg(args).ParserName = tagaudio.ParserName
			}).Return(nil, nil).Maybe()
			ff := &mockFFmpeg{}
			ff.On("Parse", path, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
				descriptorArg(args).ParserName = probe.FFmpegParserName
			}).Return(nil).Maybe()
			c := New(WithMediaInfo(mi), WithTagReader(tags), WithFFmpeg(ff))

			d := c.Parse(context.Background(), FileItem(path), tt.hint, tt.mediaType)

			mi.AssertNotCalled(t, "Parse", mock.Anything, mock.Anything, mock.Anything)
			if tt.mediaType == MediaAudio {
				assert.Equal(t, tagaudio.ParserName, d.ParserName)
			} else {
				assert.Equal(t, probe.FFmpegParserName, d.ParserName)
			}
		})
	}
}

func TestParse_MediaInfoFailureEndsChain(t *testing.T) {
	path := writeFile(t, "song.mp3", []byte("ID3 not really"))
	mi := newMediaInfo()
	mi.On("Parse", path, MediaAudio, mock.Anything).Return(nil, fmt.Errorf("mediainfo: %w", probe.ErrTimeout)).Once()
	tags := &mockAudio{}
	c := New(WithMediaInfo(mi), WithTagReader(tags))
	failures := testutil.ToFloat64(metrics.BackendFailuresTotal.WithLabelValues(mediainfo.ParserName, "timeout"))

	d := c.Parse(context.Background(), FileItem(path), types.FormatMP3, MediaAudio)

	assert.Equal(t, StateDone, d.State)
	assert.Empty(t, d.ParserName)
	assert.Equal(t, types.FormatMP3, d.Container)
	require.Len(t, d.Warnings, 1)
	assert.Equal(t, mediainfo.ParserName, d.Warnings[0].Stage)
	assert.Contains(t, d.Warnings[0].Message, "timed out")
	assert.Equal(t, failures+1, testutil.ToFloat64(metrics.BackendFailuresTotal.WithLabelValues(mediainfo.ParserName, "timeout")))
	tags.AssertNotCalled(t, "Parse", mock.Anything, mock.Anything, mock.Anything)
}

func TestParse_RealAudioFailureFallsThrough(t *testing.T) {
	path := writeFile(t, "broken.ra", []byte(".ra\xfd\x00\x03"))
	mi := newMediaInfo()
	mi.On("Parse", path, MediaAudio, mock.Anything).Run(func(args mock.Arguments) {
		d := descriptorArg(args)
		d.Container = types.FormatRA
		d.ParserName = mediainfo.ParserName
	}).Return(nil, nil).Once()
	c := New(WithMediaInfo(mi))

	d := c.Parse(context.Background(), FileItem(path), types.FormatRA, MediaAudio)

	assert.Equal(t, mediainfo.ParserName, d.ParserName)
	require.Len(t, d.Warnings, 1)
	assert.Equal(t, realaudio.ParserName, d.Warnings[0].Stage)
	mi.AssertExpectations(t)
}

func TestParse_RecoversFromPanics(t *testing.T) {
	path := writeFile(t, "clip.MKV", []byte("matroska bytes"))
	mi := newMediaInfo()
	mi.On("Parse", path, MediaVideo, mock.Anything).Run(func(mock.Arguments) {
		panic("index out of range")
	}).Return(nil, nil)
	c := New(WithMediaInfo(mi))

	var d *Descriptor
	require.NotPanics(t, func() {
		d = c.Parse(context.Background(), FileItem(path), FormatNone, MediaVideo)
	})
	assert.Equal(t, StateDone, d.State)
	assert.Equal(t, types.FormatMKV, d.Container)
	require.Len(t, d.Warnings, 1)
	assert.Contains(t, d.Warnings[0].Message, "index out of range")
}

func TestParse_PostProcessingPanicStillPublishes(t *testing.T) {
	prev := finalize
	finalize = func(*Descriptor, string, MediaType) { panic("bad rule") }
	t.Cleanup(func() { finalize = prev })

	path := writeFile(t, "clip.avi", []byte("RIFF....AVI "))
	c := New(WithTagReader(nil))
	item := FileItem(path)

	var d *Descriptor
	require.NotPanics(t, func() {
		d = c.Parse(context.Background(), item, FormatNone, MediaVideo)
	})
	assert.Equal(t, StateDone, d.State)
	assert.Equal(t, StateDone, c.State(item))
	require.Len(t, d.Warnings, 1)
	assert.Equal(t, "finalize", d.Warnings[0].Stage)
	assert.Contains(t, d.Warnings[0].Message, "bad rule")

	assert.Same(t, d, c.Parse(context.Background(), item, FormatNone, MediaVideo))
}

func TestParse_NoBackendLeavesSizeAndExtension(t *testing.T) {
	path := writeFile(t, "clip.avi", []byte("RIFF....AVI "))
	c := New(WithTagReader(nil))

	d := c.Parse(context.Background(), FileItem(path), FormatNone, MediaVideo)

	assert.Equal(t, StateDone, d.State)
	assert.Equal(t, types.FormatAVI, d.Container)
	assert.Equal(t, uint64(12), d.SizeBytes)
	assert.Empty(t, d.ParserName)
	assert.Empty(t, d.Warnings)
	assert.Nil(t, d.ThumbnailRef)
}

// realAudioV3 builds a RealAudio 1.0 file with dataLen bytes of audio
// declaring 4000 bytes at 8000 bits per second.
func realAudioV3(title, artist string, dataLen int) []byte {
	var header bytes.Buffer
	header.Write(make([]byte, 8))
	binary.Write(&header, binary.BigEndian, uint16(60000))
	binary.Write(&header, binary.BigEndian, uint32(4000))
	header.WriteByte(byte(len(title)))
	header.WriteString(title)
	header.WriteByte(byte(len(artist)))
	header.WriteString(artist)

	var buf bytes.Buffer
	buf.WriteString(".ra\xFD")
	binary.Write(&buf, binary.BigEndian, uint16(3))
	binary.Write(&buf, binary.BigEndian, uint16(header.Len()))
	buf.Write(header.Bytes())
	buf.Write(make([]byte, dataLen))
	return buf.Bytes()
}

func TestParse_RealAudio(t *testing.T) {
	path := writeFile(t, "song.ra", realAudioV3("Song", "Band", 2000))
	hint, err := DetectFile(path)
	require.NoError(t, err)
	require.Equal(t, FormatRA, hint)

	mi := newMediaInfo()
	c := New(WithMediaInfo(mi), WithTagReader(nil))
	d := c.Parse(context.Background(), FileItem(path), hint, MediaAudio)

	assert.Equal(t, "RealAudio", d.ParserName)
	assert.Equal(t, types.FormatRA, d.Container)
	require.Len(t, d.AudioTracks, 1)
	assert.Equal(t, types.FormatRA144, d.AudioTracks[0].Codec)
	assert.Equal(t, 1, d.AudioTracks[0].Channels)
	assert.Equal(t, 8000, d.AudioTracks[0].SampleRate)
	assert.InDelta(t, 2.0, d.Duration(), 1e-9)
	require.NotNil(t, d.AudioMetadata)
	assert.Equal(t, "Band", d.AudioMetadata.Artist)
	mi.AssertNotCalled(t, "Parse", mock.Anything, mock.Anything, mock.Anything)
}

func TestParse_RealAudioMismatchIsSilent(t *testing.T) {
	path := writeFile(t, "song.ra", []byte("not a real audio file"))
	tags := &mockAudio{}
	tags.On("Parse", path, FormatRA, mock.Anything).Run(func(args mock.Arguments) {
		descriptorArg(args).ParserName = tagaudio.ParserName
	}).Return(nil, nil).Once()
	c := New(WithTagReader(tags))

	d := c.Parse(context.Background(), FileItem(path), FormatRA, MediaAudio)

	assert.Equal(t, tagaudio.ParserName, d.ParserName)
	assert.Empty(t, d.Warnings)
}

func TestParse_Stream(t *testing.T) {
	stream := strings.NewReader("\x47 transport stream")
	ff := &mockFFmpeg{}
	ff.On("Parse", "", stream, mock.Anything).Run(func(args mock.Arguments) {
		d := descriptorArg(args)
		d.Container = types.FormatMPEGTS
		d.ParserName = probe.FFmpegParserName
		d.AddVideoTrack(VideoTrack{Codec: types.FormatH264})
	}).Return(nil).Once()
	mi := newMediaInfo()
	c := New(WithMediaInfo(mi), WithFFmpeg(ff))

	item := StreamItem("live-1", stream)
	d := c.Parse(context.Background(), item, FormatNone, MediaVideo)
	again := c.Parse(context.Background(), item, FormatNone, MediaVideo)

	assert.Same(t, d, again)
	assert.Equal(t, types.FormatMPEGTS, d.Container)
	assert.Zero(t, d.SizeBytes)
	ff.AssertNumberOfCalls(t, "Parse", 1)
	mi.AssertNotCalled(t, "Parse", mock.Anything, mock.Anything, mock.Anything)
}

func TestParse_Image(t *testing.T) {
	path := writeFile(t, "photo.png", pngBytes(t, 64, 32))
	store := thumbnail.NewMemoryStore()
	c := New(WithThumbnails(&thumbnail.Resolver{Store: store}))

	d := c.Parse(context.Background(), FileItem(path), types.FormatPNG, MediaImage)

	assert.Equal(t, imageParserName, d.ParserName)
	assert.Equal(t, types.FormatPNG, d.Container)
	require.NotNil(t, d.Image)
	assert.Equal(t, ImageInfo{Format: types.FormatPNG, Width: 64, Height: 32}, *d.Image)
	assert.Equal(t, "image/png", d.MIMEType)
	assert.Equal(t, ThumbnailEmbedded, d.ThumbnailSource)
	assert.Equal(t, 1, store.Len())

	art, err := c.Thumbnail(context.Background(), d)
	require.NoError(t, err)
	require.NotNil(t, art)
	assert.Equal(t, "image/png", art.MIMEType)
	assert.Equal(t, 64, art.Width)

	art, err = c.Thumbnail(context.Background(), &Descriptor{})
	assert.NoError(t, err)
	assert.Nil(t, art)
}

func TestParse_CameraRaw(t *testing.T) {
	path := writeFile(t, "IMG_0001.CR2", []byte("II*\x00raw"))
	raw := &mockRaw{}
	raw.On("Dimensions", path).Return(5472, 3648, nil).Once()
	raw.On("Thumbnail", path).Return(pngBytes(t, 160, 120), nil).Once()
	mi := newMediaInfo()
	mi.On("Parse", path, MediaImage, mock.Anything).Run(func(args mock.Arguments) {
		d := descriptorArg(args)
		d.Container = types.FormatTIFF
		d.Title = "Harbour at dawn"
		d.ParserName = mediainfo.ParserName
	}).Return(nil, nil).Once()
	store := thumbnail.NewMemoryStore()
	c := New(WithMediaInfo(mi), WithDCRaw(raw), WithThumbnails(&thumbnail.Resolver{Store: store}))

	hint := DetectHint(path, nil, 0)
	require.Equal(t, FormatRAW, hint)
	d := c.Parse(context.Background(), FileItem(path), hint, MediaImage)

	assert.Equal(t, dcrawParserName, d.ParserName)
	assert.Equal(t, FormatRAW, d.Container)
	assert.Equal(t, "Harbour at dawn", d.Title)
	assert.Equal(t, ImageInfo{Format: FormatRAW, Width: 5472, Height: 3648}, *d.Image)
	assert.Equal(t, ThumbnailEmbedded, d.ThumbnailSource)
	mi.AssertNumberOfCalls(t, "Parse", 1)
	raw.AssertExpectations(t)
}

func TestParse_DVDImage(t *testing.T) {
	path := writeFile(t, "movie.iso", []byte("CD001"))
	dvd := &mockDVD{}
	dvd.On("ParseDVDTitle", path, 2, mock.Anything).Run(func(args mock.Arguments) {
		d := descriptorArg(args)
		d.Container = types.FormatISO
		d.ParserName = probe.MPlayerParserName
		d.AddVideoTrack(VideoTrack{Codec: types.FormatMPEG2, Width: 720, Height: 576})
	}).Return(nil).Once()
	mi := newMediaInfo()
	c := New(WithMediaInfo(mi), WithMPlayer(dvd, 2))

	d := c.Parse(context.Background(), FileItem(path), FormatISO, MediaVideo)

	assert.Equal(t, probe.MPlayerParserName, d.ParserName)
	assert.Equal(t, types.FormatISO, d.Container)
	mi.AssertNotCalled(t, "Parse", mock.Anything, mock.Anything, mock.Anything)
}

func TestParseMany(t *testing.T) {
	dir := t.TempDir()
	tags := &mockAudio{}
	tags.On("Parse", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		d := descriptorArg(args)
		d.Title = filepath.Base(args.String(0))
		d.ParserName = tagaudio.ParserName
	}).Return(nil, nil)
	c := New(WithTagReader(tags))

	var reqs []Request
	for i := range 5 {
		path := filepath.Join(dir, fmt.Sprintf("track%02d.flac", i+1))
		require.NoError(t, os.WriteFile(path, []byte("fLaC"), 0o644))
		reqs = append(reqs, Request{Item: FileItem(path), Hint: types.FormatFLAC, MediaType: MediaAudio})
	}

	results, err := c.ParseMany(context.Background(), reqs...)
	require.NoError(t, err)
	require.Len(t, results, len(reqs))
	for i, d := range results {
		assert.Equal(t, fmt.Sprintf("track%02d.flac", i+1), d.Title)
		assert.Equal(t, StateDone, d.State)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New(WithTagReader(tags)).ParseMany(ctx, reqs...)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestResolveThumbnail(t *testing.T) {
	path := writeFile(t, "clip.mkv", []byte("matroska bytes"))
	ff := &mockFFmpeg{}
	ff.On("Parse", path, nil, mock.Anything).Run(func(args mock.Arguments) {
		d := descriptorArg(args)
		d.Container = types.FormatMKV
		d.ParserName = probe.FFmpegParserName
		d.SetDuration(100)
		d.AddVideoTrack(VideoTrack{Codec: types.FormatH264})
	}).Return(nil).Once()
	ff.On("Frame", path, 4.0).Return(pngBytes(t, 320, 180), nil).Once()
	ff.On("Frame", path, 50.0).Return(pngBytes(t, 320, 180), nil).Once()
	store := thumbnail.NewMemoryStore()
	c := New(WithTagReader(nil), WithFFmpeg(ff), WithThumbnails(&thumbnail.Resolver{
		Store:       store,
		Frames:      ff,
		SeekSeconds: 4,
	}))

	item := FileItem(path)
	assert.Nil(t, c.ResolveThumbnail(context.Background(), item, nil))

	first := c.Parse(context.Background(), item, FormatNone, MediaVideo)
	require.NotNil(t, first.ThumbnailRef)
	assert.Equal(t, ThumbnailSeekExtraction, first.ThumbnailSource)
	firstRef := *first.ThumbnailRef

	seek := 50.0
	refreshed := c.ResolveThumbnail(context.Background(), item, &seek)
	require.NotNil(t, refreshed.ThumbnailRef)
	assert.NotSame(t, first, refreshed)
	assert.NotEqual(t, firstRef, *refreshed.ThumbnailRef)
	assert.Equal(t, firstRef, *first.ThumbnailRef)
	assert.Same(t, refreshed, c.Parse(context.Background(), item, FormatNone, MediaVideo))
	assert.Equal(t, 2, store.Len())
	ff.AssertExpectations(t)
}

func TestItemKey(t *testing.T) {
	assert.Equal(t, "/media/a.mkv", FileItem("/media/x/../a.mkv").Key())
	assert.Equal(t, "live-1", StreamItem("live-1", strings.NewReader("")).Key())
	assert.Equal(t, "custom", Item{ID: "custom", Path: "/media/a.mkv"}.Key())
	assert.Empty(t, Item{Stream: strings.NewReader("")}.Key())
}
