// Package mediaprobe identifies media files and streams and extracts their
// technical metadata.
//
// A Coordinator runs each item through an ordered chain of backends and
// publishes one Descriptor per item: container, duration, bitrate, video,
// audio and subtitle tracks, chapters, image dimensions and a thumbnail
// reference. Vendor codec and container strings are canonicalized into
// FormatID values, and absent codecs or languages are reported as "und".
//
// # Quick Start
//
//	cfg, err := mediaprobe.LoadConfig("mediaprobe.yml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	c := mediaprobe.FromConfig(cfg)
//	defer c.Close()
//
//	d := c.ParseFile(ctx, "movie.mkv", mediaprobe.MediaVideo)
//	fmt.Printf("%s %.0fs %d video track(s)\n", d.Container, d.Duration(), len(d.VideoTracks))
//
// Backends can also be supplied directly with options such as WithFFmpeg
// and WithMediaInfo, which accept any implementation of the backend
// interfaces.
//
// # Backends
//
// Backends are tried in this order. A failing RealAudio, camera raw or DVD
// backend hands over to the next one; MediaInfo, the tag reader and ffmpeg
// are exclusive, so only one of them runs for a file:
//
//   - RealAudio 1.0/2.0 headers, read in-process
//   - camera raw images through dcraw, merged with what MediaInfo reports
//   - DVD images through mplayer
//   - MediaInfo, except for ADPCM, DFF, DSF and PNM inputs
//   - tag and header reading for audio files
//   - in-process image header decoding
//   - ffmpeg, which is also the only backend for streams
//
// # Concurrency
//
// Parse may be called concurrently for the same item. Only the first caller
// parses; the others wait for its result, up to the wait timeout, and never
// start a second parse. Published descriptors are shared and must be
// treated as read-only.
//
// # Error Handling
//
// Parse never returns an error. Backend failures are logged, counted in
// metrics and recorded as Warnings on the descriptor; the worst outcome is a
// descriptor holding only the size and a container guessed from the file
// extension.
package mediaprobe
