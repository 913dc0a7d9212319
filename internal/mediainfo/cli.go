package mediainfo

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/simonhull/mediaprobe/internal/logger"
	"github.com/simonhull/mediaprobe/internal/probe"
)

var log = logger.Get("MediaInfo")

// chapterTimestamp matches the field names of chapter entries in a Menu section.
var chapterTimestamp = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{3}$`)

type field struct {
	name  string
	value string
}

type stream struct {
	fields []field
}

func (s *stream) get(name string) string {
	for _, f := range s.fields {
		if f.name == name {
			return f.value
		}
	}
	return ""
}

// CLI implements Library by running the mediainfo command line tool and
// reading its full text report.
type CLI struct {
	Path   string
	Runner probe.Runner

	optionNames []string
	options     map[string]string
	banner      string
	streams     map[StreamKind][]*stream
}

func NewCLI(path string, timeout time.Duration) *CLI {
	if strings.TrimSpace(path) == "" {
		path = "mediainfo"
	}
	return &CLI{
		Path:    path,
		Runner:  probe.Runner{Timeout: timeout},
		options: make(map[string]string),
	}
}

// Option records name for the next Open. Info_Version asks the tool for its
// version banner instead.
func (c *CLI) Option(name, value string) string {
	if name == "Info_Version" {
		if c.banner == "" {
			c.banner = c.versionBanner()
		}
		return c.banner
	}
	if _, ok := c.options[name]; !ok {
		c.optionNames = append(c.optionNames, name)
	}
	c.options[name] = value
	return ""
}

func (c *CLI) versionBanner() string {
	res, err := c.Runner.Run(context.Background(), c.Path, nil, "--Version")
	if err != nil {
		log.Emit(logger.DEBUG, "Could not read mediainfo version: %v\n", err)
		return ""
	}
	for _, line := range res.Lines() {
		if ParseVersion(line) != "" {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

func (c *CLI) Open(ctx context.Context, path string) error {
	c.streams = nil

	args := []string{"--Full"}
	for _, name := range c.optionNames {
		args = append(args, fmt.Sprintf("--%s=%s", name, c.options[name]))
	}
	args = append(args, path)

	res, err := c.Runner.Run(ctx, c.Path, nil, args...)
	if err != nil {
		if errors.Is(err, probe.ErrNotFound) {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}
	if res.ExitErr != nil && len(res.Stdout) == 0 {
		return fmt.Errorf("mediainfo %s: %w: %s", path, res.ExitErr, bytes.TrimSpace(res.Stderr))
	}

	c.streams = parseReport(res.Stdout)
	if len(c.streams[General]) == 0 {
		return fmt.Errorf("mediainfo reported nothing for %s", path)
	}
	return nil
}

func (c *CLI) Count(kind StreamKind) int {
	return len(c.streams[kind])
}

func (c *CLI) stream(kind StreamKind, index int) *stream {
	list := c.streams[kind]
	if index < 0 || index >= len(list) {
		return nil
	}
	return list[index]
}

func (c *CLI) Get(kind StreamKind, index int, name string) string {
	if s := c.stream(kind, index); s != nil {
		return s.get(name)
	}
	return ""
}

func (c *CLI) GetAt(kind StreamKind, index, pos int, info InfoKind) string {
	s := c.stream(kind, index)
	if s == nil || pos < 0 || pos >= len(s.fields) {
		return ""
	}
	if info == InfoName {
		return s.fields[pos].name
	}
	return s.fields[pos].value
}

func (c *CLI) Close() error {
	c.streams = nil
	return nil
}

// parseReport splits a mediainfo text report into streams. Each section
// starts with a title line ("General", "Audio #2") followed by
// "Name : value" lines.
//
// The report omits empty fields, so the Chapters_Pos_Begin and
// Chapters_Pos_End values of a Menu section are recomputed to point at the
// chapter entries within the parsed field list.
func parseReport(out []byte) map[StreamKind][]*stream {
	streams := make(map[StreamKind][]*stream)
	var current *stream
	var currentKind StreamKind

	finish := func() {
		if current != nil && currentKind == Menu {
			fixChapterPositions(current)
		}
	}

	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024) // cover data lines are long
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		name, value, ok := strings.Cut(line, ": ")
		if !ok && strings.HasSuffix(strings.TrimSpace(line), ":") {
			name, ok = strings.TrimSuffix(strings.TrimSpace(line), ":"), true
		}
		if !ok {
			kind, known := streamKindFromName(line)
			finish()
			if !known {
				log.Emit(logger.DEBUG, "Skipping unknown mediainfo section %q\n", line)
				current = nil
				continue
			}
			current, currentKind = &stream{}, kind
			streams[kind] = append(streams[kind], current)
			continue
		}
		if current == nil {
			continue
		}
		current.fields = append(current.fields, field{name: strings.TrimSpace(name), value: strings.TrimSpace(value)})
	}
	finish()
	return streams
}

func fixChapterPositions(s *stream) {
	begin, end := -1, -1
	for i, f := range s.fields {
		if chapterTimestamp.MatchString(f.name) {
			if begin < 0 {
				begin = i
			}
			end = i
		}
	}
	if begin < 0 {
		return
	}
	set := func(name string, v int) {
		for i := range s.fields {
			if s.fields[i].name == name {
				s.fields[i].value = strconv.Itoa(v)
				return
			}
		}
		s.fields = append(s.fields, field{name: name, value: strconv.Itoa(v)})
	}
	set("Chapters_Pos_Begin", begin)
	set("Chapters_Pos_End", end)
}
